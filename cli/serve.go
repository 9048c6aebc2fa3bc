/*
serve.go - HTTP server command

PURPOSE:
  Starts the sitetrack API with the configured store, engine and recompute
  scheduler, and shuts down gracefully.

STARTUP SEQUENCE:
  1. Load configuration (defaults, file, SITETRACK_* environment)
  2. Open the SQLite store, or the in-memory store when no db_path is set
  3. Create API handler and router
  4. Start the recompute scheduler
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler (an in-flight pass is cancelled)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  sitetrack serve
  sitetrack serve --port 3000 --db ./data/sitetrack.db
  SITETRACK_SCHEDULER_INTERVAL=15m sitetrack serve

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys
*/
package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/sitetrack/api"
	"github.com/warp/sitetrack/config"
	"github.com/warp/sitetrack/progress"
	"github.com/warp/sitetrack/progress/store"
	"github.com/warp/sitetrack/store/sqlite"
)

func serveCmd(opts *options) *cobra.Command {
	var port, dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("db") {
				cfg.Server.DBPath = dbPath
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "HTTP server port (overrides server.port)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path, \":memory:\" for a throwaway database (overrides server.db_path)")
	return cmd
}

// openStore returns the configured store and a function that releases it.
func openStore(cfg *config.Config) (progress.Store, func() error, error) {
	if cfg.Server.DBPath == "" {
		log.Println("No db_path configured, using in-memory store")
		return store.NewMemory(), func() error { return nil }, nil
	}
	s, err := sqlite.New(cfg.Server.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, s.Close, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	handler := api.NewHandler(st, cfg.NewEngine())
	router := api.NewRouter(handler)

	scheduler := api.NewRecomputeScheduler(handler)
	scheduler.Interval = cfg.Scheduler.Interval
	scheduler.Enabled = cfg.Scheduler.Enabled
	handler.Scheduler = scheduler
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on http://localhost:%s", cfg.Server.Port)
		log.Printf("API available at http://localhost:%s/api", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}
