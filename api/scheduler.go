/*
scheduler.go - Periodic recompute scheduler

PURPOSE:
  Periodically recomputes every stored project so the latest summary stays
  fresh for dashboards that only read /summary/latest.

DESIGN:
  - Runs a background goroutine with configurable interval
  - Runs once immediately on start
  - Each project is recomputed independently; one failure does not stop the rest
  - Every attempt is recorded as a RecomputeRun for audit and UI display

CONFIGURATION:
  - Interval: How often to recompute (default: 1 hour, scheduler.interval)
  - Enabled: Whether scheduler is active (default: true, scheduler.enabled)

USAGE:
  scheduler := NewRecomputeScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Recompute, RecomputeAll, TriggerRecompute (manual run),
    GetSchedule (GET /api/recompute/schedule)
  - progress/engine.go: Engine.RecomputeFrom
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"
)

// RecomputeScheduler refreshes stored summaries on a ticker.
type RecomputeScheduler struct {
	Handler  *Handler
	Interval time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	// lastRun is guarded separately: Stop holds mu while a pass finishes.
	lastMu  sync.Mutex
	lastRun time.Time
}

// NewRecomputeScheduler creates a new scheduler.
func NewRecomputeScheduler(handler *Handler) *RecomputeScheduler {
	return &RecomputeScheduler{
		Handler:  handler,
		Interval: 1 * time.Hour,
		Enabled:  true,
	}
}

// Start begins the scheduler.
func (rs *RecomputeScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.stop = make(chan struct{})
	rs.ticker = time.NewTicker(rs.Interval)
	rs.wg.Add(1)

	go rs.run(rs.ticker, rs.stop)

	log.Printf("[Scheduler] Started with interval: %v", rs.Interval)
}

// Stop stops the scheduler and waits for an in-flight pass to finish.
func (rs *RecomputeScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *RecomputeScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	rs.recomputeAll(stop)

	for {
		select {
		case <-ticker.C:
			rs.recomputeAll(stop)
		case <-stop:
			return
		}
	}
}

func (rs *RecomputeScheduler) recomputeAll(stop <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel the pass if Stop is called mid-way.
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	started := rs.Handler.Now()
	log.Printf("[Scheduler] Recomputing projects at %v", started)
	rs.lastMu.Lock()
	rs.lastRun = started
	rs.lastMu.Unlock()

	processed, failed, err := rs.Handler.RecomputeAll(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error: %v", err)
		return
	}
	if processed > 0 || failed > 0 {
		log.Printf("[Scheduler] Completed: %d recomputed, %d failed", processed, failed)
	}
}

// RunNow triggers an immediate pass (for testing/admin).
func (rs *RecomputeScheduler) RunNow() {
	rs.recomputeAll(nil)
}

// Running reports whether the ticker is active.
func (rs *RecomputeScheduler) Running() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.ticker != nil
}

// LastRunTime returns when the most recent pass started, zero if none has.
func (rs *RecomputeScheduler) LastRunTime() time.Time {
	rs.lastMu.Lock()
	defer rs.lastMu.Unlock()
	return rs.lastRun
}

// NextRunTime returns when the next scheduled pass will occur: one interval
// after the last pass, or one interval from now if none has run yet.
func (rs *RecomputeScheduler) NextRunTime() time.Time {
	if last := rs.LastRunTime(); !last.IsZero() {
		return last.Add(rs.Interval)
	}
	return rs.Handler.Now().Add(rs.Interval)
}
