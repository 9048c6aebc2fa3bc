package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/warp/sitetrack/progress"
)

// Config is the top-level sitetrack configuration.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Engine    Engine    `mapstructure:"engine"`
	Health    Health    `mapstructure:"health"`
	Scheduler Scheduler `mapstructure:"scheduler"`
}

// Server defines the HTTP listener and storage location.
type Server struct {
	Port   string `mapstructure:"port"`
	DBPath string `mapstructure:"db_path"`
}

// Engine defines recompute behaviour.
type Engine struct {
	Workers int  `mapstructure:"workers"`
	Strict  bool `mapstructure:"strict"`
}

// Health defines the thresholds of the project health rule.
type Health struct {
	BehindTolerance float64 `mapstructure:"behind_tolerance"`
	MajorityShare   float64 `mapstructure:"majority_share"`
}

// Scheduler defines the periodic recompute of stored projects.
type Scheduler struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from the given path (or the default location),
// applies SITETRACK_* environment overrides and validates the result.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", DefaultServer.Port)
	v.SetDefault("server.db_path", DefaultServer.DBPath)
	v.SetDefault("engine.workers", DefaultEngine.Workers)
	v.SetDefault("engine.strict", DefaultEngine.Strict)
	v.SetDefault("health.behind_tolerance", DefaultHealth.BehindTolerance)
	v.SetDefault("health.majority_share", DefaultHealth.MajorityShare)
	v.SetDefault("scheduler.enabled", DefaultScheduler.Enabled)
	v.SetDefault("scheduler.interval", DefaultScheduler.Interval)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.AddConfigPath(ConfigDir())
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
	}

	// Missing file is not an error; an unreadable or malformed one is.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Server.DBPath = expandPath(cfg.Server.DBPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Engine.Workers < 0 {
		errs = append(errs, fmt.Errorf("engine.workers must not be negative, got %d", c.Engine.Workers))
	}
	if c.Health.BehindTolerance < 0 || c.Health.BehindTolerance > 1 {
		errs = append(errs, fmt.Errorf("health.behind_tolerance must be in [0,1], got %v", c.Health.BehindTolerance))
	}
	if c.Health.MajorityShare < 0 || c.Health.MajorityShare > 1 {
		errs = append(errs, fmt.Errorf("health.majority_share must be in [0,1], got %v", c.Health.MajorityShare))
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.interval must be positive, got %s", c.Scheduler.Interval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// HealthConfig converts the thresholds for the summarizer.
func (c *Config) HealthConfig() progress.HealthConfig {
	return progress.HealthConfig{
		BehindTolerance: decimal.NewFromFloat(c.Health.BehindTolerance),
		MajorityShare:   decimal.NewFromFloat(c.Health.MajorityShare),
	}
}

// NewEngine builds a recompute engine from the engine and health settings.
func (c *Config) NewEngine() *progress.Engine {
	e := progress.NewEngine(c.HealthConfig(), c.Engine.Workers)
	e.Strict = c.Engine.Strict
	return e
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}
