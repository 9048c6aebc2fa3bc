// Package config provides configuration loading and defaults for sitetrack.
package config

import "time"

// DefaultConfigDir is the default location for sitetrack configuration.
const DefaultConfigDir = "~/.config/sitetrack"

// DefaultConfigName is the config file name looked up in DefaultConfigDir.
const DefaultConfigName = "config"

// EnvPrefix prefixes every environment override, e.g. SITETRACK_SERVER_PORT.
const EnvPrefix = "SITETRACK"

// DefaultServer holds the default HTTP server settings. An empty DBPath keeps
// data in memory.
var DefaultServer = Server{
	Port:   "8080",
	DBPath: "",
}

// DefaultEngine runs one worker per CPU when Workers is zero.
var DefaultEngine = Engine{
	Workers: 0,
	Strict:  false,
}

// DefaultHealth holds the thresholds of the project health rule.
var DefaultHealth = Health{
	BehindTolerance: 0.05,
	MajorityShare:   0.5,
}

// DefaultScheduler recomputes every stored project hourly.
var DefaultScheduler = Scheduler{
	Enabled:  true,
	Interval: time.Hour,
}
