// Package config loads waypoint settings from ~/.waypoint/config.yaml with
// WAYPOINT_* environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment override, e.g. WAYPOINT_DAEMON_PORT
const EnvPrefix = "WAYPOINT_"

// ApplyEnv overlays environment variables on cfg. Only variables that are
// set change a value.
func ApplyEnv(cfg *LocalConfig) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks that enumerated settings hold known values
func (c *LocalConfig) Validate() error {
	if c.Daemon.Port <= 0 || c.Daemon.Port > 65535 {
		return fmt.Errorf("daemon.port %d out of range", c.Daemon.Port)
	}
	if !logLevels[c.Daemon.LogLevel] {
		return fmt.Errorf("daemon.log_level %q must be debug, info, warn or error", c.Daemon.LogLevel)
	}

	switch c.Storage.Backend {
	case BackendMemory, BackendLocal, BackendSQLite, BackendRedis:
	case BackendPostgres:
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("storage.postgres_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}

	switch c.Evaluation.Strategy {
	case StrategyHeuristic, StrategySandbox:
	default:
		return fmt.Errorf("unknown evaluation.strategy %q", c.Evaluation.Strategy)
	}
	if c.Evaluation.TimeoutSeconds <= 0 {
		return fmt.Errorf("evaluation.timeout_seconds must be positive")
	}
	if c.Evaluation.RatePerMinute < 0 {
		return fmt.Errorf("evaluation.rate_per_minute must not be negative")
	}

	if c.Events.Enabled && c.Events.AMQPURL == "" {
		return fmt.Errorf("events.amqp_url is required when events are enabled")
	}
	return nil
}

// Addr returns the daemon listen address
func (c *LocalConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Daemon.Bind, c.Daemon.Port)
}

// EvaluationTimeout returns the evaluation bound as a duration
func (c *LocalConfig) EvaluationTimeout() time.Duration {
	return time.Duration(c.Evaluation.TimeoutSeconds) * time.Second
}

// RedisTTL returns the Redis document TTL, zero for none
func (c *LocalConfig) RedisTTL() time.Duration {
	return time.Duration(c.Storage.Redis.TTLSeconds) * time.Second
}

// ProfilesPath returns the directory for the local backend, defaulting to
// dir/profiles.
func (c *LocalConfig) ProfilesPath(dir string) string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return filepath.Join(dir, "profiles")
}

// SQLitePath returns the database file for the sqlite backend, defaulting to
// dir/waypoint.db.
func (c *LocalConfig) SQLitePath(dir string) string {
	if c.Storage.SQLitePath != "" {
		return c.Storage.SQLitePath
	}
	return filepath.Join(dir, "waypoint.db")
}
