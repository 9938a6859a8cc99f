package config

import (
	"fmt"
)

// Validate applies defaults and rejects unusable configuration. Errors
// here are fatal at startup; nothing is retried.
func Validate(cfg *Config) error {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.Collection.Interval <= 0 {
		cfg.Collection.Interval = DefaultCollectionInterval
	}
	if cfg.Monitor.Interval <= 0 {
		cfg.Monitor.Interval = DefaultMonitorInterval
	}

	if cfg.Sources.Postgres.DSN == "" {
		return fmt.Errorf("sources.postgres.dsn is required")
	}
	if cfg.Sources.Postgres.Timeout <= 0 {
		cfg.Sources.Postgres.Timeout = DefaultSourceTimeout
	}
	if cfg.Sources.Postgres.MaxConnections <= 0 {
		cfg.Sources.Postgres.MaxConnections = DefaultMaxConnections
	}
	if cfg.Sources.Postgres.ConnMaxLifetime <= 0 {
		cfg.Sources.Postgres.ConnMaxLifetime = DefaultConnMaxLifetime
	}

	if cfg.Sources.Prometheus.URL == "" {
		return fmt.Errorf("sources.prometheus.url is required")
	}
	if cfg.Sources.Prometheus.Timeout <= 0 {
		cfg.Sources.Prometheus.Timeout = DefaultSourceTimeout
	}

	// Redis is optional; only its timeout gets a default.
	if cfg.Sources.Redis.Timeout <= 0 {
		cfg.Sources.Redis.Timeout = DefaultSourceTimeout
	}

	applyWindowDefaults(&cfg.Collectors)

	if cfg.Export.OTEL != nil && cfg.Export.OTEL.Enabled {
		if cfg.Export.OTEL.Endpoint == "" {
			return fmt.Errorf("export.otel.endpoint is required when otel export is enabled")
		}
		if cfg.Export.OTEL.PushInterval <= 0 {
			cfg.Export.OTEL.PushInterval = DefaultOTELPushInterval
		}
	}

	return nil
}

func applyWindowDefaults(c *CollectorsConfig) {
	if c.Users.Window <= 0 {
		c.Users.Window = DefaultUsersWindow
	}
	if c.Teams.Window <= 0 {
		c.Teams.Window = DefaultTeamsWindow
	}
	if c.Analyses.Window <= 0 {
		c.Analyses.Window = DefaultAnalysesWindow
	}
	if c.Models.Window <= 0 {
		c.Models.Window = DefaultModelsWindow
	}
	if c.DataQuality.Window <= 0 {
		c.DataQuality.Window = DefaultDataQualityWindow
	}
	if c.Performance.Range == "" {
		c.Performance.Range = DefaultPerformanceRange
	}
}
