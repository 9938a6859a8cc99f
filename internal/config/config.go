package config

import (
	"time"
)

// Defaults applied during validation.
const (
	DefaultListenAddress      = ":8080"
	DefaultCollectionInterval = 5 * time.Minute
	DefaultSourceTimeout      = 5 * time.Second
	DefaultMaxConnections     = 4
	DefaultConnMaxLifetime    = 10 * time.Minute
	DefaultMonitorInterval    = 30 * time.Second
	DefaultOTELPushInterval   = 15 * time.Second

	DefaultUsersWindow       = 24 * time.Hour
	DefaultTeamsWindow       = 7 * 24 * time.Hour
	DefaultAnalysesWindow    = time.Hour
	DefaultModelsWindow      = 24 * time.Hour
	DefaultDataQualityWindow = 24 * time.Hour
	DefaultPerformanceRange  = "5m"
)

// Config holds the complete daemon configuration.
type Config struct {
	ListenAddress string           `yaml:"listen_address"`
	Collection    CollectionConfig `yaml:"collection"`
	Sources       SourcesConfig    `yaml:"sources"`
	Collectors    CollectorsConfig `yaml:"collectors"`
	Monitor       MonitorConfig    `yaml:"monitor"`
	Export        ExportConfig     `yaml:"export"`
}

// CollectionConfig controls the scheduling loop.
type CollectionConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// SourcesConfig holds per-upstream connection settings.
type SourcesConfig struct {
	Postgres   PostgresConfig   `yaml:"postgres"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Redis      RedisConfig      `yaml:"redis"`
}

// PostgresConfig configures the relational store client.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxConnections  int           `yaml:"max_connections"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// PrometheusConfig configures the remote time-series query API client.
type PrometheusConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// RedisConfig configures the optional fast key-value client. An empty
// address disables it and the collectors that depend on it.
type RedisConfig struct {
	Address string        `yaml:"address"`
	Timeout time.Duration `yaml:"timeout"`
}

// CollectorsConfig holds the per-collector time windows. The windows
// are deliberately independent; the upstream system used different
// lookbacks per domain and no unifying rationale is documented.
type CollectorsConfig struct {
	Users       WindowConfig `yaml:"users"`
	Teams       WindowConfig `yaml:"teams"`
	Analyses    WindowConfig `yaml:"analyses"`
	Models      WindowConfig `yaml:"models"`
	DataQuality WindowConfig `yaml:"dataquality"`
	Performance RangeConfig  `yaml:"performance"`
}

// WindowConfig is the lookback window of a SQL-backed collector.
type WindowConfig struct {
	Window time.Duration `yaml:"window"`
}

// RangeConfig is the PromQL range selector of the performance collector.
type RangeConfig struct {
	Range string `yaml:"range"`
}

// MonitorConfig controls the process self-monitor.
type MonitorConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// ExportConfig defines optional push export of the registry.
type ExportConfig struct {
	OTEL *OTELExportConfig `yaml:"otel,omitempty"`
}

// OTELExportConfig defines OTLP/HTTP push settings.
type OTELExportConfig struct {
	Enabled      bool              `yaml:"enabled"`
	Endpoint     string            `yaml:"endpoint"`
	PushInterval time.Duration     `yaml:"push_interval"`
	Headers      map[string]string `yaml:"headers,omitempty"`
	Resource     map[string]string `yaml:"resource,omitempty"`
}
