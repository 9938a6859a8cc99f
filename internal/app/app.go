// Package app assembles the daemon from its configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pelotoniq/metricsd/internal/collector"
	"github.com/pelotoniq/metricsd/internal/config"
	"github.com/pelotoniq/metricsd/internal/exporter"
	"github.com/pelotoniq/metricsd/internal/metric"
	"github.com/pelotoniq/metricsd/internal/monitor"
	"github.com/pelotoniq/metricsd/internal/scheduler"
	"github.com/pelotoniq/metricsd/internal/server"
	"github.com/pelotoniq/metricsd/internal/source"
)

// App holds initialized application components.
type App struct {
	Config       *config.Config
	Registry     *metric.Registry
	Scheduler    *scheduler.Scheduler
	Server       *server.Server
	Monitor      *monitor.Monitor
	OTELExporter *exporter.OTELExporter

	db *source.DB
	kv *source.KV
}

// New initializes all components from a loaded configuration. Source
// connectivity is probed but not required: an unreachable upstream is
// logged and retried on the next collection round, while a malformed
// DSN or address is a construction error.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := source.OpenDB(source.DBConfig{
		DSN:             cfg.Sources.Postgres.DSN,
		Timeout:         cfg.Sources.Postgres.Timeout,
		MaxConnections:  cfg.Sources.Postgres.MaxConnections,
		ConnMaxLifetime: cfg.Sources.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres client: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		logger.Warn("postgres unreachable at startup, collectors will retry", "error", err)
	}

	promAPI, err := source.NewPromAPI(source.PromAPIConfig{
		BaseURL: cfg.Sources.Prometheus.URL,
		Timeout: cfg.Sources.Prometheus.Timeout,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}

	collectors := []collector.Collector{
		collector.NewUsers(db, cfg.Collectors.Users.Window),
		collector.NewTeams(db, cfg.Collectors.Teams.Window),
		collector.NewAnalyses(db, cfg.Collectors.Analyses.Window),
		collector.NewModels(db, cfg.Collectors.Models.Window),
		collector.NewRevenue(db),
		collector.NewSubscriptions(db),
		collector.NewDataQuality(db, cfg.Collectors.DataQuality.Window),
		collector.NewPerformance(promAPI, cfg.Collectors.Performance.Range),
	}

	var kv *source.KV
	if cfg.Sources.Redis.Address != "" {
		kv, err = source.NewKV(source.KVConfig{
			Address: cfg.Sources.Redis.Address,
			Timeout: cfg.Sources.Redis.Timeout,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		if err := kv.Ping(ctx); err != nil {
			logger.Warn("redis unreachable at startup, collector will retry", "error", err)
		}
		collectors = append(collectors, collector.NewEngagement(kv))
	} else {
		logger.Info("redis not configured, engagement collector disabled")
	}

	registry := metric.NewRegistry()
	if err := collector.RegisterAll(registry, collectors); err != nil {
		_ = db.Close()
		if kv != nil {
			_ = kv.Close()
		}
		return nil, fmt.Errorf("failed to register metric descriptors: %w", err)
	}

	var otelExporter *exporter.OTELExporter
	if cfg.Export.OTEL != nil && cfg.Export.OTEL.Enabled {
		otelExporter, err = exporter.New(cfg.Export.OTEL, registry)
		if err != nil {
			_ = db.Close()
			if kv != nil {
				_ = kv.Close()
			}
			return nil, fmt.Errorf("failed to create OTEL exporter: %w", err)
		}
	}

	return &App{
		Config:       cfg,
		Registry:     registry,
		Scheduler:    scheduler.New(cfg.Collection.Interval, registry, collectors, logger),
		Server:       server.New(cfg.ListenAddress, registry, metric.NewBridge(registry).Gatherer()),
		Monitor:      monitor.New(cfg.Monitor.Interval, logger),
		OTELExporter: otelExporter,
		db:           db,
		kv:           kv,
	}, nil
}

// Close releases the source clients. Call after all components have
// stopped.
func (a *App) Close() {
	if err := a.db.Close(); err != nil {
		slog.Warn("closing postgres client", "error", err)
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			slog.Warn("closing redis client", "error", err)
		}
	}
}
