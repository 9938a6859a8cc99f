// Package exporter pushes registry state to an OTLP endpoint.
//
// Push export is optional and fully decoupled from the pull path: the
// periodic reader observes snapshots, so a slow or unreachable OTLP
// endpoint never affects collection or the HTTP server.
package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/pelotoniq/metricsd/internal/config"
	"github.com/pelotoniq/metricsd/internal/metric"
)

const shutdownTimeout = 5 * time.Second

// OTELExporter mirrors the registry into OTel observable instruments
// and pushes them over OTLP/HTTP on a fixed interval.
type OTELExporter struct {
	config        *config.OTELExportConfig
	registry      *metric.Registry
	meterProvider *sdkmetric.MeterProvider
}

// instrument pairs one registry descriptor with its OTel observable.
type instrument struct {
	descriptor metric.Descriptor
	counter    otelmetric.Float64ObservableCounter
	gauge      otelmetric.Float64ObservableGauge
}

// New creates the exporter. Instruments are derived from the already
// registered descriptors, so registration must precede construction.
func New(cfg *config.OTELExportConfig, registry *metric.Registry) (*OTELExporter, error) {
	res, err := buildResource(cfg.Resource)
	if err != nil {
		return nil, err
	}

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
		otlpmetrichttp.WithInsecure(),
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
	}

	otlpExporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
			otlpExporter,
			sdkmetric.WithInterval(cfg.PushInterval),
		)),
	)

	e := &OTELExporter{
		config:        cfg,
		registry:      registry,
		meterProvider: meterProvider,
	}

	if err := e.registerInstruments(); err != nil {
		_ = meterProvider.Shutdown(context.Background())
		return nil, err
	}

	return e, nil
}

func buildResource(resourceAttrs map[string]string) (*resource.Resource, error) {
	attrs := make([]attribute.KeyValue, 0, len(resourceAttrs))
	for k, v := range resourceAttrs {
		attrs = append(attrs, attribute.String(k, v))
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// registerInstruments creates one observable per descriptor and a
// single callback observing the current snapshot.
func (e *OTELExporter) registerInstruments() error {
	meter := e.meterProvider.Meter("pelotoniq-metricsd")
	snap := e.registry.Snapshot()

	instruments := make([]instrument, 0, len(snap.Descriptors))
	var observables []otelmetric.Observable

	for _, d := range snap.Descriptors {
		inst := instrument{descriptor: d}

		switch d.Kind {
		case metric.KindCounter:
			counter, err := meter.Float64ObservableCounter(d.Name,
				otelmetric.WithDescription(d.Help))
			if err != nil {
				return fmt.Errorf("failed to create counter %q: %w", d.Name, err)
			}
			inst.counter = counter
			observables = append(observables, counter)

		case metric.KindGauge:
			gauge, err := meter.Float64ObservableGauge(d.Name,
				otelmetric.WithDescription(d.Help))
			if err != nil {
				return fmt.Errorf("failed to create gauge %q: %w", d.Name, err)
			}
			inst.gauge = gauge
			observables = append(observables, gauge)
		}

		instruments = append(instruments, inst)
		slog.Debug("registered otel instrument", "name", d.Name, "kind", d.Kind)
	}

	_, err := meter.RegisterCallback(
		func(ctx context.Context, observer otelmetric.Observer) error {
			snap := e.registry.Snapshot()
			for _, inst := range instruments {
				for _, s := range snap.Samples[inst.descriptor.Name] {
					opt := otelmetric.WithAttributes(labelAttrs(inst.descriptor.Labels, s.Labels)...)
					if inst.counter != nil {
						observer.ObserveFloat64(inst.counter, s.Value, opt)
					}
					if inst.gauge != nil {
						observer.ObserveFloat64(inst.gauge, s.Value, opt)
					}
				}
			}
			return nil
		},
		observables...,
	)
	if err != nil {
		return fmt.Errorf("failed to register callback: %w", err)
	}
	return nil
}

func labelAttrs(names, values []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(names))
	for i, name := range names {
		if i < len(values) {
			attrs = append(attrs, attribute.String(name, values[i]))
		}
	}
	return attrs
}

// Start blocks until ctx is cancelled; the periodic reader pushes in
// the background.
func (e *OTELExporter) Start(ctx context.Context) error {
	slog.Info("starting otel exporter",
		"endpoint", e.config.Endpoint, "push_interval", e.config.PushInterval)

	<-ctx.Done()
	return e.stop()
}

func (e *OTELExporter) stop() error {
	slog.Info("shutting down otel exporter")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return e.meterProvider.Shutdown(ctx)
}
