// Package collector holds the per-domain business metric collectors.
//
// Each collector is a pure read path: it queries its sources for a
// bounded recent window, groups the results by the metric's label
// dimensions, and returns the whole round as one write batch. A failed
// collector returns an error and no writes; it never partially updates
// the registry.
package collector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pelotoniq/metricsd/internal/metric"
	"github.com/pelotoniq/metricsd/internal/source"
)

// Collector produces one batch of registry writes per collection round.
type Collector interface {
	Name() string
	Descriptors() []metric.Descriptor
	Collect(ctx context.Context) ([]metric.Write, error)
}

// RegisterAll statically registers every collector's descriptors.
// Conflicts here are programmer errors and fatal at startup.
func RegisterAll(reg *metric.Registry, collectors []Collector) error {
	for _, c := range collectors {
		for _, d := range c.Descriptors() {
			if err := reg.Register(d); err != nil {
				return fmt.Errorf("collector %s: %w", c.Name(), err)
			}
		}
	}
	return nil
}

// parseFloat converts a SQL column rendered as string. An unparsable
// value means the query returned an unexpected shape.
func parseFloat(row source.Row, column string) (float64, error) {
	raw := row[column]
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("column %q value %q: %w", column, raw, source.ErrQuery)
	}
	return v, nil
}

// labelOr substitutes a fallback for empty label values so label arity
// stays stable regardless of NULLs in the data.
func labelOr(row source.Row, column, fallback string) string {
	if v := row[column]; v != "" {
		return v
	}
	return fallback
}
