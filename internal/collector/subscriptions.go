package collector

import (
	"context"
	"fmt"

	"github.com/pelotoniq/metricsd/internal/metric"
	"github.com/pelotoniq/metricsd/internal/source"
)

const metricSubscriptions = "pelotoniq_subscriptions"

const querySubscriptions = `
SELECT COALESCE(plan, 'unknown') AS plan,
       status,
       COUNT(*)                  AS subscriptions
  FROM subscriptions
 GROUP BY 1, 2`

// Subscriptions tracks the current subscription base by plan and state.
type Subscriptions struct {
	db *source.DB
}

// NewSubscriptions creates the subscription state collector.
func NewSubscriptions(db *source.DB) *Subscriptions {
	return &Subscriptions{db: db}
}

func (c *Subscriptions) Name() string { return "subscriptions" }

func (c *Subscriptions) Descriptors() []metric.Descriptor {
	return []metric.Descriptor{
		{
			Name:   metricSubscriptions,
			Kind:   metric.KindGauge,
			Help:   "Subscriptions by plan and status.",
			Labels: []string{"plan", "status"},
		},
	}
}

func (c *Subscriptions) Collect(ctx context.Context) ([]metric.Write, error) {
	rows, err := c.db.Query(ctx, querySubscriptions)
	if err != nil {
		return nil, fmt.Errorf("subscriptions: %w", err)
	}

	var writes []metric.Write
	for _, row := range rows {
		count, err := parseFloat(row, "subscriptions")
		if err != nil {
			return nil, fmt.Errorf("subscriptions: %w", err)
		}
		writes = append(writes, metric.Set(metricSubscriptions, count,
			labelOr(row, "plan", "unknown"), labelOr(row, "status", "unknown")))
	}
	return writes, nil
}
