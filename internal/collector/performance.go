package collector

import (
	"context"
	"fmt"

	"github.com/pelotoniq/metricsd/internal/metric"
	"github.com/pelotoniq/metricsd/internal/source"
)

const metricSystemPerformance = "pelotoniq_system_performance"

const (
	indicatorP95Latency = "p95_latency_seconds"
	indicatorErrorRate  = "error_rate"
)

// Performance derives per-service latency and error-rate indicators
// from the remote time-series query API.
type Performance struct {
	api *source.PromAPI
	// rng is the PromQL range selector applied to rate(), e.g. "5m".
	rng string
}

// NewPerformance creates the system performance collector.
func NewPerformance(api *source.PromAPI, queryRange string) *Performance {
	return &Performance{api: api, rng: queryRange}
}

func (c *Performance) Name() string { return "performance" }

func (c *Performance) Descriptors() []metric.Descriptor {
	return []metric.Descriptor{
		{
			Name:   metricSystemPerformance,
			Kind:   metric.KindGauge,
			Help:   "Per-service performance indicators from the time-series store.",
			Labels: []string{"service", "indicator"},
		},
	}
}

func (c *Performance) p95Query() string {
	return fmt.Sprintf(
		`histogram_quantile(0.95, sum by (le, service) (rate(http_request_duration_seconds_bucket[%s])))`,
		c.rng)
}

func (c *Performance) errorRateQuery() string {
	return fmt.Sprintf(
		`sum by (service) (rate(http_requests_total{status=~"5.."}[%s])) / sum by (service) (rate(http_requests_total[%s]))`,
		c.rng, c.rng)
}

func (c *Performance) Collect(ctx context.Context) ([]metric.Write, error) {
	var writes []metric.Write

	for _, q := range []struct {
		indicator string
		expr      string
	}{
		{indicatorP95Latency, c.p95Query()},
		{indicatorErrorRate, c.errorRateQuery()},
	} {
		samples, err := c.api.QueryVector(ctx, q.expr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", q.indicator, err)
		}
		for _, s := range samples {
			service := s.Labels["service"]
			if service == "" {
				service = "unknown"
			}
			writes = append(writes, metric.Set(metricSystemPerformance, s.Value, service, q.indicator))
		}
	}
	return writes, nil
}
