package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/pelotoniq/metricsd/internal/metric"
	"github.com/pelotoniq/metricsd/internal/source"
)

const metricRevenue = "pelotoniq_revenue"

// ROLLUP adds a grand-total row per period (payment_type NULL, rendered
// as revenue_type "total").
const queryRevenue = `
SELECT COALESCE(payment_type, 'total') AS revenue_type,
       COALESCE(SUM(amount), 0)        AS amount
  FROM payments
 WHERE status = 'completed'
   AND ($1 = 0 OR paid_at > now() - make_interval(secs => $1))
 GROUP BY ROLLUP(payment_type)`

// revenuePeriods lists the reporting periods the gauge is published
// for; 0 lookback means all time.
var revenuePeriods = []struct {
	name     string
	lookback time.Duration
}{
	{"daily", 24 * time.Hour},
	{"monthly", 30 * 24 * time.Hour},
	{"total", 0},
}

// Revenue tracks completed payment totals per reporting period and
// payment type.
type Revenue struct {
	db *source.DB
}

// NewRevenue creates the revenue collector.
func NewRevenue(db *source.DB) *Revenue {
	return &Revenue{db: db}
}

func (c *Revenue) Name() string { return "revenue" }

func (c *Revenue) Descriptors() []metric.Descriptor {
	return []metric.Descriptor{
		{
			Name:   metricRevenue,
			Kind:   metric.KindGauge,
			Help:   "Completed payment revenue, by reporting period and payment type.",
			Labels: []string{"period", "revenue_type"},
		},
	}
}

func (c *Revenue) Collect(ctx context.Context) ([]metric.Write, error) {
	var writes []metric.Write

	for _, p := range revenuePeriods {
		rows, err := c.db.Query(ctx, queryRevenue, p.lookback.Seconds())
		if err != nil {
			return nil, fmt.Errorf("revenue (%s): %w", p.name, err)
		}
		for _, row := range rows {
			amount, err := parseFloat(row, "amount")
			if err != nil {
				return nil, fmt.Errorf("revenue (%s): %w", p.name, err)
			}
			writes = append(writes, metric.Set(metricRevenue, amount,
				p.name, labelOr(row, "revenue_type", "total")))
		}
	}
	return writes, nil
}
