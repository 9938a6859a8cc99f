package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/pelotoniq/metricsd/internal/metric"
	"github.com/pelotoniq/metricsd/internal/source"
)

const (
	metricActiveUsers       = "pelotoniq_active_users"
	metricUserRegistrations = "pelotoniq_user_registrations_total"
)

// activePeriods maps the active-user gauge periods to their lookback.
// These are fixed reporting periods, not the collector window.
var activePeriods = []struct {
	name     string
	lookback time.Duration
}{
	{"daily", 24 * time.Hour},
	{"weekly", 7 * 24 * time.Hour},
	{"monthly", 30 * 24 * time.Hour},
}

const queryActiveUsers = `
SELECT COUNT(DISTINCT user_id)
  FROM sessions
 WHERE started_at > now() - make_interval(secs => $1)`

const queryUserRegistrations = `
SELECT COALESCE(signup_source, 'unknown') AS source,
       COALESCE(tier, 'free')             AS tier,
       COUNT(*)                           AS registrations
  FROM users
 WHERE created_at > now() - make_interval(secs => $1)
 GROUP BY 1, 2`

// Users tracks account activity: current active users per reporting
// period and new registrations observed in the collector window.
type Users struct {
	db     *source.DB
	window time.Duration
}

// NewUsers creates the user activity collector.
func NewUsers(db *source.DB, window time.Duration) *Users {
	return &Users{db: db, window: window}
}

func (c *Users) Name() string { return "users" }

func (c *Users) Descriptors() []metric.Descriptor {
	return []metric.Descriptor{
		{
			Name:   metricActiveUsers,
			Kind:   metric.KindGauge,
			Help:   "Users with at least one session in the reporting period.",
			Labels: []string{"period"},
		},
		{
			Name:   metricUserRegistrations,
			Kind:   metric.KindCounter,
			Help:   "New user registrations observed, by signup source and tier.",
			Labels: []string{"source", "tier"},
		},
	}
}

func (c *Users) Collect(ctx context.Context) ([]metric.Write, error) {
	var writes []metric.Write

	for _, p := range activePeriods {
		count, err := c.db.QueryFloat(ctx, queryActiveUsers, p.lookback.Seconds())
		if err != nil {
			return nil, fmt.Errorf("active users (%s): %w", p.name, err)
		}
		writes = append(writes, metric.Set(metricActiveUsers, count, p.name))
	}

	rows, err := c.db.Query(ctx, queryUserRegistrations, c.window.Seconds())
	if err != nil {
		return nil, fmt.Errorf("user registrations: %w", err)
	}
	for _, row := range rows {
		count, err := parseFloat(row, "registrations")
		if err != nil {
			return nil, fmt.Errorf("user registrations: %w", err)
		}
		writes = append(writes, metric.Inc(metricUserRegistrations, count,
			labelOr(row, "source", "unknown"), labelOr(row, "tier", "free")))
	}

	return writes, nil
}
