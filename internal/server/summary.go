package server

import (
	"time"

	"github.com/pelotoniq/metricsd/internal/metric"
)

// Summary is the derived JSON view over the current snapshot. Every
// field defaults to 0 when its underlying sample is absent, so the
// endpoint is complete even before the first successful round.
type Summary struct {
	ActiveUsersDaily   float64 `json:"active_users_daily"`
	ActiveUsersWeekly  float64 `json:"active_users_weekly"`
	ActiveUsersMonthly float64 `json:"active_users_monthly"`

	RevenueDaily   float64 `json:"revenue_daily"`
	RevenueMonthly float64 `json:"revenue_monthly"`
	RevenueTotal   float64 `json:"revenue_total"`

	APIP95LatencySeconds float64 `json:"api_p95_latency_seconds"`
	APIErrorRate         float64 `json:"api_error_rate"`

	GeneratedAt time.Time `json:"generated_at"`
}

// summaryService is the service whose performance indicators the
// summary surfaces.
const summaryService = "analysis-api"

func buildSummary(snap metric.Snapshot) Summary {
	return Summary{
		ActiveUsersDaily:   snap.ValueOrZero("pelotoniq_active_users", "daily"),
		ActiveUsersWeekly:  snap.ValueOrZero("pelotoniq_active_users", "weekly"),
		ActiveUsersMonthly: snap.ValueOrZero("pelotoniq_active_users", "monthly"),

		RevenueDaily:   snap.ValueOrZero("pelotoniq_revenue", "daily", "total"),
		RevenueMonthly: snap.ValueOrZero("pelotoniq_revenue", "monthly", "total"),
		RevenueTotal:   snap.ValueOrZero("pelotoniq_revenue", "total", "total"),

		APIP95LatencySeconds: snap.ValueOrZero("pelotoniq_system_performance", summaryService, "p95_latency_seconds"),
		APIErrorRate:         snap.ValueOrZero("pelotoniq_system_performance", summaryService, "error_rate"),

		GeneratedAt: time.Now().UTC(),
	}
}
