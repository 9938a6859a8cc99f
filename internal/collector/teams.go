package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/pelotoniq/metricsd/internal/metric"
	"github.com/pelotoniq/metricsd/internal/source"
)

const (
	metricActiveTeams = "pelotoniq_active_teams"
	metricTeamSignups = "pelotoniq_team_signups_total"
)

const queryActiveTeams = `
SELECT COALESCE(team_type, 'unknown') AS team_type,
       COALESCE(tier, 'free')         AS tier,
       COUNT(*)                       AS teams
  FROM teams
 WHERE status = 'active'
 GROUP BY 1, 2`

const queryTeamSignups = `
SELECT COALESCE(team_type, 'unknown') AS team_type,
       COUNT(*)                       AS signups
  FROM teams
 WHERE created_at > now() - make_interval(secs => $1)
 GROUP BY 1`

// Teams tracks roster activity: active team counts and new team signups
// in the collector window.
type Teams struct {
	db     *source.DB
	window time.Duration
}

// NewTeams creates the team activity collector.
func NewTeams(db *source.DB, window time.Duration) *Teams {
	return &Teams{db: db, window: window}
}

func (c *Teams) Name() string { return "teams" }

func (c *Teams) Descriptors() []metric.Descriptor {
	return []metric.Descriptor{
		{
			Name:   metricActiveTeams,
			Kind:   metric.KindGauge,
			Help:   "Teams currently in active status, by type and tier.",
			Labels: []string{"team_type", "tier"},
		},
		{
			Name:   metricTeamSignups,
			Kind:   metric.KindCounter,
			Help:   "New teams observed, by type.",
			Labels: []string{"team_type"},
		},
	}
}

func (c *Teams) Collect(ctx context.Context) ([]metric.Write, error) {
	var writes []metric.Write

	rows, err := c.db.Query(ctx, queryActiveTeams)
	if err != nil {
		return nil, fmt.Errorf("active teams: %w", err)
	}
	for _, row := range rows {
		count, err := parseFloat(row, "teams")
		if err != nil {
			return nil, fmt.Errorf("active teams: %w", err)
		}
		writes = append(writes, metric.Set(metricActiveTeams, count,
			labelOr(row, "team_type", "unknown"), labelOr(row, "tier", "free")))
	}

	rows, err = c.db.Query(ctx, queryTeamSignups, c.window.Seconds())
	if err != nil {
		return nil, fmt.Errorf("team signups: %w", err)
	}
	for _, row := range rows {
		count, err := parseFloat(row, "signups")
		if err != nil {
			return nil, fmt.Errorf("team signups: %w", err)
		}
		writes = append(writes, metric.Inc(metricTeamSignups, count,
			labelOr(row, "team_type", "unknown")))
	}

	return writes, nil
}
