package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/pelotoniq/metricsd/internal/metric"
	"github.com/pelotoniq/metricsd/internal/source"
)

const (
	metricAnalysesCompleted = "pelotoniq_analyses_completed_total"
	metricAnalysisQueue     = "pelotoniq_analysis_queue_depth"
)

const queryAnalysesCompleted = `
SELECT COALESCE(analysis_type, 'unknown') AS analysis_type,
       status,
       COUNT(*)                           AS analyses
  FROM analyses
 WHERE completed_at > now() - make_interval(secs => $1)
 GROUP BY 1, 2`

const queryAnalysisQueueDepth = `
SELECT COUNT(*)
  FROM analyses
 WHERE status IN ('queued', 'running')`

// Analyses tracks analysis throughput and the current backlog.
type Analyses struct {
	db     *source.DB
	window time.Duration
}

// NewAnalyses creates the analysis throughput collector.
func NewAnalyses(db *source.DB, window time.Duration) *Analyses {
	return &Analyses{db: db, window: window}
}

func (c *Analyses) Name() string { return "analyses" }

func (c *Analyses) Descriptors() []metric.Descriptor {
	return []metric.Descriptor{
		{
			Name:   metricAnalysesCompleted,
			Kind:   metric.KindCounter,
			Help:   "Analyses finished in the window, by type and final status.",
			Labels: []string{"analysis_type", "status"},
		},
		{
			Name: metricAnalysisQueue,
			Kind: metric.KindGauge,
			Help: "Analyses currently queued or running.",
		},
	}
}

func (c *Analyses) Collect(ctx context.Context) ([]metric.Write, error) {
	var writes []metric.Write

	rows, err := c.db.Query(ctx, queryAnalysesCompleted, c.window.Seconds())
	if err != nil {
		return nil, fmt.Errorf("completed analyses: %w", err)
	}
	for _, row := range rows {
		count, err := parseFloat(row, "analyses")
		if err != nil {
			return nil, fmt.Errorf("completed analyses: %w", err)
		}
		writes = append(writes, metric.Inc(metricAnalysesCompleted, count,
			labelOr(row, "analysis_type", "unknown"), labelOr(row, "status", "unknown")))
	}

	depth, err := c.db.QueryFloat(ctx, queryAnalysisQueueDepth)
	if err != nil {
		return nil, fmt.Errorf("queue depth: %w", err)
	}
	writes = append(writes, metric.Set(metricAnalysisQueue, depth))

	return writes, nil
}
