package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/pelotoniq/metricsd/internal/metric"
	"github.com/pelotoniq/metricsd/internal/source"
)

const metricModelQuality = "pelotoniq_model_quality_score"

// Latest evaluation per model within the window. Older evaluations are
// irrelevant; the gauge reflects current model quality.
const queryModelQuality = `
SELECT DISTINCT ON (model_name)
       model_name,
       accuracy,
       precision_score,
       recall_score,
       f1_score
  FROM model_performance_metrics
 WHERE created_at > now() - make_interval(secs => $1)
 ORDER BY model_name, created_at DESC`

var qualityColumns = []struct {
	column     string
	metricType string
}{
	{"accuracy", "accuracy"},
	{"precision_score", "precision"},
	{"recall_score", "recall"},
	{"f1_score", "f1"},
}

// Models tracks prediction model quality from the evaluation history.
type Models struct {
	db     *source.DB
	window time.Duration
}

// NewModels creates the model quality collector.
func NewModels(db *source.DB, window time.Duration) *Models {
	return &Models{db: db, window: window}
}

func (c *Models) Name() string { return "models" }

func (c *Models) Descriptors() []metric.Descriptor {
	return []metric.Descriptor{
		{
			Name:   metricModelQuality,
			Kind:   metric.KindGauge,
			Help:   "Latest model evaluation scores, by model and score type.",
			Labels: []string{"model_name", "metric_type"},
		},
	}
}

func (c *Models) Collect(ctx context.Context) ([]metric.Write, error) {
	rows, err := c.db.Query(ctx, queryModelQuality, c.window.Seconds())
	if err != nil {
		return nil, fmt.Errorf("model quality: %w", err)
	}

	var writes []metric.Write
	for _, row := range rows {
		model := labelOr(row, "model_name", "unknown")
		for _, q := range qualityColumns {
			score, err := parseFloat(row, q.column)
			if err != nil {
				return nil, fmt.Errorf("model quality: %w", err)
			}
			writes = append(writes, metric.Set(metricModelQuality, score, model, q.metricType))
		}
	}
	return writes, nil
}
