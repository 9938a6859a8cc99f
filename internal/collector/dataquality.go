package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/pelotoniq/metricsd/internal/metric"
	"github.com/pelotoniq/metricsd/internal/source"
)

const metricDataQuality = "pelotoniq_data_quality_score"

const queryDataQuality = `
SELECT DISTINCT ON (data_source)
       data_source,
       completeness,
       accuracy,
       consistency,
       timeliness,
       validity,
       uniqueness
  FROM data_quality_metrics
 WHERE created_at > now() - make_interval(secs => $1)
 ORDER BY data_source, created_at DESC`

// qualityDimensions are both the result columns and the label values.
var qualityDimensions = []string{
	"completeness", "accuracy", "consistency", "timeliness", "validity", "uniqueness",
}

// DataQuality tracks the latest per-source data quality scores.
type DataQuality struct {
	db     *source.DB
	window time.Duration
}

// NewDataQuality creates the data quality collector.
func NewDataQuality(db *source.DB, window time.Duration) *DataQuality {
	return &DataQuality{db: db, window: window}
}

func (c *DataQuality) Name() string { return "dataquality" }

func (c *DataQuality) Descriptors() []metric.Descriptor {
	return []metric.Descriptor{
		{
			Name:   metricDataQuality,
			Kind:   metric.KindGauge,
			Help:   "Latest data quality scores, by source and quality dimension.",
			Labels: []string{"data_source", "quality_dimension"},
		},
	}
}

func (c *DataQuality) Collect(ctx context.Context) ([]metric.Write, error) {
	rows, err := c.db.Query(ctx, queryDataQuality, c.window.Seconds())
	if err != nil {
		return nil, fmt.Errorf("data quality: %w", err)
	}

	var writes []metric.Write
	for _, row := range rows {
		src := labelOr(row, "data_source", "unknown")
		for _, dim := range qualityDimensions {
			score, err := parseFloat(row, dim)
			if err != nil {
				return nil, fmt.Errorf("data quality: %w", err)
			}
			writes = append(writes, metric.Set(metricDataQuality, score, src, dim))
		}
	}
	return writes, nil
}
