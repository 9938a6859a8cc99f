package collector

import (
	"context"
	"fmt"

	"github.com/pelotoniq/metricsd/internal/metric"
	"github.com/pelotoniq/metricsd/internal/source"
)

const metricEngagement = "pelotoniq_engagement_score"

// engagementKey is the hash the analytics pipeline keeps its
// pre-aggregated per-segment scores in.
const engagementKey = "engagement:scores"

// Engagement reads cached per-segment engagement scores from the fast
// key-value store.
type Engagement struct {
	kv *source.KV
}

// NewEngagement creates the engagement score collector.
func NewEngagement(kv *source.KV) *Engagement {
	return &Engagement{kv: kv}
}

func (c *Engagement) Name() string { return "engagement" }

func (c *Engagement) Descriptors() []metric.Descriptor {
	return []metric.Descriptor{
		{
			Name:   metricEngagement,
			Kind:   metric.KindGauge,
			Help:   "Cached engagement score per user segment.",
			Labels: []string{"segment"},
		},
	}
}

func (c *Engagement) Collect(ctx context.Context) ([]metric.Write, error) {
	scores, err := c.kv.HGetAllFloat(ctx, engagementKey)
	if err != nil {
		return nil, fmt.Errorf("engagement scores: %w", err)
	}

	writes := make([]metric.Write, 0, len(scores))
	for segment, score := range scores {
		writes = append(writes, metric.Set(metricEngagement, score, segment))
	}
	return writes, nil
}
