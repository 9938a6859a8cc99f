package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelotoniq/metricsd/internal/metric"
	"github.com/pelotoniq/metricsd/internal/source"
)

func TestPerformance_Collect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expr := r.URL.Query().Get("query")
		value := "0.231"
		if strings.Contains(expr, `status=~"5.."`) {
			value = "0.004"
		}
		fmt.Fprintf(w, `{"status":"success","data":{"resultType":"vector","result":[
			{"metric":{"service":"analysis-api"},"value":[1756000000,%q]}]}}`, value)
	}))
	t.Cleanup(srv.Close)

	api, err := source.NewPromAPI(source.PromAPIConfig{BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)

	c := NewPerformance(api, "5m")
	writes, err := c.Collect(context.Background())
	require.NoError(t, err)

	reg := metric.NewRegistry()
	require.NoError(t, RegisterAll(reg, []Collector{c}))
	require.NoError(t, reg.Apply(writes))

	snap := reg.Snapshot()
	assert.Equal(t, 0.231, snap.ValueOrZero("pelotoniq_system_performance", "analysis-api", "p95_latency_seconds"))
	assert.Equal(t, 0.004, snap.ValueOrZero("pelotoniq_system_performance", "analysis-api", "error_rate"))
}

type fakeKV struct {
	fields map[string]string
	err    error
}

func (f *fakeKV) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	cmd := redis.NewMapStringStringCmd(ctx, "hgetall", key)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(f.fields)
	}
	return cmd
}

func (f *fakeKV) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusCmd(ctx, "ping")
}

func (f *fakeKV) Close() error { return nil }

func TestEngagement_Collect(t *testing.T) {
	kv := source.NewKVFromClient(&fakeKV{fields: map[string]string{
		"casual":      "42.5",
		"competitive": "87.1",
	}}, time.Second)

	c := NewEngagement(kv)
	writes, err := c.Collect(context.Background())
	require.NoError(t, err)

	reg := metric.NewRegistry()
	require.NoError(t, RegisterAll(reg, []Collector{c}))
	require.NoError(t, reg.Apply(writes))

	snap := reg.Snapshot()
	assert.Equal(t, 42.5, snap.ValueOrZero("pelotoniq_engagement_score", "casual"))
	assert.Equal(t, 87.1, snap.ValueOrZero("pelotoniq_engagement_score", "competitive"))
}

func TestEngagement_CollectBadScore(t *testing.T) {
	kv := source.NewKVFromClient(&fakeKV{fields: map[string]string{"casual": "high"}}, time.Second)

	writes, err := NewEngagement(kv).Collect(context.Background())
	assert.ErrorIs(t, err, source.ErrQuery)
	assert.Nil(t, writes)
}
