package metric

import (
	"bytes"
	"testing"

	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// triple identifies one exposed sample independent of wire format.
type triple struct {
	name   string
	labels string
	value  float64
}

func TestBridge_ExpositionRoundTrip(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(
		Descriptor{
			Name:   "pelotoniq_revenue",
			Kind:   KindGauge,
			Help:   "Revenue by period and type.",
			Labels: []string{"period", "revenue_type"},
		},
		Descriptor{
			Name:   "pelotoniq_analyses_completed_total",
			Kind:   KindCounter,
			Help:   "Completed analyses.",
			Labels: []string{"analysis_type", "status"},
		},
	)

	require.NoError(t, reg.Apply([]Write{
		Set("pelotoniq_revenue", 1234.5, "daily", "total"),
		Set("pelotoniq_revenue", 98000, "monthly", "subscription"),
		// Label values needing escaping must survive the text format.
		Inc("pelotoniq_analyses_completed_total", 7, `stage "queen"`, "completed"),
		Inc("pelotoniq_analyses_completed_total", 2, "climb\nprofile", `with\backslash`),
	}))

	families, err := NewBridge(reg).Gatherer().Gather()
	require.NoError(t, err)

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		require.NoError(t, enc.Encode(mf))
	}

	parser := expfmt.NewTextParser(model.UTF8Validation)
	parsed, err := parser.TextToMetricFamilies(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	got := make(map[triple]bool)
	for name, mf := range parsed {
		for _, m := range mf.GetMetric() {
			labels := ""
			for _, lp := range m.GetLabel() {
				labels += lp.GetName() + "=" + lp.GetValue() + ";"
			}
			var value float64
			switch {
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			}
			got[triple{name: name, labels: labels, value: value}] = true
		}
	}

	want := map[triple]bool{
		{"pelotoniq_revenue", "period=daily;revenue_type=total;", 1234.5}:         true,
		{"pelotoniq_revenue", "period=monthly;revenue_type=subscription;", 98000}: true,
		{"pelotoniq_analyses_completed_total", "analysis_type=stage \"queen\";status=completed;", 7}: true,
		{"pelotoniq_analyses_completed_total", "analysis_type=climb\nprofile;status=with\\backslash;", 2}: true,
	}
	assert.Equal(t, want, got)
}

func TestBridge_EmptyRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(Descriptor{
		Name: "pelotoniq_analysis_queue_depth",
		Kind: KindGauge,
		Help: "Queued analyses.",
	})

	// Descriptors without samples are simply omitted from exposition.
	families, err := NewBridge(reg).Gatherer().Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}
