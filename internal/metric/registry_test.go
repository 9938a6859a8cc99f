package metric

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptors() (Descriptor, Descriptor) {
	counter := Descriptor{
		Name:   "pelotoniq_user_registrations_total",
		Kind:   KindCounter,
		Help:   "New user registrations observed.",
		Labels: []string{"source", "tier"},
	}
	gauge := Descriptor{
		Name:   "pelotoniq_active_users",
		Kind:   KindGauge,
		Help:   "Currently active users.",
		Labels: []string{"period"},
	}
	return counter, gauge
}

func TestRegistry_Register(t *testing.T) {
	counter, gauge := testDescriptors()

	tests := map[string]struct {
		second  Descriptor
		wantErr error
	}{
		"identical re-registration is a no-op": {
			second: counter,
		},
		"same name different kind conflicts": {
			second:  Descriptor{Name: counter.Name, Kind: KindGauge, Help: counter.Help, Labels: counter.Labels},
			wantErr: ErrDuplicateDescriptor,
		},
		"same name different labels conflicts": {
			second:  Descriptor{Name: counter.Name, Kind: KindCounter, Help: counter.Help, Labels: []string{"source"}},
			wantErr: ErrDuplicateDescriptor,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			reg := NewRegistry()
			require.NoError(t, reg.Register(counter))
			require.NoError(t, reg.Register(gauge))

			err := reg.Register(test.second)
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistry_SetGauge(t *testing.T) {
	counter, gauge := testDescriptors()
	reg := NewRegistry()
	reg.MustRegister(counter, gauge)

	require.NoError(t, reg.SetGauge(gauge.Name, []string{"daily"}, 120))
	require.NoError(t, reg.SetGauge(gauge.Name, []string{"daily"}, 95))
	require.NoError(t, reg.SetGauge(gauge.Name, []string{"weekly"}, 400))

	snap := reg.Snapshot()
	assert.Equal(t, 95.0, snap.ValueOrZero(gauge.Name, "daily"))
	assert.Equal(t, 400.0, snap.ValueOrZero(gauge.Name, "weekly"))
}

func TestRegistry_IncCounter(t *testing.T) {
	counter, gauge := testDescriptors()
	reg := NewRegistry()
	reg.MustRegister(counter, gauge)

	for _, delta := range []float64{1, 4, 2.5} {
		require.NoError(t, reg.IncCounter(counter.Name, []string{"web", "pro"}, delta))
	}

	snap := reg.Snapshot()
	assert.Equal(t, 7.5, snap.ValueOrZero(counter.Name, "web", "pro"))
}

func TestRegistry_writeErrors(t *testing.T) {
	counter, gauge := testDescriptors()

	tests := map[string]struct {
		write   Write
		wantErr error
	}{
		"unknown metric": {
			write:   Set("pelotoniq_nonexistent", 1),
			wantErr: ErrUnknownMetric,
		},
		"label arity mismatch": {
			write:   Set(gauge.Name, 1, "daily", "extra"),
			wantErr: ErrLabelArity,
		},
		"set on counter": {
			write:   Set(counter.Name, 1, "web", "pro"),
			wantErr: ErrKindMismatch,
		},
		"increment on gauge": {
			write:   Inc(gauge.Name, 1, "daily"),
			wantErr: ErrKindMismatch,
		},
		"negative counter delta": {
			write:   Inc(counter.Name, -1, "web", "pro"),
			wantErr: ErrNegativeDelta,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			reg := NewRegistry()
			reg.MustRegister(counter, gauge)

			assert.ErrorIs(t, reg.Apply([]Write{test.write}), test.wantErr)
		})
	}
}

func TestRegistry_ApplyAllOrNothing(t *testing.T) {
	counter, gauge := testDescriptors()
	reg := NewRegistry()
	reg.MustRegister(counter, gauge)

	require.NoError(t, reg.SetGauge(gauge.Name, []string{"daily"}, 50))

	batch := []Write{
		Set(gauge.Name, 75, "daily"),
		Inc(counter.Name, 3, "web", "pro"),
		Set("pelotoniq_nonexistent", 1),
	}
	require.ErrorIs(t, reg.Apply(batch), ErrUnknownMetric)

	// The invalid batch must not have touched any sample.
	snap := reg.Snapshot()
	assert.Equal(t, 50.0, snap.ValueOrZero(gauge.Name, "daily"))
	assert.Equal(t, 0.0, snap.ValueOrZero(counter.Name, "web", "pro"))
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	counter, gauge := testDescriptors()
	reg := NewRegistry()
	reg.MustRegister(counter, gauge)

	require.NoError(t, reg.SetGauge(gauge.Name, []string{"daily"}, 10))

	snap := reg.Snapshot()
	require.NoError(t, reg.SetGauge(gauge.Name, []string{"daily"}, 20))

	assert.Equal(t, 10.0, snap.ValueOrZero(gauge.Name, "daily"))
	assert.Equal(t, 20.0, reg.Snapshot().ValueOrZero(gauge.Name, "daily"))
}

func TestRegistry_ConcurrentReaders(t *testing.T) {
	counter, gauge := testDescriptors()
	reg := NewRegistry()
	reg.MustRegister(counter, gauge)

	var wg sync.WaitGroup
	wg.Go(func() {
		for i := range 1000 {
			_ = reg.SetGauge(gauge.Name, []string{"daily"}, float64(i))
			_ = reg.IncCounter(counter.Name, []string{"web", "pro"}, 1)
		}
	})
	for range 4 {
		wg.Go(func() {
			for range 1000 {
				snap := reg.Snapshot()
				_ = snap.ValueOrZero(gauge.Name, "daily")
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 1000.0, reg.Snapshot().ValueOrZero(counter.Name, "web", "pro"))
}

func TestSnapshot_ValueAbsent(t *testing.T) {
	_, gauge := testDescriptors()
	reg := NewRegistry()
	reg.MustRegister(gauge)

	v, ok := reg.Snapshot().Value(gauge.Name, "daily")
	assert.False(t, ok)
	assert.Zero(t, v)
}
