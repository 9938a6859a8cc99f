package metric

import (
	"fmt"
	"strings"
	"sync"
)

// Registry is the process-wide store of counter and gauge samples.
//
// The collection scheduler is the only writer; the HTTP server reads via
// Snapshot. Counters reset at process restart; durability is a non-goal.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	descs   map[string]Descriptor
	samples map[string]map[string]Sample
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		descs:   make(map[string]Descriptor),
		samples: make(map[string]map[string]Sample),
	}
}

// Register adds a descriptor. Re-registering an identical descriptor is a
// no-op; a conflicting definition fails with ErrDuplicateDescriptor.
func (r *Registry) Register(d Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.descs[d.Name]; ok {
		if existing.equal(d) {
			return nil
		}
		return fmt.Errorf("register %q: %w", d.Name, ErrDuplicateDescriptor)
	}

	r.descs[d.Name] = d
	r.order = append(r.order, d.Name)
	r.samples[d.Name] = make(map[string]Sample)
	return nil
}

// MustRegister registers descriptors and panics on conflict. Intended for
// static startup registration only.
func (r *Registry) MustRegister(descs ...Descriptor) {
	for _, d := range descs {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// IncCounter adds delta to the counter sample for the label tuple,
// creating it at zero first if absent.
func (r *Registry) IncCounter(name string, labels []string, delta float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyLocked(Write{Name: name, Labels: labels, Op: OpInc, Value: delta})
}

// SetGauge replaces the gauge sample for the label tuple.
func (r *Registry) SetGauge(name string, labels []string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applyLocked(Write{Name: name, Labels: labels, Op: OpSet, Value: value})
}

// Apply validates the whole batch, then applies it under a single lock.
// If any write is invalid, no write from the batch is applied.
func (r *Registry) Apply(writes []Write) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, w := range writes {
		if err := r.validateLocked(w); err != nil {
			return err
		}
	}
	for _, w := range writes {
		// Validated above; applyLocked cannot fail here.
		_ = r.applyLocked(w)
	}
	return nil
}

func (r *Registry) validateLocked(w Write) error {
	d, ok := r.descs[w.Name]
	if !ok {
		return fmt.Errorf("write %q: %w", w.Name, ErrUnknownMetric)
	}
	if len(w.Labels) != len(d.Labels) {
		return fmt.Errorf("write %q: got %d label values, descriptor has %d: %w",
			w.Name, len(w.Labels), len(d.Labels), ErrLabelArity)
	}
	if w.Op == OpInc {
		if d.Kind != KindCounter {
			return fmt.Errorf("write %q: increment on %s: %w", w.Name, d.Kind, ErrKindMismatch)
		}
		if w.Value < 0 {
			return fmt.Errorf("write %q: delta %v: %w", w.Name, w.Value, ErrNegativeDelta)
		}
	} else if d.Kind != KindGauge {
		return fmt.Errorf("write %q: set on %s: %w", w.Name, d.Kind, ErrKindMismatch)
	}
	return nil
}

func (r *Registry) applyLocked(w Write) error {
	if err := r.validateLocked(w); err != nil {
		return err
	}

	key := labelKey(w.Labels)
	series := r.samples[w.Name]

	s, ok := series[key]
	if !ok {
		s = Sample{Labels: append([]string(nil), w.Labels...)}
	}
	switch w.Op {
	case OpInc:
		s.Value += w.Value
	case OpSet:
		s.Value = w.Value
	}
	series[key] = s
	return nil
}

// labelKey joins label values into a map key. \xff does not occur in
// label values coming from SQL/Redis/PromQL results.
func labelKey(labels []string) string {
	return strings.Join(labels, "\xff")
}

// Snapshot is an immutable copy of registry state, safe to read while
// collection continues.
type Snapshot struct {
	Descriptors []Descriptor
	Samples     map[string][]Sample
}

// Snapshot copies all descriptors (in registration order) and samples.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		Descriptors: make([]Descriptor, 0, len(r.order)),
		Samples:     make(map[string][]Sample, len(r.order)),
	}
	for _, name := range r.order {
		snap.Descriptors = append(snap.Descriptors, r.descs[name])
		series := r.samples[name]
		samples := make([]Sample, 0, len(series))
		for _, s := range series {
			samples = append(samples, Sample{
				Labels: append([]string(nil), s.Labels...),
				Value:  s.Value,
			})
		}
		snap.Samples[name] = samples
	}
	return snap
}

// Value returns the sample value for a label tuple, or 0,false if the
// metric or tuple has no sample yet.
func (s Snapshot) Value(name string, labels ...string) (float64, bool) {
	key := labelKey(labels)
	for _, sample := range s.Samples[name] {
		if labelKey(sample.Labels) == key {
			return sample.Value, true
		}
	}
	return 0, false
}

// ValueOrZero is Value with absent samples reported as 0.
func (s Snapshot) ValueOrZero(name string, labels ...string) float64 {
	v, _ := s.Value(name, labels...)
	return v
}
