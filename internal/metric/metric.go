package metric

import "errors"

// Kind defines the semantic type of a metric.
type Kind string

const (
	KindCounter Kind = "counter"
	KindGauge   Kind = "gauge"
)

// Registry usage errors. These indicate programmer errors in descriptor
// registration or write construction and are fatal during startup
// registration; they are never expected at runtime.
var (
	ErrDuplicateDescriptor = errors.New("descriptor already registered with a different definition")
	ErrUnknownMetric       = errors.New("metric not registered")
	ErrLabelArity          = errors.New("label values do not match descriptor labels")
	ErrKindMismatch        = errors.New("write operation does not match metric kind")
	ErrNegativeDelta       = errors.New("counter delta must be non-negative")
)

// Descriptor holds immutable metric metadata. Name is process-unique;
// Labels is the ordered label-name schema every sample must match.
type Descriptor struct {
	Name   string
	Kind   Kind
	Help   string
	Labels []string
}

func (d Descriptor) equal(other Descriptor) bool {
	if d.Name != other.Name || d.Kind != other.Kind || d.Help != other.Help {
		return false
	}
	if len(d.Labels) != len(other.Labels) {
		return false
	}
	for i := range d.Labels {
		if d.Labels[i] != other.Labels[i] {
			return false
		}
	}
	return true
}

// Sample is one observed value for a label-value tuple of a metric.
type Sample struct {
	Labels []string
	Value  float64
}

// WriteOp selects how a Write is applied to the registry.
type WriteOp int

const (
	// OpInc adds the value to a counter sample.
	OpInc WriteOp = iota
	// OpSet replaces a gauge sample wholesale.
	OpSet
)

// Write is a single pending registry mutation. Collectors return batches
// of Writes; the registry applies a batch all-or-nothing.
type Write struct {
	Name   string
	Labels []string
	Op     WriteOp
	Value  float64
}

// Inc builds a counter increment write.
func Inc(name string, value float64, labels ...string) Write {
	return Write{Name: name, Labels: labels, Op: OpInc, Value: value}
}

// Set builds a gauge set write.
func Set(name string, value float64, labels ...string) Write {
	return Write{Name: name, Labels: labels, Op: OpSet, Value: value}
}
