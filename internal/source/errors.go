package source

import (
	"context"
	"errors"
	"net"
)

// Source error taxonomy. Collectors wrap these; the scheduler only logs
// them, so the distinction matters for operators reading round logs.
var (
	// ErrUnavailable marks transient connectivity or timeout failures.
	// The next scheduled round is the retry.
	ErrUnavailable = errors.New("source unavailable")

	// ErrQuery marks malformed queries or unexpected response shapes.
	ErrQuery = errors.New("source query error")
)

// classify maps a driver/transport error onto the taxonomy. Context
// cancellation and network-level failures are transient; anything else
// means the query or the response was wrong.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &netErr):
		return errors.Join(ErrUnavailable, err)
	default:
		return errors.Join(ErrQuery, err)
	}
}
