package relay

import (
	"errors"
	"fmt"
)

// Sentinel errors for failure classification.
var (
	// ErrTimeout marks an endpoint attempt that lost the race against its timer.
	ErrTimeout = errors.New("rpc attempt timed out")

	// ErrRateLimited marks an endpoint that answered 401/403/429.
	ErrRateLimited = errors.New("rpc endpoint rate limited or unauthorized")

	// ErrNoEndpoints is returned when the relay has no endpoints configured.
	ErrNoEndpoints = errors.New("no rpc endpoints configured")
)

// ExhaustedError is raised when every endpoint in the rotation failed.
// It carries the last observed failure.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d rpc endpoints exhausted: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// IsExhausted reports whether err is an endpoint-exhaustion failure.
func IsExhausted(err error) bool {
	var ex *ExhaustedError
	return errors.As(err, &ex)
}
