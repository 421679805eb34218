package statement

import (
	"errors"
	"fmt"
)

// ErrCustomerNotFound means the customer id did not resolve. The run aborts
// before any source fetch.
var ErrCustomerNotFound = errors.New("customer not found")

// UpstreamError wraps a failed critical fetch. Non-critical fetch failures
// are recovered locally and never surface as errors.
type UpstreamError struct {
	Source string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream source %s failed: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
