package estimator

import (
	"errors"
	"fmt"
)

// ErrIdentityMissing is returned when an action has no product or variant id to act on.
var ErrIdentityMissing = errors.New("estimator: no product or variant id")

// ErrModalUnavailable is returned by ModalCoordinator.Open when the page has no modal.
var ErrModalUnavailable = errors.New("estimator: no modal available")

// LoadFailure reports a module that could not be fetched or registered.
type LoadFailure struct {
	URL   string
	Cause error
}

func (e *LoadFailure) Error() string {
	return fmt.Sprintf("estimator: load module %s: %v", e.URL, e.Cause)
}

func (e *LoadFailure) Unwrap() error { return e.Cause }

// NetworkFailure reports a failed estimator request. Message carries the server's message when
// the request reached the server and was rejected.
type NetworkFailure struct {
	Op      string
	Message string
	Cause   error
}

func (e *NetworkFailure) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("estimator: %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("estimator: %s: %v", e.Op, e.Cause)
}

func (e *NetworkFailure) Unwrap() error { return e.Cause }
