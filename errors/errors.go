package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrAccessDenied covers both "not a participant" and "conversation does
	// not exist yet": the storage layer keeps the two indistinguishable on
	// purpose, so callers must apply the benign-not-found heuristic instead
	// of assuming a genuine permission failure.
	ErrAccessDenied = fmt.Errorf("access denied")

	ErrEmptyContent     = fmt.Errorf("message content is empty")
	ErrHubChannelFull   = fmt.Errorf("hub event channel full")
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrSubscriberClosed = fmt.Errorf("subscriber closed")
)

// IsAccessDenied classifies an error chain as the access-denied class.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}
