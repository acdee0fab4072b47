package layout

import (
	"errors"
	"fmt"
)

// ErrLayoutNotFound is returned when the requested layout does not exist for the event.
var ErrLayoutNotFound = errors.New("layout not found")

// ErrCancelled marks a fetch that was aborted by navigation or superseded by a newer fetch.
// Callers swallow it instead of reporting it.
var ErrCancelled = errors.New("layout fetch cancelled")

// NetworkError is a failed call to a remote layout source. The user may retry.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsCancelled reports whether err came from an aborted or superseded fetch.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
