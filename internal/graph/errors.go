package graph

import (
	"errors"
	"fmt"
)

// ErrPending is the outcome of a query that cannot finish until the tasks
// it accumulated have been executed and their results written.
var ErrPending = errors.New("pending")

// ErrCycle is returned when a query calls itself, directly or not, with the
// same key.
var ErrCycle = errors.New("query cycle")

// IsPending reports whether err is the pending outcome.
func IsPending(err error) bool { return errors.Is(err, ErrPending) }

// ResolutionError records that resolving a dependency of a query failed.
// Resolution errors are written into the graph like any other result, so
// every query reading them sees the same failure until the input changes.
type ResolutionError struct {
	// Subject names what was being resolved, e.g. "binary node" or "root /src".
	Subject string
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving %s: %v", e.Subject, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
