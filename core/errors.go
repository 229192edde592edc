package core

import (
	"errors"
	"fmt"
)

// Sentinels for the fatal contract violations a Simulation can hit. Each is
// wrapped in a FatalError and delivered via panic: these are invariant
// breaks in the driving code, not recoverable simulation anomalies (compare
// to the undelivered-event warning logged by dispatch, which never panics).
var (
	ErrNegativeDelay      = errors.New("event scheduled with a negative delay")
	ErrDuplicatePromise   = errors.New("an equivalent await is already registered for this key")
	ErrUnknownComponent   = errors.New("component id is not registered")
	ErrDuplicateKeyGetter = errors.New("a key getter is already registered for this payload type")
	ErrReadyQueueFull     = errors.New("ready queue exceeded its bound")
)

// FatalError wraps one of the sentinels above with the extra context that
// made the violation reproducible.
type FatalError struct {
	Err     error
	Context string
}

func (e *FatalError) Error() string {
	if e.Context == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Context)
}

func (e *FatalError) Unwrap() error { return e.Err }

func fatalf(err error, format string, args ...any) {
	panic(&FatalError{Err: err, Context: fmt.Sprintf(format, args...)})
}
