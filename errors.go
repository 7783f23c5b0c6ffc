package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrDeclined is returned by Send when the target no longer accepts items.
	ErrDeclined = errors.New("item declined")
	// ErrInvalidBranchCount is returned when a join is built with fewer than two branches.
	ErrInvalidBranchCount = errors.New("invalid branch count")
	// ErrDuplicateKey is returned by a keyed join lane receiving a key it already holds.
	ErrDuplicateKey = errors.New("duplicate correlation key")
	// ErrPanic wraps a value recovered from a panicking stage function.
	ErrPanic = errors.New("stage panicked")
	// ErrFaulted is the fault recorded when Fault is called with a nil error.
	ErrFaulted = errors.New("stage faulted")
)

// StageError tags a fault with the name of the stage that raised it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageError(name string, err error) error {
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: name, Err: err}
}

func branchCountError(n int) error {
	return fmt.Errorf("%w: need at least 2 branches, got %d", ErrInvalidBranchCount, n)
}
