package orchestrator

import (
	"errors"
	"fmt"
)

// Standard orchestrator error types.
var (
	// ErrPreflightFailed indicates the gating connectivity check exhausted
	// its attempts. No metadata operations run after this.
	ErrPreflightFailed = errors.New("preflight connectivity check failed")

	// ErrRunNotFound indicates no run with the given id is known.
	ErrRunNotFound = errors.New("run not found")
)

// OperationError wraps the final failure of one metadata operation after
// all retry attempts were consumed.
type OperationError struct {
	Name     string
	Attempts int
	Err      error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %s failed after %d attempts: %v", e.Name, e.Attempts, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// PreflightError wraps the gating check failure with attempt context.
type PreflightError struct {
	Attempts int
	Err      error
}

func (e *PreflightError) Error() string {
	return fmt.Sprintf("preflight connectivity check failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *PreflightError) Unwrap() error {
	return e.Err
}

func (e *PreflightError) Is(target error) bool {
	return target == ErrPreflightFailed || errors.Is(e.Err, target)
}

// IsPreflightFailed checks if an error came from the gating check.
func IsPreflightFailed(err error) bool {
	return errors.Is(err, ErrPreflightFailed)
}
