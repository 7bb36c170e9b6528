// Package resultstore provides idempotent persistence and retrieval of
// extraction reports by run identifier, plus a "latest" alias that always
// points at the most recently written report.
package resultstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neosense/neosense/pkg/report"
)

// Standard result store error types that all backends use.
var (
	// ErrReportNotFound indicates no report exists for the given run id.
	ErrReportNotFound = errors.New("report not found")

	// ErrReportPending indicates the run is known but has not persisted a
	// report yet. Distinguishable from not-found by design.
	ErrReportPending = errors.New("report not yet persisted")
)

// Record is one durable entry: the report plus write metadata.
type Record struct {
	RunID    string         `json:"run_id"`
	Report   *report.Report `json:"report"`
	StoredAt time.Time      `json:"stored_at"`
}

// Store is the persistence contract. Put is idempotent with last-write-wins
// semantics and atomically repoints the latest alias.
type Store interface {
	Put(ctx context.Context, runID string, rep *report.Report) error
	Get(ctx context.Context, runID string) (*report.Report, error)
	Latest(ctx context.Context) (*report.Report, error)
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// StoreError wraps store failures with operation context.
type StoreError struct {
	Op    string
	RunID string
	Err   error
}

func (e *StoreError) Error() string {
	if e.RunID == "" {
		return fmt.Sprintf("%s operation failed: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s operation failed for run %s: %v", e.Op, e.RunID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsNotFound checks if an error indicates a missing report.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrReportNotFound)
}

// IsPending checks if an error indicates a run that has not persisted yet.
func IsPending(err error) bool {
	return errors.Is(err, ErrReportPending)
}
