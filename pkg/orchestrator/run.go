package orchestrator

import (
	"sync"
	"time"
)

// State is the lifecycle stage of an extraction run.
type State string

const (
	StatePending             State = "PENDING"
	StateCredentialsResolved State = "CREDENTIALS_RESOLVED"
	StatePreflightOK         State = "PREFLIGHT_OK"
	StateFetching            State = "FETCHING"
	StateAggregated          State = "AGGREGATED"
	StatePersisted           State = "PERSISTED"
	StatePreflightFailed     State = "PREFLIGHT_FAILED"
)

// terminal reports whether no further transitions happen from this state.
func (s State) terminal() bool {
	return s == StatePersisted || s == StatePreflightFailed
}

// Run tracks one extraction run in flight. Partial is set when the run
// completed with at least one failed operation.
type Run struct {
	ID          string     `json:"id"`
	State       State      `json:"state"`
	Partial     bool       `json:"partial"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// runRegistry keeps in-flight and recently finished runs in memory so
// lookups can distinguish a pending run from an unknown one.
type runRegistry struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: make(map[string]*Run)}
}

func (r *runRegistry) begin(runID string) *Run {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := &Run{ID: runID, State: StatePending, StartedAt: time.Now().UTC()}
	r.runs[runID] = run

	return run
}

func (r *runRegistry) transition(runID string, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[runID]
	if !ok || run.State.terminal() {
		return
	}

	run.State = state

	if state.terminal() {
		now := time.Now().UTC()
		run.CompletedAt = &now
	}
}

func (r *runRegistry) markPartial(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run, ok := r.runs[runID]; ok {
		run.Partial = true
	}
}

func (r *runRegistry) setError(runID, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run, ok := r.runs[runID]; ok {
		run.Error = message
	}
}

func (r *runRegistry) get(runID string) (Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[runID]
	if !ok {
		return Run{}, false
	}

	return *run, true
}
