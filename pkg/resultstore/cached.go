package resultstore

import (
	"context"
	"sync"

	"github.com/neosense/neosense/pkg/report"
)

// CachedStore layers an in-memory read cache over a durable store. The cache
// is written before the durable backend, so a report is readable through this
// store as soon as Put is called even if the backend write later fails.
type CachedStore struct {
	mu       sync.RWMutex
	reports  map[string]*report.Report
	latestID string
	next     Store
}

// NewCachedStore wraps a durable store with an in-memory cache.
func NewCachedStore(next Store) *CachedStore {
	return &CachedStore{
		reports: make(map[string]*report.Report),
		next:    next,
	}
}

func (s *CachedStore) Put(ctx context.Context, runID string, rep *report.Report) error {
	s.mu.Lock()
	s.reports[runID] = rep
	s.latestID = runID
	s.mu.Unlock()

	return s.next.Put(ctx, runID, rep)
}

// Get resolves a report through the chained lookup: cache, durable store by
// id, then the durable latest alias. Only a by-id hit is backfilled into the
// cache, so a fallback result is never cached under the missed id.
func (s *CachedStore) Get(ctx context.Context, runID string) (*report.Report, error) {
	s.mu.RLock()
	rep, ok := s.reports[runID]
	s.mu.RUnlock()

	if ok {
		return rep, nil
	}

	rep, err := s.next.Get(ctx, runID)
	if err != nil {
		if IsNotFound(err) {
			return s.Latest(ctx)
		}

		return nil, err
	}

	s.mu.Lock()
	s.reports[runID] = rep
	s.mu.Unlock()

	return rep, nil
}

func (s *CachedStore) Latest(ctx context.Context) (*report.Report, error) {
	s.mu.RLock()
	rep, ok := s.reports[s.latestID]
	s.mu.RUnlock()

	if ok {
		return rep, nil
	}

	return s.next.Latest(ctx)
}

func (s *CachedStore) HealthCheck(ctx context.Context) error {
	return s.next.HealthCheck(ctx)
}

func (s *CachedStore) Close(ctx context.Context) error {
	return s.next.Close(ctx)
}
