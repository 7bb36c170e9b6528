package orchestrator_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/neosense/neosense/pkg/catalog"
	"github.com/neosense/neosense/pkg/credentials"
	"github.com/neosense/neosense/pkg/graph"
	"github.com/neosense/neosense/pkg/orchestrator"
	"github.com/neosense/neosense/pkg/report"
	"github.com/neosense/neosense/pkg/resultstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	connectErr error
	verifyErr  error
}

func (c *fakeClient) Connect(ctx context.Context) error {
	return c.connectErr
}

func (c *fakeClient) VerifyConnectivity(ctx context.Context) error {
	return c.verifyErr
}

func (c *fakeClient) RunQuery(ctx context.Context, query string, params map[string]any) ([]graph.Row, error) {
	return nil, nil
}

func (c *fakeClient) Close(ctx context.Context) error {
	return nil
}

func fakeDialer(client graph.Client) graph.Dialer {
	return func(creds credentials.Credentials) (graph.Client, error) {
		return client, nil
	}
}

type memoryStore struct {
	mu       sync.Mutex
	reports  map[string]*report.Report
	latestID string
	putErr   error
	puts     int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{reports: make(map[string]*report.Report)}
}

func (s *memoryStore) Put(ctx context.Context, runID string, rep *report.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.puts++
	if s.putErr != nil {
		return s.putErr
	}

	s.reports[runID] = rep
	s.latestID = runID

	return nil
}

func (s *memoryStore) Get(ctx context.Context, runID string) (*report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rep, ok := s.reports[runID]
	if !ok {
		return nil, &resultstore.StoreError{Op: "get", RunID: runID, Err: resultstore.ErrReportNotFound}
	}

	return rep, nil
}

func (s *memoryStore) Latest(ctx context.Context) (*report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rep, ok := s.reports[s.latestID]
	if !ok {
		return nil, &resultstore.StoreError{Op: "latest", Err: resultstore.ErrReportNotFound}
	}

	return rep, nil
}

func (s *memoryStore) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *memoryStore) Close(ctx context.Context) error {
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func quickPolicy(attempts int) catalog.RetryPolicy {
	return catalog.RetryPolicy{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2,
	}
}

func operation(name string, fetch catalog.Fetch) catalog.Operation {
	return catalog.Operation{
		Name:    name,
		Timeout: time.Second,
		Retry:   quickPolicy(3),
		Fetch:   fetch,
	}
}

func quickPreflight() *catalog.Operation {
	op := catalog.Operation{
		Name:    "preflight_check",
		Timeout: time.Second,
		Retry:   quickPolicy(5),
		Fetch: func(ctx context.Context, client graph.Client) (any, error) {
			return nil, client.VerifyConnectivity(ctx)
		},
	}

	return &op
}

func defaultCreds() credentials.Credentials {
	return credentials.Credentials{
		Endpoint: "bolt://localhost:7687",
		Username: "neo4j",
		Secret:   "password",
	}
}

func TestExecute(t *testing.T) {
	t.Parallel()

	t.Run("successful run persists and completes", func(t *testing.T) {
		t.Parallel()

		store := newMemoryStore()
		orch := orchestrator.New(testLogger(), orchestrator.Options{
			Dialer:    fakeDialer(&fakeClient{}),
			Store:     store,
			Defaults:  defaultCreds(),
			Preflight: quickPreflight(),
			Operations: []catalog.Operation{
				operation("node_labels", func(ctx context.Context, client graph.Client) (any, error) {
					return []string{"Customer"}, nil
				}),
				operation("relationship_types", func(ctx context.Context, client graph.Client) (any, error) {
					return []string{"PLACED"}, nil
				}),
			},
		})

		rep, err := orch.Execute(context.Background(), "run-1", nil)
		require.NoError(t, err)
		require.NotNil(t, rep)
		assert.Empty(t, rep.FailedOperations)
		assert.Equal(t, []string{"Customer"}, rep.SchemaInformation.NodeLabels)

		run, err := orch.Status("run-1")
		require.NoError(t, err)
		assert.Equal(t, orchestrator.StatePersisted, run.State)
		assert.False(t, run.Partial)
		require.NotNil(t, run.CompletedAt)

		stored, err := store.Get(context.Background(), "run-1")
		require.NoError(t, err)
		assert.Equal(t, rep, stored)
	})

	t.Run("failed operations are isolated", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		orch := orchestrator.New(testLogger(), orchestrator.Options{
			Dialer:    fakeDialer(&fakeClient{}),
			Store:     newMemoryStore(),
			Defaults:  defaultCreds(),
			Preflight: quickPreflight(),
			Operations: []catalog.Operation{
				operation("node_labels", func(ctx context.Context, client graph.Client) (any, error) {
					return []string{"Customer", "Order"}, nil
				}),
				operation("relationship_types", func(ctx context.Context, client graph.Client) (any, error) {
					return nil, boom
				}),
				operation("schema_details", func(ctx context.Context, client graph.Client) (any, error) {
					return report.SchemaDetails{}, nil
				}),
			},
		})

		rep, err := orch.Execute(context.Background(), "run-2", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"relationship_types"}, rep.FailedOperations)
		assert.Equal(t, []string{"Customer", "Order"}, rep.SchemaInformation.NodeLabels)

		run, err := orch.Status("run-2")
		require.NoError(t, err)
		assert.True(t, run.Partial)
		assert.Equal(t, orchestrator.StatePersisted, run.State)
	})

	t.Run("outcomes keep positional order under varied completion order", func(t *testing.T) {
		t.Parallel()

		slow := operation("slow", func(ctx context.Context, client graph.Client) (any, error) {
			time.Sleep(50 * time.Millisecond)

			return []string{"Slow"}, nil
		})
		fast := operation("fast", func(ctx context.Context, client graph.Client) (any, error) {
			return []string{"Fast"}, nil
		})

		orch := orchestrator.New(testLogger(), orchestrator.Options{
			Dialer:     fakeDialer(&fakeClient{}),
			Store:      newMemoryStore(),
			Defaults:   defaultCreds(),
			Preflight:  quickPreflight(),
			Operations: []catalog.Operation{slow, fast},
		})

		rep, err := orch.Execute(context.Background(), "run-3", nil)
		require.NoError(t, err)

		// Slot 0 is node_labels regardless of which operation finished first.
		assert.Equal(t, []string{"Slow"}, rep.SchemaInformation.NodeLabels)
		assert.Equal(t, []string{"Fast"}, rep.SchemaInformation.RelationshipTypes)
	})

	t.Run("retries until success within budget", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex

		calls := 0
		flaky := operation("node_labels", func(ctx context.Context, client graph.Client) (any, error) {
			mu.Lock()
			defer mu.Unlock()

			calls++
			if calls < 3 {
				return nil, errors.New("transient")
			}

			return []string{"Customer"}, nil
		})

		orch := orchestrator.New(testLogger(), orchestrator.Options{
			Dialer:     fakeDialer(&fakeClient{}),
			Store:      newMemoryStore(),
			Defaults:   defaultCreds(),
			Preflight:  quickPreflight(),
			Operations: []catalog.Operation{flaky},
		})

		rep, err := orch.Execute(context.Background(), "run-4", nil)
		require.NoError(t, err)
		assert.Empty(t, rep.FailedOperations)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhausted retries surface an operation error", func(t *testing.T) {
		t.Parallel()

		calls := 0

		var mu sync.Mutex

		failing := operation("node_labels", func(ctx context.Context, client graph.Client) (any, error) {
			mu.Lock()
			defer mu.Unlock()

			calls++

			return nil, errors.New("down")
		})

		orch := orchestrator.New(testLogger(), orchestrator.Options{
			Dialer:     fakeDialer(&fakeClient{}),
			Store:      newMemoryStore(),
			Defaults:   defaultCreds(),
			Preflight:  quickPreflight(),
			Operations: []catalog.Operation{failing},
		})

		rep, err := orch.Execute(context.Background(), "run-5", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"node_labels"}, rep.FailedOperations)
		assert.Equal(t, 3, calls)
	})

	t.Run("preflight exhaustion skips the fan-out", func(t *testing.T) {
		t.Parallel()

		fanOutRan := false
		store := newMemoryStore()
		orch := orchestrator.New(testLogger(), orchestrator.Options{
			Dialer:    fakeDialer(&fakeClient{verifyErr: errors.New("unreachable")}),
			Store:     store,
			Defaults:  defaultCreds(),
			Preflight: quickPreflight(),
			Operations: []catalog.Operation{
				operation("node_labels", func(ctx context.Context, client graph.Client) (any, error) {
					fanOutRan = true

					return []string{"Customer"}, nil
				}),
			},
		})

		rep, err := orch.Execute(context.Background(), "run-6", nil)
		require.Error(t, err)
		assert.True(t, orchestrator.IsPreflightFailed(err))
		assert.False(t, fanOutRan)

		require.NotNil(t, rep)
		assert.Contains(t, rep.SchemaInformation.Error, "Failed to connect")

		run, statusErr := orch.Status("run-6")
		require.NoError(t, statusErr)
		assert.Equal(t, orchestrator.StatePreflightFailed, run.State)

		// The error-shaped report is persisted and queryable.
		stored, getErr := store.Get(context.Background(), "run-6")
		require.NoError(t, getErr)
		assert.NotEmpty(t, stored.QualityMetrics.Error)
	})

	t.Run("credential failure ends the run before dialing", func(t *testing.T) {
		t.Parallel()

		store := newMemoryStore()
		orch := orchestrator.New(testLogger(), orchestrator.Options{
			Dialer: func(creds credentials.Credentials) (graph.Client, error) {
				t.Error("dialer must not be called without credentials")

				return nil, errors.New("unexpected")
			},
			Store:      store,
			Defaults:   credentials.Credentials{},
			Preflight:  quickPreflight(),
			Operations: []catalog.Operation{},
		})

		rep, err := orch.Execute(context.Background(), "run-7", nil)
		require.Error(t, err)
		assert.True(t, credentials.IsCredentialError(err))
		require.NotNil(t, rep)
		assert.Contains(t, rep.SchemaInformation.Error, "Credential resolution failed")
	})

	t.Run("graph connection is dialed once and reused across runs", func(t *testing.T) {
		t.Parallel()

		dials := 0
		orch := orchestrator.New(testLogger(), orchestrator.Options{
			Dialer: func(creds credentials.Credentials) (graph.Client, error) {
				dials++

				return &fakeClient{}, nil
			},
			Store:     newMemoryStore(),
			Defaults:  defaultCreds(),
			Preflight: quickPreflight(),
			Operations: []catalog.Operation{
				operation("node_labels", func(ctx context.Context, client graph.Client) (any, error) {
					return []string{"Customer"}, nil
				}),
			},
		})

		_, err := orch.Execute(context.Background(), "run-11", nil)
		require.NoError(t, err)

		_, err = orch.Execute(context.Background(), "run-12", nil)
		require.NoError(t, err)

		assert.Equal(t, 1, dials)
	})

	t.Run("persistence failure does not fail the run", func(t *testing.T) {
		t.Parallel()

		store := newMemoryStore()
		store.putErr = errors.New("disk full")

		orch := orchestrator.New(testLogger(), orchestrator.Options{
			Dialer:    fakeDialer(&fakeClient{}),
			Store:     store,
			Defaults:  defaultCreds(),
			Preflight: quickPreflight(),
			Operations: []catalog.Operation{
				operation("node_labels", func(ctx context.Context, client graph.Client) (any, error) {
					return []string{"Customer"}, nil
				}),
			},
		})

		rep, err := orch.Execute(context.Background(), "run-8", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"Customer"}, rep.SchemaInformation.NodeLabels)

		run, statusErr := orch.Status("run-8")
		require.NoError(t, statusErr)
		assert.Equal(t, orchestrator.StateAggregated, run.State)
	})
}

func TestLookup(t *testing.T) {
	t.Parallel()

	t.Run("unknown run reports not found", func(t *testing.T) {
		t.Parallel()

		orch := orchestrator.New(testLogger(), orchestrator.Options{
			Dialer:   fakeDialer(&fakeClient{}),
			Store:    newMemoryStore(),
			Defaults: defaultCreds(),
		})

		_, err := orch.Lookup(context.Background(), "nope")
		require.Error(t, err)
		assert.True(t, resultstore.IsNotFound(err))
		assert.False(t, resultstore.IsPending(err))
	})

	t.Run("in-flight run reports pending", func(t *testing.T) {
		t.Parallel()

		started := make(chan struct{})
		release := make(chan struct{})

		orch := orchestrator.New(testLogger(), orchestrator.Options{
			Dialer:    fakeDialer(&fakeClient{}),
			Store:     newMemoryStore(),
			Defaults:  defaultCreds(),
			Preflight: quickPreflight(),
			Operations: []catalog.Operation{
				operation("node_labels", func(ctx context.Context, client graph.Client) (any, error) {
					close(started)
					<-release

					return []string{"Customer"}, nil
				}),
			},
		})

		done := make(chan struct{})

		go func() {
			defer close(done)

			_, _ = orch.Execute(context.Background(), "run-9", nil)
		}()

		<-started

		_, err := orch.Lookup(context.Background(), "run-9")
		require.Error(t, err)
		assert.True(t, resultstore.IsPending(err))

		close(release)
		<-done

		rep, err := orch.Lookup(context.Background(), "run-9")
		require.NoError(t, err)
		assert.Equal(t, []string{"Customer"}, rep.SchemaInformation.NodeLabels)
	})

	t.Run("unknown id falls back to the latest persisted report", func(t *testing.T) {
		t.Parallel()

		store := resultstore.NewCachedStore(newMemoryStore())
		orch := orchestrator.New(testLogger(), orchestrator.Options{
			Dialer:    fakeDialer(&fakeClient{}),
			Store:     store,
			Defaults:  defaultCreds(),
			Preflight: quickPreflight(),
			Operations: []catalog.Operation{
				operation("node_labels", func(ctx context.Context, client graph.Client) (any, error) {
					return []string{"Customer"}, nil
				}),
			},
		})

		_, err := orch.Execute(context.Background(), "run-13", nil)
		require.NoError(t, err)

		rep, err := orch.Lookup(context.Background(), "run-never-started")
		require.NoError(t, err)
		assert.Equal(t, []string{"Customer"}, rep.SchemaInformation.NodeLabels)
	})

	t.Run("in-flight run stays pending despite a persisted latest", func(t *testing.T) {
		t.Parallel()

		started := make(chan struct{})
		release := make(chan struct{})

		store := resultstore.NewCachedStore(newMemoryStore())
		previous := &report.Report{}
		require.NoError(t, store.Put(context.Background(), "run-14", previous))

		orch := orchestrator.New(testLogger(), orchestrator.Options{
			Dialer:    fakeDialer(&fakeClient{}),
			Store:     store,
			Defaults:  defaultCreds(),
			Preflight: quickPreflight(),
			Operations: []catalog.Operation{
				operation("node_labels", func(ctx context.Context, client graph.Client) (any, error) {
					close(started)
					<-release

					return []string{"Customer"}, nil
				}),
			},
		})

		done := make(chan struct{})

		go func() {
			defer close(done)

			_, _ = orch.Execute(context.Background(), "run-15", nil)
		}()

		<-started

		// run-14's report is the latest alias, but run-15 is in flight and
		// must not resolve to it.
		_, err := orch.Lookup(context.Background(), "run-15")
		require.Error(t, err)
		assert.True(t, resultstore.IsPending(err))

		close(release)
		<-done
	})

	t.Run("persisted run resolves by id", func(t *testing.T) {
		t.Parallel()

		store := newMemoryStore()
		orch := orchestrator.New(testLogger(), orchestrator.Options{
			Dialer:     fakeDialer(&fakeClient{}),
			Store:      store,
			Defaults:   defaultCreds(),
			Preflight:  quickPreflight(),
			Operations: []catalog.Operation{},
		})

		_, err := orch.Execute(context.Background(), "run-10", nil)
		require.NoError(t, err)

		rep, err := orch.Lookup(context.Background(), "run-10")
		require.NoError(t, err)
		assert.NotNil(t, rep)
	})
}
