// Package graph defines the metadata source client boundary: a capability set
// for executing parameterized queries and verifying connectivity against a
// graph store.
package graph

import (
	"context"
	"errors"
)

// ErrNotConnected indicates a query was attempted before Connect succeeded.
var ErrNotConnected = errors.New("graph client not connected")

// Row is one result record, keyed by the column names of the query.
type Row map[string]any

// Client is the capability set consumed by the orchestration engine. The
// engine never retries through the client; all retry policy lives above this
// boundary. Implementations must be safe for concurrent RunQuery calls, since
// fan-out operations share one client.
type Client interface {
	Connect(ctx context.Context) error
	VerifyConnectivity(ctx context.Context) error
	RunQuery(ctx context.Context, query string, params map[string]any) ([]Row, error)
	Close(ctx context.Context) error
}
