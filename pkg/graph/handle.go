package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/neosense/neosense/pkg/credentials"
)

// Dialer builds a client for the given credential triple. It must not connect;
// the handle drives Connect so that failures are observable and not cached.
type Dialer func(creds credentials.Credentials) (Client, error)

// Handle owns the single lazily-created connection per process. The first
// caller triggers Connect; later callers reuse the live client for as long as
// they present the same credentials. A failed Connect discards the client
// instead of caching it broken, so the next caller dials again.
type Handle struct {
	dial Dialer

	mu     sync.Mutex
	client Client
	creds  credentials.Credentials
}

// NewHandle wraps a dialer in a lazy-init-once connection handle.
func NewHandle(dial Dialer) *Handle {
	return &Handle{dial: dial}
}

// Client returns the shared connected client, dialing on first use. A call
// with a different credential triple drops the cached connection and dials
// again.
func (h *Handle) Client(ctx context.Context, creds credentials.Credentials) (Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client != nil {
		if creds == h.creds {
			return h.client, nil
		}

		_ = h.client.Close(ctx)
		h.client = nil
	}

	client, err := h.dial(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph client: %w", err)
	}

	err = client.Connect(ctx)
	if err != nil {
		// Do not cache a broken handle.
		_ = client.Close(ctx)

		return nil, fmt.Errorf("failed to connect graph client: %w", err)
	}

	h.client = client
	h.creds = creds

	return h.client, nil
}

// Close tears down the cached connection, if any. The handle can be reused
// afterwards; the next Client call dials again.
func (h *Handle) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client == nil {
		return nil
	}

	err := h.client.Close(ctx)
	h.client = nil

	return err
}
