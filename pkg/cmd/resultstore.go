package cmd

import (
	"context"
	"log/slog"

	"github.com/neosense/neosense/pkg/resultstore"
)

// NewResultStore builds the store selected by the URL scheme and wraps it
// in the in-memory read cache.
func NewResultStore(ctx context.Context, logger *slog.Logger, resultsURL string) (resultstore.Store, error) {
	store, err := resultstore.New(ctx, logger, resultsURL)
	if err != nil {
		return nil, err
	}

	return resultstore.NewCachedStore(store), nil
}
