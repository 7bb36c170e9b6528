package resultstore

import (
	"context"
	"log/slog"
	"strings"
)

var supportedStoreProviders = []string{"file", "postgres", "postgresql", "redis", "rediss"}

// New selects a store backend from the URL scheme. Unknown schemes and
// bare paths fall back to the file backend.
func New(ctx context.Context, logger *slog.Logger, resultsURL string) (Store, error) {
	switch parseStoreProvider(resultsURL) {
	case "postgres", "postgresql":
		return NewPostgresStore(ctx, logger, resultsURL)
	case "redis", "rediss":
		return NewRedisStore(ctx, resultsURL)
	default:
		return NewFileStore(strings.TrimPrefix(resultsURL, "file://"))
	}
}

func parseStoreProvider(resultsURL string) string {
	scheme, _, found := strings.Cut(resultsURL, "://")
	if !found {
		return "file"
	}

	for _, supported := range supportedStoreProviders {
		if scheme == supported {
			return scheme
		}
	}

	return "file"
}
