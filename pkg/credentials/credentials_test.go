package credentials_test

import (
	"errors"
	"testing"

	"github.com/neosense/neosense/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	defaults := credentials.Credentials{
		Endpoint: "bolt://localhost:7687",
		Username: "neo4j",
		Secret:   "password",
	}

	t.Run("nil explicit uses defaults", func(t *testing.T) {
		t.Parallel()

		resolved, err := credentials.Resolve(nil, defaults)
		require.NoError(t, err)
		assert.Equal(t, defaults, resolved)
	})

	t.Run("explicit overrides field by field", func(t *testing.T) {
		t.Parallel()

		explicit := &credentials.Credentials{Endpoint: "bolt://other:7687"}

		resolved, err := credentials.Resolve(explicit, defaults)
		require.NoError(t, err)
		assert.Equal(t, "bolt://other:7687", resolved.Endpoint)
		assert.Equal(t, "neo4j", resolved.Username)
		assert.Equal(t, "password", resolved.Secret)
	})

	t.Run("full explicit ignores defaults", func(t *testing.T) {
		t.Parallel()

		explicit := &credentials.Credentials{
			Endpoint: "bolt://other:7687",
			Username: "admin",
			Secret:   "hunter2",
		}

		resolved, err := credentials.Resolve(explicit, defaults)
		require.NoError(t, err)
		assert.Equal(t, *explicit, resolved)
	})

	t.Run("missing field after fallback fails", func(t *testing.T) {
		t.Parallel()

		incomplete := credentials.Credentials{Endpoint: "bolt://localhost:7687"}

		_, err := credentials.Resolve(nil, incomplete)
		require.Error(t, err)
		assert.True(t, credentials.IsCredentialError(err))
		assert.ErrorIs(t, err, credentials.ErrIncompleteCredentials)

		var credErr *credentials.CredentialError
		require.True(t, errors.As(err, &credErr))
		assert.ElementsMatch(t, []string{"username", "secret"}, credErr.Missing)
	})

	t.Run("empty everything reports all three fields", func(t *testing.T) {
		t.Parallel()

		_, err := credentials.Resolve(nil, credentials.Credentials{})
		require.Error(t, err)

		var credErr *credentials.CredentialError
		require.True(t, errors.As(err, &credErr))
		assert.Len(t, credErr.Missing, 3)
	})

	t.Run("resolution is deterministic", func(t *testing.T) {
		t.Parallel()

		explicit := &credentials.Credentials{Username: "admin"}

		first, err := credentials.Resolve(explicit, defaults)
		require.NoError(t, err)

		second, err := credentials.Resolve(explicit, defaults)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
}

func TestDefaultsFromEnv(t *testing.T) {
	t.Setenv(credentials.EnvEndpoint, "bolt://env:7687")
	t.Setenv(credentials.EnvUsername, "envuser")
	t.Setenv(credentials.EnvSecret, "envpass")

	defaults := credentials.DefaultsFromEnv()
	assert.Equal(t, "bolt://env:7687", defaults.Endpoint)
	assert.Equal(t, "envuser", defaults.Username)
	assert.Equal(t, "envpass", defaults.Secret)
}
