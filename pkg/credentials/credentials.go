// Package credentials resolves per-run connection credentials with
// process-wide environment fallback.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Environment variables consulted for process-wide defaults.
const (
	EnvEndpoint = "NEO4J_URI"
	EnvUsername = "NEO4J_USERNAME"
	EnvSecret   = "NEO4J_PASSWORD"
)

// ErrIncompleteCredentials indicates the credential triple is missing one or
// more fields after fallback resolution.
var ErrIncompleteCredentials = errors.New("incomplete credential triple")

// Credentials is the connection triple for the metadata source. All three
// fields are required together.
type Credentials struct {
	Endpoint string `json:"endpoint" validate:"required"`
	Username string `json:"username" validate:"required"`
	Secret   string `json:"secret"   validate:"required"`
}

// CredentialError reports which fields were still empty after fallback.
type CredentialError struct {
	Missing []string
	Err     error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential resolution failed, missing %s: %v",
		strings.Join(e.Missing, ", "), e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

func (e *CredentialError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsCredentialError checks whether err stems from an incomplete triple.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrIncompleteCredentials)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Resolve merges explicit per-run values over process-wide defaults, field by
// field, and fails if any field of the triple is still empty. Pure function:
// no I/O, deterministic for a given input pair.
func Resolve(explicit *Credentials, defaults Credentials) (Credentials, error) {
	resolved := defaults
	if explicit != nil {
		if explicit.Endpoint != "" {
			resolved.Endpoint = explicit.Endpoint
		}

		if explicit.Username != "" {
			resolved.Username = explicit.Username
		}

		if explicit.Secret != "" {
			resolved.Secret = explicit.Secret
		}
	}

	err := validate.Struct(resolved)
	if err != nil {
		return Credentials{}, &CredentialError{
			Missing: missingFields(err),
			Err:     ErrIncompleteCredentials,
		}
	}

	return resolved, nil
}

// DefaultsFromEnv reads the process-wide credential defaults from the
// environment. Unset variables yield empty fields; Resolve decides whether
// the final triple is acceptable.
func DefaultsFromEnv() Credentials {
	return Credentials{
		Endpoint: os.Getenv(EnvEndpoint),
		Username: os.Getenv(EnvUsername),
		Secret:   os.Getenv(EnvSecret),
	}
}

func missingFields(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{"unknown"}
	}

	missing := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		missing = append(missing, strings.ToLower(fieldErr.Field()))
	}

	return missing
}
