// Package web provides HTTP request and response types for the extraction API.
package web

// CredentialsPayload carries an explicit credential triple in a request
// body. Any field left empty falls back to the server's configured default.
type CredentialsPayload struct {
	URI      string `json:"uri"      validate:"omitempty,uri"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// StartRunRequest represents the request body for starting an extraction run.
// The body is optional; without it the run uses the configured credentials
// and a generated run id.
// Run ids are bounded to fit the widest store's key column.
type StartRunRequest struct {
	RunID       string              `json:"run_id,omitempty"      validate:"omitempty,max=255"`
	Credentials *CredentialsPayload `json:"credentials,omitempty"`
}

// StartRunResponse acknowledges an accepted run.
type StartRunResponse struct {
	RunID string `json:"run_id"`
	State string `json:"state"`
}

// TestConnectionRequest represents the request body for a connectivity probe.
type TestConnectionRequest struct {
	Credentials *CredentialsPayload `json:"credentials,omitempty"`
}

// TestConnectionResponse mirrors the probe outcome without failing the
// request itself.
type TestConnectionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// StoreReportResponse acknowledges an externally supplied report upsert.
type StoreReportResponse struct {
	RunID string `json:"run_id"`
}
