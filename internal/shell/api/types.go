package api

import "time"

// =============================================================================
// Response Types
// =============================================================================

// ErrorResponse is the error body for all failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is the response for the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the response for the readiness endpoint.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// DeployCodeResponse carries the currently active deploy code.
type DeployCodeResponse struct {
	DeployCode string `json:"deploy_code"`
}

// JournalEntryResponse is one saga journal row.
type JournalEntryResponse struct {
	SagaID    string    `json:"saga_id"`
	ProjectID string    `json:"project_id,omitempty"`
	Stage     string    `json:"stage"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// JournalResponse lists recent saga journal rows.
type JournalResponse struct {
	Entries []JournalEntryResponse `json:"entries"`
}
