// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
// Kind carries the stable machine-readable error kind when the failure comes
// from the operations engine; it is empty for plain transport errors.
type APIError struct {
	Detail string `json:"detail"`
	Kind   string `json:"kind,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// NewKind builds an envelope carrying both the stable kind and the detail.
func NewKind(kind, msg string) *APIError {
	return &APIError{Detail: msg, Kind: kind}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Validation failed", Fields: fields}
}
