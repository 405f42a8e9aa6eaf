package entities

import "errors"

// Sentinel errors forming the error taxonomy for the query pipeline.
// Adapters wrap these with fmt.Errorf("...: %w", ...) and the HTTP boundary
// maps them to status codes with errors.Is().
var (
	// ErrInvalidInput indicates a missing or empty prompt.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates a missing or invalid caller identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConfigurationMissing indicates required external-service configuration is absent.
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrUpstreamUnavailable indicates an external service is unreachable or
	// returned a non-success status.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrPersistence indicates a conversation store operation failed.
	ErrPersistence = errors.New("persistence failure")

	// ErrNotFound indicates a conversation does not exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")
)
