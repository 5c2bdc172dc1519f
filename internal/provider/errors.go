package provider

import "errors"

// Sentinel errors shared by provider implementations.
var (
	// ErrEmptyResponse indicates the upstream returned a success status
	// but no usable message content.
	ErrEmptyResponse = errors.New("provider: no content in response")

	// ErrUpstreamStatus indicates a non-success HTTP status from the
	// completion API.
	ErrUpstreamStatus = errors.New("provider: upstream error status")
)
