package errors

import (
	"fmt"
)

type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrMissingConfig       Error = "missing required configuration"
	ErrTransport           Error = "token endpoint unreachable"
	ErrProviderRejected    Error = "token request rejected by provider"
	ErrProviderUnavailable Error = "token endpoint unavailable"
	ErrMalformedResponse   Error = "malformed token response"
)

// ProviderError describes a non-2xx answer of the token endpoint.
// Code and Description come from the OAuth error body when the provider sends one.
type ProviderError struct {
	Status      int
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("token endpoint responded with status %d", e.Status)
	}
	if e.Description == "" {
		return fmt.Sprintf("token endpoint responded with status %d: %s", e.Status, e.Code)
	}
	return fmt.Sprintf("token endpoint responded with status %d: %s (%s)", e.Status, e.Code, e.Description)
}

// Unwrap classifies the answer: 5xx means the provider is unavailable,
// anything else means it refused the request.
func (e *ProviderError) Unwrap() error {
	if e.Status >= 500 {
		return ErrProviderUnavailable
	}
	return ErrProviderRejected
}
