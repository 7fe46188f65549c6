package resend

import "errors"

var (
	// ErrInvalidConfig is returned when the client configuration is incomplete
	ErrInvalidConfig = errors.New("invalid resend config")

	// ErrInvalidRequest is returned when the API rejects the payload (4xx)
	ErrInvalidRequest = errors.New("invalid email request")

	// ErrUnauthorized is returned when the API key is invalid
	ErrUnauthorized = errors.New("unauthorized: invalid API key")

	// ErrSendFailed is returned for other non-success responses
	ErrSendFailed = errors.New("email send failed")

	// ErrNetworkError is returned when there's a network communication error
	ErrNetworkError = errors.New("network error")
)
