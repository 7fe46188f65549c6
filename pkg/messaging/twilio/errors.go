package twilio

import "errors"

var (
	// ErrInvalidConfig is returned when the client configuration is incomplete
	ErrInvalidConfig = errors.New("invalid twilio config")

	// ErrInvalidRequest is returned when the API rejects the message (4xx)
	ErrInvalidRequest = errors.New("invalid message request")

	// ErrUnauthorized is returned when the account credentials are rejected
	ErrUnauthorized = errors.New("unauthorized: invalid account credentials")

	// ErrSendFailed is returned for other non-success responses
	ErrSendFailed = errors.New("sms send failed")

	// ErrNetworkError is returned when there's a network communication error
	ErrNetworkError = errors.New("network error")
)
