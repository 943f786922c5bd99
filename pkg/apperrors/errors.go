package apperrors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrMissingCredentials = errors.New("email and password are required")
	ErrUnauthenticated    = errors.New("no authenticated user")
	ErrRequestInFlight    = errors.New("recommendation request already in flight")
	ErrStoreUnavailable   = errors.New("store unavailable")
)
