package services

import "errors"

var (
	// ErrUnauthorized means no principal accompanied the call.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUserNotFound means the principal has no user row. The signup flow
	// is supposed to create one before any of these paths run.
	ErrUserNotFound = errors.New("user not found")
)
