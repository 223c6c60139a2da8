package services

import "errors"

// Session service errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("session limit reached")

	// ErrServiceStopped is returned once the sweeper has shut the store down.
	ErrServiceStopped = errors.New("session service stopped")

	ErrInvalidInput = errors.New("invalid input")
)
