package models

import "errors"

// Application-wide standard errors
var (
	// Common resource/DB errors
	ErrNotFound = errors.New("resource not found")

	// Backend gateway errors
	ErrAuthMissing      = errors.New("api credential is not configured")
	ErrProvider         = errors.New("generation provider request failed")
	ErrMalformedPayload = errors.New("malformed generation payload")

	// Engine errors
	ErrNoActiveGame     = errors.New("no active game")
	ErrUnlockInProgress = errors.New("unlock already in progress for this heroine")
	ErrSessionNotFound  = errors.New("session not found")

	// General request errors
	ErrInvalidInput = errors.New("invalid input data")
)
