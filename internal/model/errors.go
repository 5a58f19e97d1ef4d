package model

import "errors"

var (
	// Member related errors
	ErrMemberNotFound    = errors.New("member not found")
	ErrNoMatchingAccount = errors.New("no matching account")

	// Authentication related errors
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrTokenCompromised     = errors.New("refresh token reuse detected")
	ErrRateLimited          = errors.New("too many attempts")

	// Refresh token store errors
	ErrActiveTokenExists = errors.New("owner already has an active refresh token")

	// Permission/Access related errors
	ErrForbidden = errors.New("forbidden")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
