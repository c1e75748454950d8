package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidInput     = errors.New("invalid input")
	ErrAuthCancelled    = errors.New("auth cancelled or failed")
	ErrStoreUnavailable = errors.New("store unavailable")
)
