package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidEvent     = errors.New("invalid ledger event")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrFetchFailed      = errors.New("fetch failed")
	ErrWSDisconnect     = errors.New("websocket disconnected")
	ErrLockHeld         = errors.New("lock already held")
	ErrInvalidPolicy    = errors.New("invalid policy")
)
