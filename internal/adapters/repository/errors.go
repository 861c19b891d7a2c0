package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrMissingTenant    = errors.New("event has no tenant")
	ErrMissingID        = errors.New("event has no id")
	ErrUnknownType      = errors.New("event type is not known")
	ErrMissingTimestamp = errors.New("event has no occurred_at")
	ErrClosed           = errors.New("store closed")
)
