package app

import "errors"

// Sentinel kinds for service errors.
var (
	// ErrScopeUnavailable means the snapshot could not be computed. The
	// returned snapshot is still the well-formed zero snapshot.
	ErrScopeUnavailable = errors.New("scope unavailable")
	ErrInvalidEvent     = errors.New("invalid event")
	ErrQueueFull        = errors.New("ingestion queue full")
	ErrNotStarted       = errors.New("service not started")
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrNoPermission     = errors.New("no permission")
)
