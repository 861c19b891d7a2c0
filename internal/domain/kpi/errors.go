package kpi

import "errors"

// Sentinel kinds for engine errors.
var (
	ErrInvalidScope = errors.New("invalid scope")
)
