package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrSessionClosed = errors.New("session is closed")
	ErrSessionOpen   = errors.New("session is already open")
)
