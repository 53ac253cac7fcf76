package domain

import "errors"

var (
	ErrConfigBlocked          = errors.New("configuration has validation errors")
	ErrNotStreaming           = errors.New("pipeline is not streaming")
	ErrLiveUpdateNotSupported = errors.New("active transport does not support live updates")
	ErrSessionClosed          = errors.New("session is closed")
	ErrSessionActive          = errors.New("a session is already active")
	ErrStaleCompletion        = errors.New("completion belongs to a superseded session")
	ErrVideoUnavailable       = errors.New("video capability not available")
)
