package session

import "errors"

// Sentinel errors for session store operations.
var (
	// ErrNotFound indicates the requested session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrNoMessages indicates the session has no messages to operate on.
	ErrNoMessages = errors.New("session has no messages")
)
