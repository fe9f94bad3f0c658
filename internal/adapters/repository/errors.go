package repository

import "errors"

// Sentinel kinds for snapshot store errors.
var (
	ErrClosed     = errors.New("store closed")
	ErrLocked     = errors.New("snapshot database locked by another process")
	ErrUnknownKey = errors.New("unknown snapshot key")
)
