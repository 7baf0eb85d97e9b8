package prefs

import "errors"

// Errors
var (
	ErrClosed       = errors.New("prefs: store is closed")
	ErrInvalidKey   = errors.New("prefs: invalid key")
	ErrTypeMismatch = errors.New("prefs: stored value has a different type")
	ErrNoAdapter    = errors.New("prefs: no storage adapter configured")
)
