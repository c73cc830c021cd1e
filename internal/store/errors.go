package store

import "errors"

var (
	ErrDuplicateUsername = errors.New("username already has saved preferences")
	ErrEmptyPreferences  = errors.New("at least one preference must be set")
	ErrEmptyUsername     = errors.New("username must not be empty")
	ErrNotFound          = errors.New("no saved preferences for user")
	ErrMalformedRecord   = errors.New("malformed preference record")
)
