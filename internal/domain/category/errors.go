package category

import (
	"errors"
)

// Sentinel kinds for category errors.
var (
	ErrInvalidName   = errors.New("invalid category name")
	ErrNotFound      = errors.New("category not found")
	ErrDeleteDefault = errors.New("default category cannot be deleted")
)
