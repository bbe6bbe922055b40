package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict means the aggregate changed between load and save.
	// Callers reload and retry.
	ErrVersionConflict = errors.New("version conflict")
)
