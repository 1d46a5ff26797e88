package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("performance record not found")
	ErrInvalidValue = errors.New("performance field is not a finite number")
	ErrMigrate      = errors.New("schema migration failed")
)
