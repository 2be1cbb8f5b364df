package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrMissingID         = errors.New("record id is required")
	ErrUnknownDriver     = errors.New("unknown storage driver")
	ErrMissingConnection = errors.New("storage connection setting is required")
	ErrInvalidRecord     = errors.New("record could not be encoded")
)
