package service

import (
	"errors"

	"github.com/okian/hrdesk/internal/adapters/repository"
)

// Sentinel kinds returned by the service. Validation failures carry
// validation.ErrInvalid.
var (
	ErrNotFound     = repository.ErrNotFound
	ErrConflict     = errors.New("conflict")
	ErrBackpressure = errors.New("submission queue is full")
	ErrNotRunning   = errors.New("service is not running")
)
