package queue

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("queue number not found")
	ErrStoreFailure      = errors.New("queue store failure")
	ErrPartialFailure    = errors.New("queue reorder partially applied")
	ErrInvalidStatus     = errors.New("invalid status value")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrBranchClosed      = errors.New("branch queue is closed")

	ErrMissingFields = fmt.Errorf("%w: name, phone and service_type are required", ErrValidation)
	ErrNoAdjustment  = fmt.Errorf("%w: priority or estimated_wait_time is required", ErrValidation)
	ErrBadDirection  = fmt.Errorf("%w: direction must be up or down", ErrValidation)

	// ErrEntryNotFound is ErrNotFound for operations addressed by entry id.
	ErrEntryNotFound = fmt.Errorf("%w: no entry with that id", ErrNotFound)
)
