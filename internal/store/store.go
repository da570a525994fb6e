package store

import (
	"context"
	"errors"

	"backend-antrian-bank/internal/models"
)

var (
	ErrNotFound = errors.New("queue entry not found")
	ErrConflict = errors.New("queue entry already exists")
)

// QueueEntryStore - persistence for queue entries. Single-row operations are atomic.
type QueueEntryStore interface {
	Insert(ctx context.Context, e *models.QueueEntry) error
	// GetByQueueNumber returns the newest entry carrying queueNumber.
	GetByQueueNumber(ctx context.Context, queueNumber string) (*models.QueueEntry, error)
	GetByID(ctx context.Context, id string) (*models.QueueEntry, error)
	Update(ctx context.Context, id string, patch models.EntryPatch) (*models.QueueEntry, error)
	// ListOrderedByPosition returns every entry, position ascending then created_at ascending.
	ListOrderedByPosition(ctx context.Context) ([]models.QueueEntry, error)
}

// PositionSwapper is implemented by stores that can exchange two positions atomically.
type PositionSwapper interface {
	SwapPositions(ctx context.Context, a, b models.QueueEntry) error
}

// JoinCounter counts joins per service type.
type JoinCounter interface {
	Incr(ctx context.Context, serviceType models.ServiceType) (int64, error)
	Counts(ctx context.Context) (map[models.ServiceType]int64, error)
}
