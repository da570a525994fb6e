package queue

import (
	"context"
	"fmt"
	"strings"

	"backend-antrian-bank/internal/models"
	"backend-antrian-bank/internal/store"
	"backend-antrian-bank/internal/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Direction of an admin move
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Up:
		return Up, nil
	case Down:
		return Down, nil
	}
	return "", ErrBadDirection
}

// MoveAdjacent swaps the position of targetID with its neighbour in entries, which must be
// ordered by position ascending. Moving the first entry up or the last down writes nothing
// and returns false. entries is trusted as-is and not re-read from the store.
func (s *Service) MoveAdjacent(ctx context.Context, entries []models.QueueEntry, targetID string, dir Direction) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "queue.move_adjacent",
		attribute.String("id", targetID),
		attribute.String("direction", string(dir)),
	)
	defer span.End()

	if dir != Up && dir != Down {
		return false, ErrBadDirection
	}

	idx := -1
	for i := range entries {
		if entries[i].ID == targetID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, ErrEntryNotFound
	}

	if (dir == Up && idx == 0) || (dir == Down && idx == len(entries)-1) {
		return false, nil
	}

	neighbour := idx + 1
	if dir == Up {
		neighbour = idx - 1
	}
	current, other := entries[idx], entries[neighbour]

	if err := s.swap(ctx, current, other); err != nil {
		telemetry.RecordError(span, err)
		return false, err
	}

	s.log.Info("queue position swapped",
		zap.String("queue_number", current.QueueNumber),
		zap.String("with", other.QueueNumber),
		zap.String("direction", string(dir)),
	)
	s.changed()
	return true, nil
}

// Move reads the ordered queue and applies MoveAdjacent to it.
func (s *Service) Move(ctx context.Context, id string, dir Direction) (bool, error) {
	entries, err := s.store.ListOrderedByPosition(ctx)
	if err != nil {
		return false, s.storeErr(err, zap.String("id", id))
	}
	return s.MoveAdjacent(ctx, entries, id, dir)
}

func (s *Service) swap(ctx context.Context, current, other models.QueueEntry) error {
	if swapper, ok := s.store.(store.PositionSwapper); ok {
		if err := swapper.SwapPositions(ctx, current, other); err != nil {
			return s.storeErr(err, zap.String("id", current.ID), zap.String("with", other.ID))
		}
		return nil
	}

	// no multi-row atomicity: write both, revert the first if the second fails
	otherPos, currentPos := other.Position, current.Position
	if _, err := s.store.Update(ctx, current.ID, models.EntryPatch{Position: &otherPos}); err != nil {
		return s.storeErr(err, zap.String("id", current.ID))
	}

	if _, err := s.store.Update(ctx, other.ID, models.EntryPatch{Position: &currentPos}); err != nil {
		s.log.Error("second swap write failed, reverting", zap.String("id", other.ID), zap.Error(err))

		if _, revertErr := s.store.Update(ctx, current.ID, models.EntryPatch{Position: &currentPos}); revertErr != nil {
			s.log.Error("swap revert failed", zap.String("id", current.ID), zap.Error(revertErr))
			return fmt.Errorf("%w: %v (revert failed: %v)", ErrPartialFailure, err, revertErr)
		}
		return fmt.Errorf("%w: %v (first write reverted)", ErrPartialFailure, err)
	}
	return nil
}
