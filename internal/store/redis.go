package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"backend-antrian-bank/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	positionsKey    = "queue:positions"
	joinsKey        = "queue:joins"
	maxWatchRetries = 5
)

func entryKey(id string) string           { return "queue:entry:" + id }
func numberKey(queueNumber string) string { return "queue:number:" + queueNumber }

// RedisStore keeps each entry as JSON under queue:entry:<id>, a queue number index,
// and a sorted set of ids scored by position.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Insert(ctx context.Context, e *models.QueueEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode queue entry: %w", err)
	}

	ok, err := s.rdb.SetNX(ctx, entryKey(e.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("insert queue entry: %w", err)
	}
	if !ok {
		return ErrConflict
	}

	// a colliding queue number is re-pointed at the newest entry
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, numberKey(e.QueueNumber), e.ID, 0)
		pipe.ZAdd(ctx, positionsKey, redis.Z{Score: float64(e.Position), Member: e.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("index queue entry: %w", err)
	}
	return nil
}

func (s *RedisStore) GetByQueueNumber(ctx context.Context, queueNumber string) (*models.QueueEntry, error) {
	id, err := s.rdb.Get(ctx, numberKey(queueNumber)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup queue number: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *RedisStore) GetByID(ctx context.Context, id string) (*models.QueueEntry, error) {
	data, err := s.rdb.Get(ctx, entryKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get queue entry: %w", err)
	}
	return decodeEntry(data)
}

// Update applies the patch under WATCH so concurrent writers to the same entry retry.
func (s *RedisStore) Update(ctx context.Context, id string, patch models.EntryPatch) (*models.QueueEntry, error) {
	key := entryKey(id)
	var updated *models.QueueEntry

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		e, err := decodeEntry(data)
		if err != nil {
			return err
		}
		patch.Apply(e)

		out, err := json.Marshal(e)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			pipe.ZAdd(ctx, positionsKey, redis.Z{Score: float64(e.Position), Member: e.ID})
			return nil
		})
		updated = e
		return err
	}

	if err := s.watch(ctx, txf, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update queue entry %s: %w", id, err)
	}
	return updated, nil
}

func (s *RedisStore) ListOrderedByPosition(ctx context.Context) ([]models.QueueEntry, error) {
	ids, err := s.rdb.ZRange(ctx, positionsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list queue positions: %w", err)
	}

	entries := []models.QueueEntry{}
	if len(ids) == 0 {
		return entries, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = entryKey(id)
	}

	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list queue entries: %w", err)
	}

	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		e, err := decodeEntry([]byte(raw))
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Position != entries[j].Position {
			return entries[i].Position < entries[j].Position
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

// SwapPositions exchanges positions in one MULTI/EXEC, watching both entries.
func (s *RedisStore) SwapPositions(ctx context.Context, a, b models.QueueEntry) error {
	keyA, keyB := entryKey(a.ID), entryKey(b.ID)

	txf := func(tx *redis.Tx) error {
		values, err := tx.MGet(ctx, keyA, keyB).Result()
		if err != nil {
			return err
		}

		current := make([]*models.QueueEntry, 2)
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				return ErrNotFound
			}
			if current[i], err = decodeEntry([]byte(raw)); err != nil {
				return err
			}
		}
		current[0].Position = b.Position
		current[1].Position = a.Position

		dataA, err := json.Marshal(current[0])
		if err != nil {
			return err
		}
		dataB, err := json.Marshal(current[1])
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, keyA, dataA, 0)
			pipe.Set(ctx, keyB, dataB, 0)
			pipe.ZAdd(ctx, positionsKey,
				redis.Z{Score: float64(b.Position), Member: a.ID},
				redis.Z{Score: float64(a.Position), Member: b.ID},
			)
			return nil
		})
		return err
	}

	if err := s.watch(ctx, txf, keyA, keyB); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("swap positions: %w", err)
	}
	return nil
}

func (s *RedisStore) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	var err error
	for i := 0; i < maxWatchRetries; i++ {
		err = s.rdb.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

func decodeEntry(data []byte) (*models.QueueEntry, error) {
	var e models.QueueEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode queue entry: %w", err)
	}
	return &e, nil
}

// RedisCounter counts joins per service type in a hash, the way the display counters are kept.
type RedisCounter struct {
	rdb *redis.Client
}

func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

func (c *RedisCounter) Incr(ctx context.Context, serviceType models.ServiceType) (int64, error) {
	n, err := c.rdb.HIncrBy(ctx, joinsKey, string(serviceType), 1).Result()
	if err != nil {
		return 0, fmt.Errorf("count join: %w", err)
	}
	return n, nil
}

func (c *RedisCounter) Counts(ctx context.Context) (map[models.ServiceType]int64, error) {
	raw, err := c.rdb.HGetAll(ctx, joinsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read join counts: %w", err)
	}

	counts := make(map[models.ServiceType]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		counts[models.ServiceType(k)] = n
	}
	return counts, nil
}
