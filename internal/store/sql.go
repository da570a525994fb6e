package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"backend-antrian-bank/internal/models"
)

// Dialect selects placeholder style and schema for SQLStore.
type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

const selectColumns = `
	SELECT id, queue_number, name, phone, service_type, branch,
	       status, position, estimated_wait_time, created_at
	FROM queue_entries
`

var schemas = map[Dialect][]string{
	DialectMySQL: {
		`CREATE TABLE IF NOT EXISTS queue_entries (
			id                  VARCHAR(36)  NOT NULL PRIMARY KEY,
			queue_number        VARCHAR(16)  NOT NULL,
			name                VARCHAR(255) NOT NULL,
			phone               VARCHAR(32)  NOT NULL,
			service_type        VARCHAR(32)  NOT NULL,
			branch              VARCHAR(255) NOT NULL,
			status              VARCHAR(16)  NOT NULL DEFAULT 'waiting',
			position            INT          NOT NULL,
			estimated_wait_time INT          NOT NULL,
			created_at          DATETIME(6)  NOT NULL,
			INDEX idx_queue_entries_number (queue_number),
			INDEX idx_queue_entries_position (position)
		)`,
	},
	DialectPostgres: {
		`CREATE TABLE IF NOT EXISTS queue_entries (
			id                  VARCHAR(36)  PRIMARY KEY,
			queue_number        VARCHAR(16)  NOT NULL,
			name                VARCHAR(255) NOT NULL,
			phone               VARCHAR(32)  NOT NULL,
			service_type        VARCHAR(32)  NOT NULL,
			branch              VARCHAR(255) NOT NULL,
			status              VARCHAR(16)  NOT NULL DEFAULT 'waiting',
			position            INT          NOT NULL,
			estimated_wait_time INT          NOT NULL,
			created_at          TIMESTAMPTZ  NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_queue_entries_number ON queue_entries (queue_number)`,
		`CREATE INDEX IF NOT EXISTS idx_queue_entries_position ON queue_entries (position)`,
	},
}

// SQLStore implements QueueEntryStore on database/sql for MySQL and Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Migrate creates the queue_entries table when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	stmts, ok := schemas[s.dialect]
	if !ok {
		return fmt.Errorf("unknown dialect %q", s.dialect)
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate queue_entries: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Insert(ctx context.Context, e *models.QueueEntry) error {
	query := s.rebind(`
		INSERT INTO queue_entries
		(id, queue_number, name, phone, service_type, branch, status, position, estimated_wait_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.QueueNumber,
		e.Name,
		e.Phone,
		string(e.ServiceType),
		e.Branch,
		string(e.Status),
		e.Position,
		e.EstimatedWaitTime,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert queue entry: %w", err)
	}
	return nil
}

func (s *SQLStore) GetByQueueNumber(ctx context.Context, queueNumber string) (*models.QueueEntry, error) {
	query := s.rebind(selectColumns + ` WHERE queue_number = ? ORDER BY created_at DESC LIMIT 1`)
	return s.getOne(ctx, query, queueNumber)
}

func (s *SQLStore) GetByID(ctx context.Context, id string) (*models.QueueEntry, error) {
	query := s.rebind(selectColumns + ` WHERE id = ?`)
	return s.getOne(ctx, query, id)
}

func (s *SQLStore) Update(ctx context.Context, id string, patch models.EntryPatch) (*models.QueueEntry, error) {
	if patch.IsEmpty() {
		return s.GetByID(ctx, id)
	}

	var (
		sets []string
		args []interface{}
	)
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.Position != nil {
		sets = append(sets, "position = ?")
		args = append(args, *patch.Position)
	}
	if patch.EstimatedWaitTime != nil {
		sets = append(sets, "estimated_wait_time = ?")
		args = append(args, *patch.EstimatedWaitTime)
	}
	args = append(args, id)

	query := s.rebind("UPDATE queue_entries SET " + strings.Join(sets, ", ") + " WHERE id = ?")
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("update queue entry %s: %w", id, err)
	}

	// MySQL reports 0 affected rows for unchanged values, so existence is checked by reading back
	return s.GetByID(ctx, id)
}

func (s *SQLStore) ListOrderedByPosition(ctx context.Context) ([]models.QueueEntry, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY position ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list queue entries: %w", err)
	}
	defer rows.Close()

	entries := []models.QueueEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list queue entries: %w", err)
	}
	return entries, nil
}

// SwapPositions exchanges the two positions inside one transaction.
func (s *SQLStore) SwapPositions(ctx context.Context, a, b models.QueueEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin swap: %w", err)
	}

	query := s.rebind("UPDATE queue_entries SET position = ? WHERE id = ?")
	if _, err := tx.ExecContext(ctx, query, b.Position, a.ID); err != nil {
		tx.Rollback()
		return fmt.Errorf("swap position of %s: %w", a.ID, err)
	}
	if _, err := tx.ExecContext(ctx, query, a.Position, b.ID); err != nil {
		tx.Rollback()
		return fmt.Errorf("swap position of %s: %w", b.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit swap: %w", err)
	}
	return nil
}

func (s *SQLStore) getOne(ctx context.Context, query string, arg interface{}) (*models.QueueEntry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get queue entry: %w", err)
	}
	return e, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*models.QueueEntry, error) {
	var (
		e           models.QueueEntry
		serviceType string
		status      string
	)
	err := row.Scan(
		&e.ID,
		&e.QueueNumber,
		&e.Name,
		&e.Phone,
		&serviceType,
		&e.Branch,
		&status,
		&e.Position,
		&e.EstimatedWaitTime,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.ServiceType = models.ServiceType(serviceType)
	e.Status = models.Status(status)
	return &e, nil
}

// rebind turns ? placeholders into $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var (
		b strings.Builder
		n int
	)
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
