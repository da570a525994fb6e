package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"backend-antrian-bank/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entryColumns = []string{
	"id", "queue_number", "name", "phone", "service_type", "branch",
	"status", "position", "estimated_wait_time", "created_at",
}

func newMockSQLStore(t *testing.T, dialect Dialect) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db, dialect), mock
}

func entryRow(e *models.QueueEntry) *sqlmock.Rows {
	return sqlmock.NewRows(entryColumns).AddRow(
		e.ID, e.QueueNumber, e.Name, e.Phone, string(e.ServiceType), e.Branch,
		string(e.Status), e.Position, e.EstimatedWaitTime, e.CreatedAt,
	)
}

func TestSQLStore_Insert(t *testing.T) {
	s, mock := newMockSQLStore(t, DialectMySQL)
	e := entryAt("a", "D12", 12, t0)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO queue_entries")).
		WithArgs("a", "D12", e.Name, e.Phone, "deposit", "Main", "waiting", 12, 36, t0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Insert(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Insert_Error(t *testing.T) {
	s, mock := newMockSQLStore(t, DialectMySQL)
	mock.ExpectExec("INSERT INTO queue_entries").WillReturnError(errors.New("duplicate key"))

	err := s.Insert(context.Background(), entryAt("a", "D12", 12, t0))

	assert.ErrorContains(t, err, "duplicate key")
}

func TestSQLStore_GetByQueueNumber(t *testing.T) {
	s, mock := newMockSQLStore(t, DialectMySQL)
	e := entryAt("a", "D12", 12, t0)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE queue_number = ? ORDER BY created_at DESC LIMIT 1")).
		WithArgs("D12").
		WillReturnRows(entryRow(e))

	got, err := s.GetByQueueNumber(context.Background(), "D12")

	require.NoError(t, err)
	assert.Equal(t, *e, *got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetByID_NotFound(t *testing.T) {
	s, mock := newMockSQLStore(t, DialectMySQL)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ?")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetByID(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_Update(t *testing.T) {
	s, mock := newMockSQLStore(t, DialectMySQL)
	serving := models.StatusServing
	pos, wait := 1, 5
	updated := entryAt("a", "D12", 1, t0)
	updated.Status = serving
	updated.EstimatedWaitTime = 5

	mock.ExpectExec(regexp.QuoteMeta("UPDATE queue_entries SET status = ?, position = ?, estimated_wait_time = ? WHERE id = ?")).
		WithArgs("serving", 1, 5, "a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ?")).
		WithArgs("a").
		WillReturnRows(entryRow(updated))

	got, err := s.Update(context.Background(), "a", models.EntryPatch{Status: &serving, Position: &pos, EstimatedWaitTime: &wait})

	require.NoError(t, err)
	assert.Equal(t, models.StatusServing, got.Status)
	assert.Equal(t, 1, got.Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Update_WaitOnlyPostgres(t *testing.T) {
	s, mock := newMockSQLStore(t, DialectPostgres)
	wait := 20

	mock.ExpectExec(regexp.QuoteMeta("UPDATE queue_entries SET estimated_wait_time = $1 WHERE id = $2")).
		WithArgs(20, "a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs("a").
		WillReturnRows(entryRow(entryAt("a", "D12", 12, t0)))

	_, err := s.Update(context.Background(), "a", models.EntryPatch{EstimatedWaitTime: &wait})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ListOrderedByPosition(t *testing.T) {
	s, mock := newMockSQLStore(t, DialectMySQL)
	rows := sqlmock.NewRows(entryColumns).
		AddRow("a", "D10", "A", "1", "deposit", "Main", "waiting", 10, 30, t0).
		AddRow("b", "L20", "B", "2", "loan", "Main", "serving", 20, 60, t0)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY position ASC, created_at ASC")).WillReturnRows(rows)

	got, err := s.ListOrderedByPosition(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, models.ServiceLoan, got[1].ServiceType)
	assert.Equal(t, models.StatusServing, got[1].Status)
}

func TestSQLStore_SwapPositions(t *testing.T) {
	s, mock := newMockSQLStore(t, DialectMySQL)
	a, b := entryAt("a", "D10", 10, t0), entryAt("b", "D30", 30, t0)
	query := regexp.QuoteMeta("UPDATE queue_entries SET position = ? WHERE id = ?")

	mock.ExpectBegin()
	mock.ExpectExec(query).WithArgs(30, "a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs(10, "b").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SwapPositions(context.Background(), *a, *b))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SwapPositions_RollsBack(t *testing.T) {
	s, mock := newMockSQLStore(t, DialectMySQL)
	a, b := entryAt("a", "D10", 10, t0), entryAt("b", "D30", 30, t0)
	query := regexp.QuoteMeta("UPDATE queue_entries SET position = ? WHERE id = ?")

	mock.ExpectBegin()
	mock.ExpectExec(query).WithArgs(30, "a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs(10, "b").WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	err := s.SwapPositions(context.Background(), *a, *b)

	assert.ErrorContains(t, err, "lock wait timeout")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Migrate(t *testing.T) {
	s, mock := newMockSQLStore(t, DialectPostgres)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS queue_entries").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_queue_entries_number").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_queue_entries_position").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRebind(t *testing.T) {
	pg := NewSQLStore(nil, DialectPostgres)
	my := NewSQLStore(nil, DialectMySQL)
	q := "UPDATE t SET a = ?, b = ? WHERE id = ?"

	assert.Equal(t, "UPDATE t SET a = $1, b = $2 WHERE id = $3", pg.rebind(q))
	assert.Equal(t, q, my.rebind(q))
}
