// Package store persists log entries, check-ins, period archives and the
// period state key/value pairs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/saadjs/kcaldebt/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrInconsistentArchive marks an archive that would duplicate or overlap an existing one.
	ErrInconsistentArchive = errors.New("inconsistent archive state")
)

// Store is the storage collaborator used by the engine. Reads are ordered by
// timestamp then id; range reads are inclusive on both ends.
type Store interface {
	ListEntries(ctx context.Context) ([]model.LogEntry, error)
	ListEntriesBetween(ctx context.Context, from, to time.Time) ([]model.LogEntry, error)
	GetEntry(ctx context.Context, id int64) (model.LogEntry, error)
	InsertEntry(ctx context.Context, e model.LogEntry) (int64, error)
	UpdateEntry(ctx context.Context, e model.LogEntry) error
	DeleteEntry(ctx context.Context, id int64) error
	DeleteEntries(ctx context.Context, ids []int64) error

	ListCheckIns(ctx context.Context) ([]model.CheckIn, error)
	ListCheckInsBetween(ctx context.Context, from, to time.Time) ([]model.CheckIn, error)
	InsertCheckIn(ctx context.Context, c model.CheckIn) (int64, error)
	UpdateCheckIn(ctx context.Context, c model.CheckIn) error

	ListArchives(ctx context.Context) ([]model.PeriodArchive, error)
	GetArchive(ctx context.Context, id string) (model.PeriodArchive, error)
	InsertArchive(ctx context.Context, a model.PeriodArchive) error
	UpdateArchive(ctx context.Context, a model.PeriodArchive) error
	DeleteAllArchives(ctx context.Context) error

	GetState(ctx context.Context, key string) (string, bool, error)
	SetState(ctx context.Context, key, value string) error
	ListState(ctx context.Context) (map[string]string, error)

	// WithTx runs fn against a transactional view. Nested calls join the outer transaction.
	WithTx(ctx context.Context, fn func(Store) error) error
}

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Store on SQLite through database/sql.
type SQLStore struct {
	db   *sql.DB
	q    dbtx
	loc  *time.Location
	inTx bool
}

// NewSQLStore wraps an opened, migrated database. Loaded timestamps are
// expressed in loc (time.Local when nil).
func NewSQLStore(db *sql.DB, loc *time.Location) *SQLStore {
	if loc == nil {
		loc = time.Local
	}
	return &SQLStore{db: db, q: db, loc: loc}
}

func (s *SQLStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&SQLStore{db: s.db, q: tx, loc: s.loc, inTx: true}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).In(s.loc)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
