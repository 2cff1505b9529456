// Package pg implements the record and user stores on PostgreSQL through
// the stdlib driver. Uniqueness is enforced by per-table unique constraints;
// the stores translate constraint violations into the saga conflict error so
// two racing creates resolve to one success and one conflict.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"gridpoint.org/internal/records"
	"gridpoint.org/internal/saga"
)

const uniqueViolation = "23505"

// Open connects to PostgreSQL with pool defaults tuned for small services.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// RecordStore persists one record resource in its own table. The table and
// column names come straight from the resource descriptor, which is
// compile-time data, never request input.
type RecordStore struct {
	db     *sql.DB
	table  string
	fields []string
}

var _ records.Store = (*RecordStore)(nil)

// NewRecordStore builds the store for one resource descriptor.
func NewRecordStore(db *sql.DB, desc records.Descriptor) *RecordStore {
	return &RecordStore{
		db:     db,
		table:  strings.ReplaceAll(desc.Plural, "-", "_"),
		fields: desc.KeyFields,
	}
}

func (s *RecordStore) Find(ctx context.Context, key records.Key) (string, bool, error) {
	query := fmt.Sprintf(`select id from %s where %s`, s.table, s.where())
	var id string
	err := s.db.QueryRowContext(ctx, query, s.args(key)...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (s *RecordStore) Insert(ctx context.Context, id string, key records.Key) error {
	cols := append([]string{"id"}, s.fields...)
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`insert into %s(%s, created_at) values(%s, now())`,
		s.table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	args := append([]any{id}, s.args(key)...)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return saga.ErrConflict
		}
		return err
	}
	return nil
}

func (s *RecordStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`delete from %s where id=$1`, s.table), id)
	return err
}

func (s *RecordStore) where() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = fmt.Sprintf("%s=$%d", f, i+1)
	}
	return strings.Join(parts, " and ")
}

func (s *RecordStore) args(key records.Key) []any {
	args := make([]any, len(s.fields))
	for i, f := range s.fields {
		args[i] = key.Get(f)
	}
	return args
}
