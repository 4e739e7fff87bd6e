package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const sqliteTable = "translation_cache"

// SQLiteStore keeps translations in the gateway's SQLite database. Expired
// rows read as misses and are removed by Purge.
type SQLiteStore struct {
	db  *sql.DB
	sq  sq.StatementBuilderType
	now func() time.Time
}

// NewSQLiteStore uses the translation_cache table of db, which must already
// be migrated.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:  db,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		now: time.Now,
	}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	query, args, err := s.sq.
		Select("value").
		From(sqliteTable).
		Where(sq.Eq{"key": key}).
		Where(sq.Gt{"expires_at": s.now().UnixNano()}).
		Limit(1).
		ToSql()
	if err != nil {
		return "", false, err
	}

	var value string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("sqlite cache get: %w", err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	query, args, err := s.sq.
		Insert(sqliteTable).
		Columns("key", "value", "expires_at").
		Values(key, value, s.now().Add(ttl).UnixNano()).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite cache set: %w", err)
	}
	return nil
}

// Purge deletes expired rows and returns how many were removed.
func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	query, args, err := s.sq.
		Delete(sqliteTable).
		Where(sq.LtOrEq{"expires_at": s.now().UnixNano()}).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite cache purge: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op: the database is owned by the caller.
func (s *SQLiteStore) Close() error {
	return nil
}
