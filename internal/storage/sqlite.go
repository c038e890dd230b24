package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps keys in a single table. Change events are delivered to
// subscribers of the same process.
type SQLiteStore struct {
	db  *sqlx.DB
	hub hub
}

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// :memory: databases are per-connection
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS kv(
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT DEFAULT CURRENT_TIMESTAMP
);
`
	_, err := db.Exec(schema)
	return err
}

func NewSQLiteStore(db *sqlx.DB) *SQLiteStore { return &SQLiteStore{db: db} }

// OpenSQLite opens dsn and returns a ready store.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	db, err := OpenDB(dsn)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(db), nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.GetContext(ctx, &v, `SELECT value FROM kv WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var old string
	err = tx.GetContext(ctx, &old, `SELECT value FROM kv WHERE key = ?`, key)
	switch {
	case err == nil && old == value:
		return nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO kv(key, value, updated_at) VALUES(?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.hub.publish(Event{Key: key, Value: value})
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.hub.publish(Event{Key: key, Removed: true})
	}
	return nil
}

func (s *SQLiteStore) Subscribe(ctx context.Context) (<-chan Event, error) {
	return s.hub.subscribe(ctx), nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
