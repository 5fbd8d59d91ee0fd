package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// SQLiteStore keeps contract state in a SQLite database opened with
// database.OpenSQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore constructs a SQLiteStore over an open handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Update runs fn in a read/write transaction.
func (s *SQLiteStore) Update(ctx context.Context, fn func(Txn) error) error {
	return s.run(ctx, false, fn)
}

// View runs fn in a read-only transaction.
func (s *SQLiteStore) View(ctx context.Context, fn func(Txn) error) error {
	return s.run(ctx, true, fn)
}

func (s *SQLiteStore) run(ctx context.Context, readOnly bool, fn func(Txn) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", classifySQLiteError(err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&sqliteTxn{tx: tx, readOnly: readOnly}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", classifySQLiteError(err))
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqliteTxn struct {
	tx       *sql.Tx
	readOnly bool
}

func (t *sqliteTxn) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := t.tx.QueryRowContext(ctx, `SELECT value FROM contract_state WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", key, classifySQLiteError(err))
	}
	return value, true, nil
}

func (t *sqliteTxn) Put(ctx context.Context, key string, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if value == nil {
		value = []byte{}
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO contract_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, classifySQLiteError(err))
	}
	return nil
}

func (t *sqliteTxn) Delete(ctx context.Context, key string) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM contract_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, classifySQLiteError(err))
	}
	return nil
}

func (t *sqliteTxn) Scan(ctx context.Context, prefix string) ([]Entry, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT key, value FROM contract_state
		 WHERE substr(key, 1, length(?1)) = ?1
		 ORDER BY key`,
		prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", prefix, classifySQLiteError(err))
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func classifySQLiteError(err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return fmt.Errorf("%w: %s", ErrConflict, sqliteErr.Error())
		}
	}
	return err
}
