package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps contract state in the contract_state table.
//
// Update transactions run at SERIALIZABLE isolation and every read takes a
// row lock with SELECT … FOR UPDATE. Two calls touching the same contract
// therefore either queue behind each other on the row lock or, when one of
// them inserts a key the other read as missing, one fails with a
// serialization error. That error is reported as ErrConflict so the caller
// can re-run the whole call.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore over an open pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Update runs fn in a serializable read/write transaction.
func (s *PostgresStore) Update(ctx context.Context, fn func(Txn) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, false, fn)
}

// View runs fn in a read-only transaction.
func (s *PostgresStore) View(ctx context.Context, fn func(Txn) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, true, fn)
}

func (s *PostgresStore) run(ctx context.Context, opts pgx.TxOptions, readOnly bool, fn func(Txn) error) (err error) {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(&pgTxn{tx: tx, readOnly: readOnly}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", classifyPgError(err))
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

type pgTxn struct {
	tx       pgx.Tx
	readOnly bool
}

func (t *pgTxn) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := `SELECT value FROM contract_state WHERE key = $1 FOR UPDATE`
	if t.readOnly {
		query = `SELECT value FROM contract_state WHERE key = $1`
	}
	var value []byte
	err := t.tx.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", key, classifyPgError(err))
	}
	return value, true, nil
}

func (t *pgTxn) Put(ctx context.Context, key string, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if value == nil {
		value = []byte{}
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO contract_state (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, classifyPgError(err))
	}
	return nil
}

func (t *pgTxn) Delete(ctx context.Context, key string) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM contract_state WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, classifyPgError(err))
	}
	return nil
}

func (t *pgTxn) Scan(ctx context.Context, prefix string) ([]Entry, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT key, value FROM contract_state
		 WHERE starts_with(key, $1)
		 ORDER BY key COLLATE "C"`,
		prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", prefix, classifyPgError(err))
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
	return entries, classifyPgError(rows.Err())
}

// classifyPgError maps serialization failures and deadlocks to ErrConflict.
func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.Message)
		}
	}
	return err
}
