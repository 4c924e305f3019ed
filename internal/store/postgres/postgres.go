package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"VestLedger/internal/store"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store implements store.Backend on the ledger.rows table.
// Schema is created by migrations/000001_ledger.up.sql.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, table store.Table, key string) (store.Row, error) {
	return get(ctx, s.db, table, key, false)
}

func (s *Store) Scan(ctx context.Context, table store.Table, prefix string) ([]store.Row, error) {
	return scan(ctx, s.db, table, prefix)
}

// Begin opens a SERIALIZABLE transaction.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &tx{tx: sqlTx}, nil
}

// Close is a no-op; the caller owns the *sql.DB.
func (s *Store) Close() error {
	return nil
}

type tx struct {
	tx *sql.Tx
}

// Get locks the row for the remainder of the transaction.
func (t *tx) Get(ctx context.Context, table store.Table, key string) (store.Row, error) {
	return get(ctx, t.tx, table, key, true)
}

func (t *tx) Scan(ctx context.Context, table store.Table, prefix string) ([]store.Row, error) {
	return scan(ctx, t.tx, table, prefix)
}

func (t *tx) Insert(ctx context.Context, table store.Table, row store.Row) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO ledger.rows (tbl, key, payer, value, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, string(table), row.Key, row.Payer, row.Value)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return store.ErrDuplicateKey
		}
		return fmt.Errorf("insert %s/%s: %w", table, row.Key, err)
	}
	return nil
}

func (t *tx) Update(ctx context.Context, table store.Table, row store.Row) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE ledger.rows
		SET value = $3, payer = COALESCE(NULLIF($4, ''), payer), updated_at = NOW()
		WHERE tbl = $1 AND key = $2
	`, string(table), row.Key, row.Value, row.Payer)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", table, row.Key, err)
	}
	return requireAffected(res)
}

func (t *tx) Delete(ctx context.Context, table store.Table, key string) error {
	res, err := t.tx.ExecContext(ctx, `
		DELETE FROM ledger.rows WHERE tbl = $1 AND key = $2
	`, string(table), key)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", table, key, err)
	}
	return requireAffected(res)
}

func (t *tx) Commit(_ context.Context) error {
	if err := t.tx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return store.ErrTxDone
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback on a finished tx is a no-op so it can be deferred.
func (t *tx) Rollback(_ context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

func get(ctx context.Context, q querier, table store.Table, key string, forUpdate bool) (store.Row, error) {
	query := `SELECT payer, value FROM ledger.rows WHERE tbl = $1 AND key = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	row := store.Row{Key: key}
	err := q.QueryRowContext(ctx, query, string(table), key).Scan(&row.Payer, &row.Value)
	if err == sql.ErrNoRows {
		return store.Row{}, store.ErrNotFound
	}
	if err != nil {
		return store.Row{}, fmt.Errorf("get %s/%s: %w", table, key, err)
	}
	return row, nil
}

func scan(ctx context.Context, q querier, table store.Table, prefix string) ([]store.Row, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT key, payer, value
		FROM ledger.rows
		WHERE tbl = $1 AND left(key, length($2)) = $2
		ORDER BY key COLLATE "C" ASC
	`, string(table), prefix)
	if err != nil {
		return nil, fmt.Errorf("scan %s/%s: %w", table, prefix, err)
	}
	defer rows.Close()

	var out []store.Row
	for rows.Next() {
		var r store.Row
		if err := rows.Scan(&r.Key, &r.Payer, &r.Value); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

var _ store.Backend = (*Store)(nil)
