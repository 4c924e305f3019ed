package persistence

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ChainTip is the position a restarted engine resumes from.
type ChainTip struct {
	NextSequence int64
	StateHash    [32]byte
}

// ActionLogReader reads ledger.actions for recovery and history queries.
type ActionLogReader struct {
	db *sql.DB
}

func NewActionLogReader(db *sql.DB) *ActionLogReader {
	return &ActionLogReader{db: db}
}

// Tip returns the chain position after the last persisted receipt. found is
// false for an empty log.
func (r *ActionLogReader) Tip(ctx context.Context) (tip ChainTip, found bool, err error) {
	var seq int64
	var hash []byte
	err = r.db.QueryRowContext(ctx,
		`SELECT sequence, state_hash FROM ledger.actions ORDER BY sequence DESC LIMIT 1`,
	).Scan(&seq, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return ChainTip{}, false, nil
	}
	if err != nil {
		return ChainTip{}, false, fmt.Errorf("load chain tip: %w", err)
	}
	if len(hash) != 32 {
		return ChainTip{}, false, fmt.Errorf("receipt %d has a %d-byte state hash", seq, len(hash))
	}
	tip.NextSequence = seq + 1
	copy(tip.StateHash[:], hash)
	return tip, true, nil
}

const selectActions = `SELECT sequence, receipt_id, request_id, action_type, accounts, payload,
	vest_id, state_hash, prev_hash, committed_at FROM ledger.actions`

// LoadFrom returns up to limit receipts starting at fromSequence.
func (r *ActionLogReader) LoadFrom(ctx context.Context, fromSequence int64, limit int) ([]ActionRow, error) {
	return r.query(ctx, selectActions+` WHERE sequence >= $1 ORDER BY sequence ASC LIMIT $2`, fromSequence, limit)
}

// History returns up to limit receipts touching account, newest first,
// strictly before beforeSequence. A negative beforeSequence means no bound.
func (r *ActionLogReader) History(ctx context.Context, account string, beforeSequence int64, limit int) ([]ActionRow, error) {
	if beforeSequence < 0 {
		return r.query(ctx, selectActions+` WHERE accounts @> ARRAY[$1]::TEXT[] ORDER BY sequence DESC LIMIT $2`,
			account, limit)
	}
	return r.query(ctx, selectActions+` WHERE accounts @> ARRAY[$1]::TEXT[] AND sequence < $2 ORDER BY sequence DESC LIMIT $3`,
		account, beforeSequence, limit)
}

func (r *ActionLogReader) query(ctx context.Context, q string, args ...interface{}) ([]ActionRow, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActionRow
	for rows.Next() {
		var (
			row       ActionRow
			requestID sql.NullString
			vestID    sql.NullInt64
			payload   string
		)
		if err := rows.Scan(&row.Sequence, &row.ReceiptID, &requestID, &row.ActionType,
			pq.Array(&row.Accounts), &payload, &vestID, &row.StateHash, &row.PrevHash, &row.CommittedAt); err != nil {
			return nil, err
		}
		row.Payload = []byte(payload)
		if requestID.Valid {
			row.RequestID = &requestID.String
		}
		if vestID.Valid {
			row.VestID = &vestID.Int64
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// VerifyLinkage checks that each row's prev_hash is the previous row's
// state_hash and that sequences are contiguous.
func VerifyLinkage(rows []ActionRow) error {
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		if cur.Sequence != prev.Sequence+1 {
			return fmt.Errorf("sequence gap between %d and %d", prev.Sequence, cur.Sequence)
		}
		if !bytes.Equal(cur.PrevHash, prev.StateHash) {
			return fmt.Errorf("receipt %d does not chain from %d", cur.Sequence, prev.Sequence)
		}
	}
	return nil
}
