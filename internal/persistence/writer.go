package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"VestLedger/internal/core"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ActionRow represents a row in ledger.actions
type ActionRow struct {
	Sequence    int64
	ReceiptID   string
	RequestID   *string
	ActionType  string
	Accounts    []string
	Payload     []byte // JSON-encoded action
	VestID      *int64
	StateHash   []byte
	PrevHash    []byte
	CommittedAt time.Time
}

// RowFromReceipt flattens a receipt for storage.
func RowFromReceipt(r *core.Receipt) (ActionRow, error) {
	payload, err := r.Payload()
	if err != nil {
		return ActionRow{}, fmt.Errorf("encode receipt %d: %w", r.Sequence, err)
	}
	accounts := make([]string, len(r.Accounts))
	for i, a := range r.Accounts {
		accounts[i] = string(a)
	}
	var requestID *string
	if r.RequestID != "" {
		id := r.RequestID
		requestID = &id
	}
	var vestID *int64
	if r.VestID != nil {
		id := int64(*r.VestID)
		vestID = &id
	}
	return ActionRow{
		Sequence:    r.Sequence,
		ReceiptID:   r.ReceiptID.String(),
		RequestID:   requestID,
		ActionType:  r.Type().String(),
		Accounts:    accounts,
		Payload:     payload,
		VestID:      vestID,
		StateHash:   r.StateHash[:],
		PrevHash:    r.PrevHash[:],
		CommittedAt: r.CommittedAt,
	}, nil
}

// ActionLogWriter writes receipts to ledger.actions using multi-row INSERT.
type ActionLogWriter struct {
	db *sql.DB
}

func NewActionLogWriter(db *sql.DB) *ActionLogWriter {
	return &ActionLogWriter{db: db}
}

const actionColumns = 10

// WriteBatch inserts rows through ex. Rows already present by sequence are
// skipped, so a retried batch is harmless.
func (w *ActionLogWriter) WriteBatch(ctx context.Context, ex execer, rows []ActionRow) error {
	if len(rows) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(`INSERT INTO ledger.actions
		(sequence, receipt_id, request_id, action_type, accounts, payload, vest_id, state_hash, prev_hash, committed_at)
		VALUES `)

	args := make([]interface{}, 0, len(rows)*actionColumns)
	for i, r := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		base := i * actionColumns
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10)
		args = append(args,
			r.Sequence, r.ReceiptID, r.RequestID, r.ActionType, pq.Array(r.Accounts),
			string(r.Payload), r.VestID, r.StateHash, r.PrevHash, r.CommittedAt,
		)
	}
	b.WriteString(" ON CONFLICT (sequence) DO NOTHING")

	_, err := ex.ExecContext(ctx, b.String(), args...)
	return err
}
