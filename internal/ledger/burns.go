package ledger

import (
	"context"
	"errors"

	"VestLedger/internal/asset"
	"VestLedger/internal/store"
)

// BurnRecord aggregates what one account has burned of one token.
type BurnRecord struct {
	Burner      asset.Name   `json:"burner"`
	TotalBurned asset.Amount `json:"total_burned"`
	LastMemo    string       `json:"last_memo"`
}

// ListBurns returns burner's records ordered by symbol code. An empty burner
// lists every record.
func ListBurns(ctx context.Context, r store.Reader, burner asset.Name) ([]BurnRecord, error) {
	prefix := ""
	if burner != "" {
		prefix = accountPrefix(burner)
	}
	rows, err := r.Scan(ctx, store.TableBurns, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]BurnRecord, 0, len(rows))
	for _, row := range rows {
		var rec BurnRecord
		if err := decodeRow(row, &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// BurnLog records burns inside a transaction.
type BurnLog struct {
	rw store.ReadWriter
}

func NewBurnLog(rw store.ReadWriter) *BurnLog {
	return &BurnLog{rw: rw}
}

// Record adds quantity to burner's running total and overwrites the memo.
func (b *BurnLog) Record(ctx context.Context, burner asset.Name, quantity asset.Amount, memo string) error {
	key := burnKey(burner, quantity.Symbol.Code)
	row, err := b.rw.Get(ctx, store.TableBurns, key)
	if errors.Is(err, store.ErrNotFound) {
		rec := BurnRecord{Burner: burner, TotalBurned: quantity, LastMemo: memo}
		fresh, err := encodeRow(key, burner, rec)
		if err != nil {
			return err
		}
		return b.rw.Insert(ctx, store.TableBurns, fresh)
	}
	if err != nil {
		return err
	}

	var rec BurnRecord
	if err := decodeRow(row, &rec); err != nil {
		return err
	}
	total, err := rec.TotalBurned.Add(quantity)
	if err != nil {
		return symbolError(err)
	}
	rec.TotalBurned = total
	rec.LastMemo = memo
	updated, err := encodeRow(key, "", rec)
	if err != nil {
		return err
	}
	return b.rw.Update(ctx, store.TableBurns, updated)
}
