package ledger

import (
	"encoding/json"
	"fmt"

	"VestLedger/internal/asset"
	"VestLedger/internal/store"
)

// Row keys. Balance keys are "<owner>/<CODE>" so that a prefix scan on
// "<owner>/" lists every balance of one account. Vest keys are zero-padded
// so lexical order equals id order.

func balanceKey(owner asset.Name, code asset.SymbolCode) string {
	return fmt.Sprintf("%s/%s", owner, code)
}

func accountPrefix(owner asset.Name) string {
	return string(owner) + "/"
}

func burnKey(burner asset.Name, code asset.SymbolCode) string {
	return fmt.Sprintf("%s/%s", burner, code)
}

func vestKey(id uint64) string {
	return fmt.Sprintf("%020d", id)
}

const vestCounterKey = "next_vest_id"

func decodeRow(row store.Row, v interface{}) error {
	if err := json.Unmarshal(row.Value, v); err != nil {
		return fmt.Errorf("decode row %q: %w", row.Key, err)
	}
	return nil
}

func encodeRow(key string, payer asset.Name, v interface{}) (store.Row, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return store.Row{}, fmt.Errorf("encode row %q: %w", key, err)
	}
	return store.Row{Key: key, Payer: string(payer), Value: data}, nil
}
