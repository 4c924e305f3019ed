package query

import (
	"encoding/json"
	"time"

	"VestLedger/internal/ledger"
)

// All responses carry as_of_sequence: the sequence the engine would assign
// next when the read started, so every lower receipt is reflected.

// SupplyResponse is the circulating supply of one token.
type SupplyResponse struct {
	Symbol       string `json:"symbol"`
	Supply       string `json:"supply"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// StatsResponse is the full registry row for one token.
type StatsResponse struct {
	Symbol       string `json:"symbol"`
	Supply       string `json:"supply"`
	MaxSupply    string `json:"max_supply"`
	Issuer       string `json:"issuer"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// BalanceResponse is one account's free balance of one token.
type BalanceResponse struct {
	Owner        string `json:"owner"`
	Balance      string `json:"balance"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// VestResponse represents a vest record for API queries.
type VestResponse struct {
	ID            uint64 `json:"id"`
	Receiver      string `json:"receiver"`
	VestedBalance string `json:"vested_balance"`
	Granted       string `json:"granted"`
	VestedUntil   int64  `json:"vested_until"`
	State         string `json:"state"`
	Matured       bool   `json:"matured"`
	AsOfSequence  int64  `json:"as_of_sequence"`
}

// BurnResponse represents a burn aggregate for API queries.
type BurnResponse struct {
	Burner       string `json:"burner"`
	TotalBurned  string `json:"total_burned"`
	LastMemo     string `json:"last_memo"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// HistoryEntry is one persisted receipt touching an account.
type HistoryEntry struct {
	Sequence    int64           `json:"sequence"`
	ReceiptID   string          `json:"receipt_id"`
	RequestID   string          `json:"request_id,omitempty"`
	Action      string          `json:"action"`
	Accounts    []string        `json:"accounts"`
	Data        json.RawMessage `json:"data"`
	VestID      *int64          `json:"vest_id,omitempty"`
	StateHash   string          `json:"state_hash"`
	CommittedAt time.Time       `json:"committed_at"`
}

// IntegrityReport is the result of an integrity verification check.
type IntegrityReport struct {
	IsHealthy    bool                  `json:"is_healthy"`
	Supplies     []ledger.SupplyReport `json:"supplies"`
	Violation    string                `json:"violation,omitempty"`
	AsOfSequence int64                 `json:"as_of_sequence"`
}
