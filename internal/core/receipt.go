package core

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"VestLedger/internal/action"
	"VestLedger/internal/asset"
)

// Receipt is the record of one committed action.
type Receipt struct {
	// Global monotonic sequence assigned by the engine
	Sequence int64

	ReceiptID uuid.UUID

	// Caller-supplied de-duplication key, may be empty
	RequestID string

	Action   action.Action
	Accounts []asset.Name

	// Set for vest actions only
	VestID *uint64

	CommittedAt time.Time

	// SHA-256 chained over every previous receipt
	StateHash [32]byte
	PrevHash  [32]byte
}

// Type returns the action discriminator.
func (r *Receipt) Type() action.Type {
	return r.Action.Type()
}

// Payload is the JSON encoding of the action.
func (r *Receipt) Payload() ([]byte, error) {
	return json.Marshal(r.Action)
}

// digest is the deterministic input to the hash chain.
func (r *Receipt) digest() ([]byte, error) {
	payload, err := r.Payload()
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", r.Type(), err)
	}
	buf := make([]byte, 0, len(payload)+32)
	buf = append(buf, r.Type().String()...)
	buf = append(buf, 0)
	buf = append(buf, payload...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(r.CommittedAt.Unix()))
	if r.VestID != nil {
		buf = binary.LittleEndian.AppendUint64(buf, *r.VestID)
	}
	return buf, nil
}

type receiptJSON struct {
	Sequence    int64           `json:"sequence"`
	ReceiptID   string          `json:"receipt_id"`
	RequestID   string          `json:"request_id,omitempty"`
	Action      string          `json:"action"`
	Data        json.RawMessage `json:"data"`
	Accounts    []asset.Name    `json:"accounts"`
	VestID      *uint64         `json:"vest_id,omitempty"`
	CommittedAt time.Time       `json:"committed_at"`
	StateHash   string          `json:"state_hash"`
	PrevHash    string          `json:"prev_hash"`
}

func (r *Receipt) MarshalJSON() ([]byte, error) {
	payload, err := r.Payload()
	if err != nil {
		return nil, err
	}
	return json.Marshal(receiptJSON{
		Sequence:    r.Sequence,
		ReceiptID:   r.ReceiptID.String(),
		RequestID:   r.RequestID,
		Action:      r.Type().String(),
		Data:        payload,
		Accounts:    r.Accounts,
		VestID:      r.VestID,
		CommittedAt: r.CommittedAt,
		StateHash:   hex.EncodeToString(r.StateHash[:]),
		PrevHash:    hex.EncodeToString(r.PrevHash[:]),
	})
}
