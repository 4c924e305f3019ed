package ledger

import (
	"context"
	"errors"
	"time"

	"VestLedger/internal/asset"
	"VestLedger/internal/store"
)

// MaxVestSeconds caps a lock duration at ten years.
const MaxVestSeconds int64 = 315_360_000

// VestState is the lifecycle of a vest record.
type VestState uint8

const (
	VestLocked VestState = iota
	VestPartiallyClaimed
	VestClosed
)

func (s VestState) String() string {
	switch s {
	case VestLocked:
		return "LOCKED"
	case VestPartiallyClaimed:
		return "PARTIALLY_CLAIMED"
	case VestClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// VestRecord is a time-locked balance awaiting claim by its receiver.
type VestRecord struct {
	ID            uint64       `json:"id"`
	VestedBalance asset.Amount `json:"vested_balance"`
	Granted       asset.Amount `json:"granted"`
	Receiver      asset.Name   `json:"receiver"`
	VestedUntil   int64        `json:"vested_until"`
}

// Matured reports whether the lock has expired at now. The boundary second
// is mature.
func (v VestRecord) Matured(now time.Time) bool {
	return now.Unix() >= v.VestedUntil
}

// State derives the lifecycle state of a live record.
func (v VestRecord) State() VestState {
	if v.VestedBalance.IsZero() {
		return VestClosed
	}
	if v.VestedBalance.Magnitude < v.Granted.Magnitude {
		return VestPartiallyClaimed
	}
	return VestLocked
}

// GetVest loads a vest record by id.
func GetVest(ctx context.Context, r store.Reader, id uint64) (*VestRecord, error) {
	row, err := r.Get(ctx, store.TableVesting, vestKey(id))
	if errors.Is(err, store.ErrNotFound) {
		return nil, Errorf(CodeNotFound, "vest id %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	var v VestRecord
	if err := decodeRow(row, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVests returns live vest records ordered by id. A non-empty receiver
// filters the result.
func ListVests(ctx context.Context, r store.Reader, receiver asset.Name) ([]VestRecord, error) {
	rows, err := r.Scan(ctx, store.TableVesting, "")
	if err != nil {
		return nil, err
	}
	out := make([]VestRecord, 0, len(rows))
	for _, row := range rows {
		var v VestRecord
		if err := decodeRow(row, &v); err != nil {
			return nil, err
		}
		if receiver != "" && v.Receiver != receiver {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Vesting mutates the vesting table inside a transaction.
type Vesting struct {
	rw store.ReadWriter
}

func NewVesting(rw store.ReadWriter) *Vesting {
	return &Vesting{rw: rw}
}

func (v *Vesting) Get(ctx context.Context, id uint64) (*VestRecord, error) {
	return GetVest(ctx, v.rw, id)
}

// Lock inserts a new record under a freshly allocated id.
func (v *Vesting) Lock(ctx context.Context, receiver asset.Name, quantity asset.Amount, until int64, payer asset.Name) (VestRecord, error) {
	id, err := v.nextID(ctx)
	if err != nil {
		return VestRecord{}, err
	}
	rec := VestRecord{
		ID:            id,
		VestedBalance: quantity,
		Granted:       quantity,
		Receiver:      receiver,
		VestedUntil:   until,
	}
	row, err := encodeRow(vestKey(id), payer, rec)
	if err != nil {
		return VestRecord{}, err
	}
	if err := v.rw.Insert(ctx, store.TableVesting, row); err != nil {
		return VestRecord{}, err
	}
	return rec, nil
}

// Release takes quantity out of record id. A record drained to zero is
// deleted. It returns the record as it stands afterwards.
func (v *Vesting) Release(ctx context.Context, id uint64, quantity asset.Amount) (VestRecord, error) {
	rec, err := v.Get(ctx, id)
	if err != nil {
		return VestRecord{}, err
	}
	next, err := rec.VestedBalance.Sub(quantity)
	if err != nil {
		return VestRecord{}, symbolError(err)
	}
	if next.Magnitude < 0 {
		return VestRecord{}, Errorf(CodeOverdrawn, "claim %s exceeds vested balance %s", quantity, rec.VestedBalance)
	}
	rec.VestedBalance = next
	if next.IsZero() {
		if err := v.rw.Delete(ctx, store.TableVesting, vestKey(id)); err != nil {
			return VestRecord{}, err
		}
		return *rec, nil
	}
	row, err := encodeRow(vestKey(id), "", rec)
	if err != nil {
		return VestRecord{}, err
	}
	if err := v.rw.Update(ctx, store.TableVesting, row); err != nil {
		return VestRecord{}, err
	}
	return *rec, nil
}

// nextID allocates from a monotonic counter. Ids are never reused, even
// after the record they named is closed.
func (v *Vesting) nextID(ctx context.Context) (uint64, error) {
	var next uint64
	row, err := v.rw.Get(ctx, store.TableMeta, vestCounterKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		counter, err := encodeRow(vestCounterKey, "", uint64(1))
		if err != nil {
			return 0, err
		}
		return 0, v.rw.Insert(ctx, store.TableMeta, counter)
	case err != nil:
		return 0, err
	}
	if err := decodeRow(row, &next); err != nil {
		return 0, err
	}
	counter, err := encodeRow(vestCounterKey, "", next+1)
	if err != nil {
		return 0, err
	}
	if err := v.rw.Update(ctx, store.TableMeta, counter); err != nil {
		return 0, err
	}
	return next, nil
}
