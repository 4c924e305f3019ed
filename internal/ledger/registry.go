package ledger

import (
	"context"
	"errors"

	"VestLedger/internal/asset"
	"VestLedger/internal/store"
)

// Stats is the registry row for one token, keyed by symbol code.
type Stats struct {
	Supply    asset.Amount `json:"supply"`
	MaxSupply asset.Amount `json:"max_supply"`
	Issuer    asset.Name   `json:"issuer"`
}

// Symbol returns the token's full symbol.
func (s Stats) Symbol() asset.Symbol {
	return s.MaxSupply.Symbol
}

// GetStats loads the registry row for code.
func GetStats(ctx context.Context, r store.Reader, code asset.SymbolCode) (*Stats, error) {
	row, err := r.Get(ctx, store.TableRegistry, string(code))
	if errors.Is(err, store.ErrNotFound) {
		return nil, Errorf(CodeNotFound, "token with symbol %s does not exist", code)
	}
	if err != nil {
		return nil, err
	}
	var st Stats
	if err := decodeRow(row, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ListStats returns every registered token ordered by code.
func ListStats(ctx context.Context, r store.Reader) ([]Stats, error) {
	rows, err := r.Scan(ctx, store.TableRegistry, "")
	if err != nil {
		return nil, err
	}
	out := make([]Stats, 0, len(rows))
	for _, row := range rows {
		var st Stats
		if err := decodeRow(row, &st); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// Registry mutates the token registry inside a transaction.
type Registry struct {
	rw store.ReadWriter
}

func NewRegistry(rw store.ReadWriter) *Registry {
	return &Registry{rw: rw}
}

func (r *Registry) Get(ctx context.Context, code asset.SymbolCode) (*Stats, error) {
	return GetStats(ctx, r.rw, code)
}

// Create registers a new token. Fails AlreadyExists if the code is taken,
// regardless of precision.
func (r *Registry) Create(ctx context.Context, st Stats, payer asset.Name) error {
	code := st.Symbol().Code
	row, err := encodeRow(string(code), payer, st)
	if err != nil {
		return err
	}
	err = r.rw.Insert(ctx, store.TableRegistry, row)
	if errors.Is(err, store.ErrDuplicateKey) {
		return Errorf(CodeAlreadyExists, "token with symbol %s already exists", code)
	}
	return err
}

// Modify reads the row for code, applies fn to a copy and writes the result
// back. Nothing is written if fn fails.
func (r *Registry) Modify(ctx context.Context, code asset.SymbolCode, fn func(*Stats) error) error {
	st, err := r.Get(ctx, code)
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	row, err := encodeRow(string(code), "", st)
	if err != nil {
		return err
	}
	return r.rw.Update(ctx, store.TableRegistry, row)
}
