package ledger

import (
	"context"
	"errors"

	"VestLedger/internal/asset"
	"VestLedger/internal/store"
)

// Account is one spendable balance row, keyed by (owner, symbol code).
type Account struct {
	Owner   asset.Name   `json:"owner"`
	Balance asset.Amount `json:"balance"`
}

// GetAccount loads owner's balance row for code.
func GetAccount(ctx context.Context, r store.Reader, owner asset.Name, code asset.SymbolCode) (*Account, error) {
	row, err := r.Get(ctx, store.TableBalances, balanceKey(owner, code))
	if errors.Is(err, store.ErrNotFound) {
		return nil, Errorf(CodeNotFound, "no balance object found for %s in %s", owner, code)
	}
	if err != nil {
		return nil, err
	}
	var acc Account
	if err := decodeRow(row, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// ListAccounts returns owner's balance rows ordered by code. An empty owner
// lists every row.
func ListAccounts(ctx context.Context, r store.Reader, owner asset.Name) ([]Account, error) {
	prefix := ""
	if owner != "" {
		prefix = accountPrefix(owner)
	}
	rows, err := r.Scan(ctx, store.TableBalances, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]Account, 0, len(rows))
	for _, row := range rows {
		var acc Account
		if err := decodeRow(row, &acc); err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, nil
}

// Balances mutates the balance table inside a transaction.
type Balances struct {
	rw store.ReadWriter
}

func NewBalances(rw store.ReadWriter) *Balances {
	return &Balances{rw: rw}
}

func (b *Balances) Get(ctx context.Context, owner asset.Name, code asset.SymbolCode) (*Account, error) {
	return GetAccount(ctx, b.rw, owner, code)
}

// Sub removes value from owner's row. The row must exist and hold at least
// value. A row reaching zero is kept.
func (b *Balances) Sub(ctx context.Context, owner asset.Name, value asset.Amount) error {
	acc, err := b.Get(ctx, owner, value.Symbol.Code)
	if err != nil {
		return err
	}
	next, err := acc.Balance.Sub(value)
	if err != nil {
		return symbolError(err)
	}
	if next.Magnitude < 0 {
		return Errorf(CodeOverdrawn, "%s has %s, needs %s", owner, acc.Balance, value)
	}
	acc.Balance = next
	return b.put(ctx, *acc, "", false)
}

// Add credits value to owner, creating the row with payer as storage owner
// if absent.
func (b *Balances) Add(ctx context.Context, owner asset.Name, value asset.Amount, payer asset.Name) error {
	acc, err := b.Get(ctx, owner, value.Symbol.Code)
	if errors.Is(err, ErrNotFound) {
		return b.put(ctx, Account{Owner: owner, Balance: value}, payer, true)
	}
	if err != nil {
		return err
	}
	next, err := acc.Balance.Add(value)
	if err != nil {
		return symbolError(err)
	}
	acc.Balance = next
	return b.put(ctx, *acc, "", false)
}

// Open creates a zero row for owner if none exists. It reports whether a
// row was created.
func (b *Balances) Open(ctx context.Context, owner asset.Name, sym asset.Symbol, payer asset.Name) (bool, error) {
	_, err := b.Get(ctx, owner, sym.Code)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if err := b.put(ctx, Account{Owner: owner, Balance: asset.Zero(sym)}, payer, true); err != nil {
		return false, err
	}
	return true, nil
}

// Close deletes owner's row. The row must exist and be zero.
func (b *Balances) Close(ctx context.Context, owner asset.Name, code asset.SymbolCode) error {
	acc, err := b.Get(ctx, owner, code)
	if err != nil {
		return Errorf(CodeNotFound, "balance row already deleted or never existed")
	}
	if !acc.Balance.IsZero() {
		return Errorf(CodeNonZeroBalance, "cannot close because the balance is not zero")
	}
	return b.rw.Delete(ctx, store.TableBalances, balanceKey(owner, code))
}

func (b *Balances) put(ctx context.Context, acc Account, payer asset.Name, insert bool) error {
	row, err := encodeRow(balanceKey(acc.Owner, acc.Balance.Symbol.Code), payer, acc)
	if err != nil {
		return err
	}
	if insert {
		return b.rw.Insert(ctx, store.TableBalances, row)
	}
	return b.rw.Update(ctx, store.TableBalances, row)
}

// symbolError maps amount arithmetic failures onto ledger codes.
func symbolError(err error) error {
	switch {
	case errors.Is(err, asset.ErrSymbolMismatch):
		return &Error{Code: CodeSymbolMismatch, Msg: err.Error()}
	case errors.Is(err, asset.ErrAmountOverflow):
		return &Error{Code: CodeInvalidAmount, Msg: err.Error()}
	default:
		return err
	}
}
