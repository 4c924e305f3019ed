package core

import (
	"context"

	"VestLedger/internal/action"
	"VestLedger/internal/asset"
)

// Typed entry points over Apply. Each runs as one atomic action without a
// request id.

func (e *Engine) Create(ctx context.Context, auth Authority, issuer asset.Name, maximumSupply asset.Amount) (*Receipt, error) {
	return e.Apply(ctx, Request{Auth: auth, Action: &action.Create{Issuer: issuer, MaximumSupply: maximumSupply}})
}

func (e *Engine) Issue(ctx context.Context, auth Authority, to asset.Name, quantity asset.Amount, memo string) (*Receipt, error) {
	return e.Apply(ctx, Request{Auth: auth, Action: &action.Issue{To: to, Quantity: quantity, Memo: memo}})
}

func (e *Engine) Burn(ctx context.Context, auth Authority, burner asset.Name, quantity asset.Amount, memo string) (*Receipt, error) {
	return e.Apply(ctx, Request{Auth: auth, Action: &action.Burn{Burner: burner, Quantity: quantity, Memo: memo}})
}

func (e *Engine) Transfer(ctx context.Context, auth Authority, from, to asset.Name, quantity asset.Amount, memo string) (*Receipt, error) {
	return e.Apply(ctx, Request{Auth: auth, Action: &action.Transfer{From: from, To: to, Quantity: quantity, Memo: memo}})
}

// Vest returns the id of the new vest record.
func (e *Engine) Vest(ctx context.Context, auth Authority, to asset.Name, quantity asset.Amount, seconds int64, memo string) (uint64, error) {
	r, err := e.Apply(ctx, Request{Auth: auth, Action: &action.Vest{To: to, Quantity: quantity, Seconds: seconds, Memo: memo}})
	if err != nil {
		return 0, err
	}
	return *r.VestID, nil
}

func (e *Engine) ClaimVest(ctx context.Context, auth Authority, id uint64, quantity asset.Amount) (*Receipt, error) {
	return e.Apply(ctx, Request{Auth: auth, Action: &action.ClaimVest{ID: id, Quantity: quantity}})
}

func (e *Engine) Open(ctx context.Context, auth Authority, owner asset.Name, symbol asset.Symbol, payer asset.Name) (*Receipt, error) {
	return e.Apply(ctx, Request{Auth: auth, Action: &action.Open{Owner: owner, Symbol: symbol, Payer: payer}})
}

func (e *Engine) Close(ctx context.Context, auth Authority, owner asset.Name, symbol asset.Symbol) (*Receipt, error) {
	return e.Apply(ctx, Request{Auth: auth, Action: &action.Close{Owner: owner, Symbol: symbol}})
}
