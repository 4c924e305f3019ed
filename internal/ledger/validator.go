package ledger

import (
	"context"
	"sort"

	"VestLedger/internal/asset"
	"VestLedger/internal/store"
)

// SupplyReport breaks one token's supply down by where it sits.
type SupplyReport struct {
	Symbol asset.Symbol `json:"symbol"`
	Supply int64        `json:"supply"`
	Free   int64        `json:"free"`
	Locked int64        `json:"locked"`
}

// Balanced reports whether supply equals free plus locked.
func (r SupplyReport) Balanced() bool {
	return r.Supply == r.Free+r.Locked
}

// InvariantValidator checks ledger invariants against a consistent view.
type InvariantValidator struct {
	r store.Reader
}

func NewInvariantValidator(r store.Reader) *InvariantValidator {
	return &InvariantValidator{r: r}
}

// Reports computes per-token totals ordered by symbol code.
func (v *InvariantValidator) Reports(ctx context.Context) ([]SupplyReport, error) {
	stats, err := ListStats(ctx, v.r)
	if err != nil {
		return nil, err
	}
	reports := make(map[asset.SymbolCode]*SupplyReport, len(stats))
	for _, st := range stats {
		reports[st.Symbol().Code] = &SupplyReport{Symbol: st.Symbol(), Supply: st.Supply.Magnitude}
	}

	accounts, err := ListAccounts(ctx, v.r, "")
	if err != nil {
		return nil, err
	}
	for _, acc := range accounts {
		rep, ok := reports[acc.Balance.Symbol.Code]
		if !ok {
			return nil, Errorf(CodeInvariant, "balance of %s held by %s has no registry row", acc.Balance.Symbol, acc.Owner)
		}
		rep.Free += acc.Balance.Magnitude
	}

	vests, err := ListVests(ctx, v.r, "")
	if err != nil {
		return nil, err
	}
	for _, vr := range vests {
		rep, ok := reports[vr.VestedBalance.Symbol.Code]
		if !ok {
			return nil, Errorf(CodeInvariant, "vest %d of %s has no registry row", vr.ID, vr.VestedBalance.Symbol)
		}
		rep.Locked += vr.VestedBalance.Magnitude
	}

	out := make([]SupplyReport, 0, len(reports))
	for _, rep := range reports {
		out = append(out, *rep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol.Code < out[j].Symbol.Code })
	return out, nil
}

// ValidateConservation verifies supply == balances + vested for every token.
func (v *InvariantValidator) ValidateConservation(ctx context.Context) error {
	reports, err := v.Reports(ctx)
	if err != nil {
		return err
	}
	for _, rep := range reports {
		if !rep.Balanced() {
			return Errorf(CodeInvariant, "%s supply %d != free %d + locked %d",
				rep.Symbol.Code, rep.Supply, rep.Free, rep.Locked)
		}
	}
	return nil
}

// ValidateRows checks per-row bounds: supply within [0, max], balances
// non-negative, and live vests strictly positive.
func (v *InvariantValidator) ValidateRows(ctx context.Context) error {
	stats, err := ListStats(ctx, v.r)
	if err != nil {
		return err
	}
	for _, st := range stats {
		if st.Supply.Magnitude < 0 || st.Supply.Magnitude > st.MaxSupply.Magnitude {
			return Errorf(CodeInvariant, "%s supply %s outside [0, %s]", st.Symbol().Code, st.Supply, st.MaxSupply)
		}
	}

	accounts, err := ListAccounts(ctx, v.r, "")
	if err != nil {
		return err
	}
	for _, acc := range accounts {
		if acc.Balance.Magnitude < 0 {
			return Errorf(CodeInvariant, "%s has negative balance %s", acc.Owner, acc.Balance)
		}
	}

	vests, err := ListVests(ctx, v.r, "")
	if err != nil {
		return err
	}
	for _, vr := range vests {
		if !vr.VestedBalance.IsPositive() {
			return Errorf(CodeInvariant, "vest %d has non-positive balance %s", vr.ID, vr.VestedBalance)
		}
	}
	return nil
}

// Validate runs every check.
func (v *InvariantValidator) Validate(ctx context.Context) error {
	if err := v.ValidateRows(ctx); err != nil {
		return err
	}
	return v.ValidateConservation(ctx)
}
