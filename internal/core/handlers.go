package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"VestLedger/internal/action"
	"VestLedger/internal/asset"
	"VestLedger/internal/ledger"
	"VestLedger/internal/observability"
	"VestLedger/internal/store"
)

// MaxMemoBytes bounds every memo.
const MaxMemoBytes = 256

// execution carries one action's inputs and collected side effects. Handlers
// run checks in a fixed order; the first failure is the reported error.
type execution struct {
	engine *Engine
	tx     store.Tx
	auth   Authority
	now    time.Time

	notify []asset.Name
	vestID *uint64

	supply     *ledger.Stats
	vestOpened *asset.Symbol
	vestClosed *asset.Symbol
}

func (x *execution) dispatch(ctx context.Context, act action.Action) error {
	switch a := act.(type) {
	case *action.Create:
		return x.create(ctx, a)
	case *action.Issue:
		return x.issue(ctx, a)
	case *action.Burn:
		return x.burn(ctx, a)
	case *action.Transfer:
		return x.transfer(ctx, a)
	case *action.Vest:
		return x.vest(ctx, a)
	case *action.ClaimVest:
		return x.claimVest(ctx, a)
	case *action.Open:
		return x.open(ctx, a)
	case *action.Close:
		return x.close(ctx, a)
	default:
		return ledger.Errorf(ledger.CodeInvalidArgument, "unsupported action %T", act)
	}
}

func (x *execution) create(ctx context.Context, a *action.Create) error {
	if err := x.requireAuth(x.engine.cfg.Self); err != nil {
		return err
	}
	if !a.Issuer.IsValid() {
		return ledger.Errorf(ledger.CodeInvalidArgument, "invalid issuer name %q", a.Issuer)
	}
	maxSupply := a.MaximumSupply
	if !maxSupply.Symbol.IsValid() {
		return ledger.Errorf(ledger.CodeInvalidAmount, "invalid symbol name")
	}
	if !maxSupply.IsValid() {
		return ledger.Errorf(ledger.CodeInvalidAmount, "invalid supply")
	}
	if !maxSupply.IsPositive() {
		return ledger.Errorf(ledger.CodeInvalidAmount, "max-supply must be positive")
	}

	st := ledger.Stats{
		Supply:    asset.Zero(maxSupply.Symbol),
		MaxSupply: maxSupply,
		Issuer:    a.Issuer,
	}
	if err := ledger.NewRegistry(x.tx).Create(ctx, st, x.engine.cfg.Self); err != nil {
		return err
	}
	x.supply = &st
	return nil
}

func (x *execution) issue(ctx context.Context, a *action.Issue) error {
	q := a.Quantity
	if !q.Symbol.IsValid() {
		return ledger.Errorf(ledger.CodeInvalidAmount, "invalid symbol name")
	}
	if err := checkMemo(a.Memo); err != nil {
		return err
	}

	registry := ledger.NewRegistry(x.tx)
	st, err := registry.Get(ctx, q.Symbol.Code)
	if err != nil {
		return notFound(err, "token with symbol does not exist, create token before issue")
	}
	if a.To != st.Issuer {
		return ledger.Errorf(ledger.CodeUnauthorized, "tokens can only be issued to issuer account")
	}
	if err := x.requireAuth(st.Issuer); err != nil {
		return err
	}
	if err := checkQuantity(q, "issue"); err != nil {
		return err
	}
	if q.Symbol != st.Symbol() {
		return ledger.Errorf(ledger.CodeSymbolMismatch, "symbol precision mismatch")
	}
	if q.Magnitude > st.MaxSupply.Magnitude-st.Supply.Magnitude {
		return ledger.Errorf(ledger.CodeSupplyExceeded, "quantity exceeds available supply")
	}

	err = registry.Modify(ctx, q.Symbol.Code, func(s *ledger.Stats) error {
		next, err := s.Supply.Add(q)
		s.Supply = next
		x.supply = s
		return err
	})
	if err != nil {
		return err
	}
	return ledger.NewBalances(x.tx).Add(ctx, st.Issuer, q, st.Issuer)
}

func (x *execution) burn(ctx context.Context, a *action.Burn) error {
	if err := x.requireAuth(a.Burner); err != nil {
		return err
	}
	q := a.Quantity
	if !q.Symbol.IsValid() {
		return ledger.Errorf(ledger.CodeInvalidAmount, "invalid symbol name")
	}
	if err := checkMemo(a.Memo); err != nil {
		return err
	}

	registry := ledger.NewRegistry(x.tx)
	st, err := registry.Get(ctx, q.Symbol.Code)
	if err != nil {
		return notFound(err, "token with symbol does not exist")
	}
	if err := checkQuantity(q, "burn"); err != nil {
		return err
	}
	if q.Symbol != st.Symbol() {
		return ledger.Errorf(ledger.CodeSymbolMismatch, "symbol precision mismatch")
	}

	err = registry.Modify(ctx, q.Symbol.Code, func(s *ledger.Stats) error {
		next, err := s.Supply.Sub(q)
		s.Supply = next
		x.supply = s
		return err
	})
	if err != nil {
		return err
	}
	if err := ledger.NewBalances(x.tx).Sub(ctx, a.Burner, q); err != nil {
		return err
	}
	return ledger.NewBurnLog(x.tx).Record(ctx, a.Burner, q, a.Memo)
}

func (x *execution) transfer(ctx context.Context, a *action.Transfer) error {
	if a.From == a.To {
		return ledger.Errorf(ledger.CodeSelfTransfer, "cannot transfer to self")
	}
	if err := x.requireAuth(a.From); err != nil {
		return err
	}
	if err := x.requireAccount(ctx, a.To, "to"); err != nil {
		return err
	}
	q := a.Quantity
	st, err := ledger.GetStats(ctx, x.tx, q.Symbol.Code)
	if err != nil {
		return err
	}

	x.notify = append(x.notify, a.From, a.To)

	if err := checkQuantity(q, "transfer"); err != nil {
		return err
	}
	if q.Symbol != st.Symbol() {
		return ledger.Errorf(ledger.CodeSymbolMismatch, "symbol precision mismatch")
	}
	if err := checkMemo(a.Memo); err != nil {
		return err
	}

	payer := a.From
	if x.auth.HasAuth(a.To) {
		payer = a.To
	}

	balances := ledger.NewBalances(x.tx)
	if err := balances.Sub(ctx, a.From, q); err != nil {
		return err
	}
	return balances.Add(ctx, a.To, q, payer)
}

func (x *execution) vest(ctx context.Context, a *action.Vest) error {
	self := x.engine.cfg.Self
	if err := x.requireAuth(self); err != nil {
		return err
	}
	if err := x.requireAccount(ctx, a.To, "to"); err != nil {
		return err
	}
	if a.Seconds <= 0 || a.Seconds > ledger.MaxVestSeconds {
		return ledger.Errorf(ledger.CodeInvalidArgument, "vest_seconds must be in (0, %d]", ledger.MaxVestSeconds)
	}
	q := a.Quantity
	st, err := ledger.GetStats(ctx, x.tx, q.Symbol.Code)
	if err != nil {
		return err
	}
	if err := checkQuantity(q, "vest"); err != nil {
		return err
	}
	if q.Symbol != st.Symbol() {
		return ledger.Errorf(ledger.CodeSymbolMismatch, "symbol precision mismatch")
	}
	if err := checkMemo(a.Memo); err != nil {
		return err
	}

	// Vesting draws on the deployment's own pre-funded balance.
	if err := ledger.NewBalances(x.tx).Sub(ctx, self, q); err != nil {
		return err
	}
	rec, err := ledger.NewVesting(x.tx).Lock(ctx, a.To, q, x.now.Unix()+a.Seconds, self)
	if err != nil {
		return err
	}

	id := rec.ID
	x.vestID = &id
	x.vestOpened = &q.Symbol
	x.notify = append(x.notify, a.To)
	return nil
}

func (x *execution) claimVest(ctx context.Context, a *action.ClaimVest) error {
	q := a.Quantity
	if err := checkQuantity(q, "claim"); err != nil {
		return err
	}

	vesting := ledger.NewVesting(x.tx)
	rec, err := vesting.Get(ctx, a.ID)
	if err != nil {
		return err
	}
	a.Receiver = rec.Receiver
	if err := x.requireAuth(rec.Receiver); err != nil {
		return err
	}
	if q.Symbol != rec.VestedBalance.Symbol {
		return ledger.Errorf(ledger.CodeSymbolMismatch, "symbol precision mismatch")
	}
	if q.Magnitude > rec.VestedBalance.Magnitude {
		return ledger.Errorf(ledger.CodeOverdrawn, "claim %s exceeds vested balance %s", q, rec.VestedBalance)
	}
	if !rec.Matured(x.now) {
		return ledger.Errorf(ledger.CodeImmature, "vest %d matures at %d", rec.ID, rec.VestedUntil)
	}

	after, err := vesting.Release(ctx, a.ID, q)
	if err != nil {
		return err
	}
	if after.State() == ledger.VestClosed {
		x.vestClosed = &q.Symbol
	}
	if err := ledger.NewBalances(x.tx).Add(ctx, rec.Receiver, q, x.engine.cfg.Self); err != nil {
		return err
	}
	x.notify = append(x.notify, rec.Receiver)
	return nil
}

func (x *execution) open(ctx context.Context, a *action.Open) error {
	if err := x.requireAuth(a.Payer); err != nil {
		return err
	}
	if err := x.requireAccount(ctx, a.Owner, "owner"); err != nil {
		return err
	}
	st, err := ledger.GetStats(ctx, x.tx, a.Symbol.Code)
	if err != nil {
		return notFound(err, "symbol does not exist")
	}
	if a.Symbol != st.Symbol() {
		return ledger.Errorf(ledger.CodeSymbolMismatch, "symbol precision mismatch")
	}
	_, err = ledger.NewBalances(x.tx).Open(ctx, a.Owner, a.Symbol, a.Payer)
	return err
}

func (x *execution) close(ctx context.Context, a *action.Close) error {
	if err := x.requireAuth(a.Owner); err != nil {
		return err
	}
	return ledger.NewBalances(x.tx).Close(ctx, a.Owner, a.Symbol.Code)
}

func (x *execution) requireAuth(name asset.Name) error {
	if !x.auth.HasAuth(name) {
		return ledger.Errorf(ledger.CodeUnauthorized, "missing authority of %s", name)
	}
	return nil
}

func (x *execution) requireAccount(ctx context.Context, name asset.Name, role string) error {
	if !name.IsValid() {
		return ledger.Errorf(ledger.CodeNotFound, "%s account %q does not exist", role, name)
	}
	ok, err := x.engine.directory.IsAccount(ctx, name)
	if err != nil {
		return fmt.Errorf("resolve %s account: %w", role, err)
	}
	if !ok {
		return ledger.Errorf(ledger.CodeNotFound, "%s account %s does not exist", role, name)
	}
	return nil
}

// observe records token-state metrics once the action has committed.
func (x *execution) observe(m *observability.Metrics) {
	if x.supply != nil {
		f, _ := x.supply.Supply.Decimal().Float64()
		m.Supply.WithLabelValues(string(x.supply.Symbol().Code)).Set(f)
	}
	if x.vestOpened != nil {
		m.VestsOpened.WithLabelValues(string(x.vestOpened.Code)).Inc()
	}
	if x.vestClosed != nil {
		m.VestsClosed.WithLabelValues(string(x.vestClosed.Code)).Inc()
	}
}

func checkQuantity(q asset.Amount, verb string) error {
	if !q.IsValid() {
		return ledger.Errorf(ledger.CodeInvalidAmount, "invalid quantity")
	}
	if !q.IsPositive() {
		return ledger.Errorf(ledger.CodeInvalidAmount, "must %s positive quantity", verb)
	}
	return nil
}

// notFound rewords a missing-row error and passes anything else through.
func notFound(err error, msg string) error {
	if errors.Is(err, ledger.ErrNotFound) {
		return ledger.Errorf(ledger.CodeNotFound, "%s", msg)
	}
	return err
}

func checkMemo(memo string) error {
	if len(memo) > MaxMemoBytes {
		return ledger.Errorf(ledger.CodeMemoTooLong, "memo has more than %d bytes", MaxMemoBytes)
	}
	return nil
}
