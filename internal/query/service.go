package query

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"VestLedger/internal/asset"
	"VestLedger/internal/core"
	"VestLedger/internal/ledger"
	"VestLedger/internal/observability"
	"VestLedger/internal/persistence"
	"VestLedger/internal/store"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// ErrHistoryUnavailable is returned by History when no action log is
// configured (in-memory deployments).
var ErrHistoryUnavailable = errors.New("action history is not available")

// HistorySource reads persisted receipts for one account, newest first.
type HistorySource interface {
	History(ctx context.Context, account string, beforeSequence int64, limit int) ([]persistence.ActionRow, error)
}

// Watermark reports the last committed sequence.
type Watermark interface {
	Sequence() int64
}

// QueryService provides read-only access to committed ledger state.
type QueryService struct {
	store     store.Reader
	clock     core.Clock
	watermark Watermark
	history   HistorySource
	metrics   *observability.Metrics
}

// NewQueryService builds a query service. history and metrics may be nil.
func NewQueryService(r store.Reader, clock core.Clock, watermark Watermark, history HistorySource, metrics *observability.Metrics) *QueryService {
	return &QueryService{
		store:     r,
		clock:     clock,
		watermark: watermark,
		history:   history,
		metrics:   metrics,
	}
}

// GetSupply returns the circulating supply of code.
func (qs *QueryService) GetSupply(ctx context.Context, code asset.SymbolCode) (resp *SupplyResponse, err error) {
	defer qs.observe("get_supply", time.Now(), &err)
	asOf := qs.asOf()

	st, err := ledger.GetStats(ctx, qs.store, code)
	if err != nil {
		return nil, err
	}
	return &SupplyResponse{
		Symbol:       st.Symbol().String(),
		Supply:       st.Supply.String(),
		AsOfSequence: asOf,
	}, nil
}

// GetStats returns the registry row of code.
func (qs *QueryService) GetStats(ctx context.Context, code asset.SymbolCode) (resp *StatsResponse, err error) {
	defer qs.observe("get_stats", time.Now(), &err)
	asOf := qs.asOf()

	st, err := ledger.GetStats(ctx, qs.store, code)
	if err != nil {
		return nil, err
	}
	return statsResponse(*st, asOf), nil
}

// ListStats returns every token ordered by symbol code.
func (qs *QueryService) ListStats(ctx context.Context) (resp []StatsResponse, err error) {
	defer qs.observe("list_stats", time.Now(), &err)
	asOf := qs.asOf()

	stats, err := ledger.ListStats(ctx, qs.store)
	if err != nil {
		return nil, err
	}
	out := make([]StatsResponse, 0, len(stats))
	for _, st := range stats {
		out = append(out, *statsResponse(st, asOf))
	}
	return out, nil
}

// GetBalance returns owner's free balance of code.
func (qs *QueryService) GetBalance(ctx context.Context, owner asset.Name, code asset.SymbolCode) (resp *BalanceResponse, err error) {
	defer qs.observe("get_balance", time.Now(), &err)
	asOf := qs.asOf()

	acc, err := ledger.GetAccount(ctx, qs.store, owner, code)
	if err != nil {
		return nil, err
	}
	return &BalanceResponse{
		Owner:        string(acc.Owner),
		Balance:      acc.Balance.String(),
		AsOfSequence: asOf,
	}, nil
}

// ListBalances returns every balance row owner holds.
func (qs *QueryService) ListBalances(ctx context.Context, owner asset.Name) (resp []BalanceResponse, err error) {
	defer qs.observe("list_balances", time.Now(), &err)
	asOf := qs.asOf()

	accounts, err := ledger.ListAccounts(ctx, qs.store, owner)
	if err != nil {
		return nil, err
	}
	out := make([]BalanceResponse, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, BalanceResponse{
			Owner:        string(acc.Owner),
			Balance:      acc.Balance.String(),
			AsOfSequence: asOf,
		})
	}
	return out, nil
}

// GetVest returns one live vest record.
func (qs *QueryService) GetVest(ctx context.Context, id uint64) (resp *VestResponse, err error) {
	defer qs.observe("get_vest", time.Now(), &err)
	asOf := qs.asOf()

	v, err := ledger.GetVest(ctx, qs.store, id)
	if err != nil {
		return nil, err
	}
	return qs.vestResponse(*v, asOf), nil
}

// ListVests returns receiver's live vest records ordered by id.
func (qs *QueryService) ListVests(ctx context.Context, receiver asset.Name) (resp []VestResponse, err error) {
	defer qs.observe("list_vests", time.Now(), &err)
	asOf := qs.asOf()

	vests, err := ledger.ListVests(ctx, qs.store, receiver)
	if err != nil {
		return nil, err
	}
	out := make([]VestResponse, 0, len(vests))
	for _, v := range vests {
		out = append(out, *qs.vestResponse(v, asOf))
	}
	return out, nil
}

// ListBurns returns burner's burn aggregates.
func (qs *QueryService) ListBurns(ctx context.Context, burner asset.Name) (resp []BurnResponse, err error) {
	defer qs.observe("list_burns", time.Now(), &err)
	asOf := qs.asOf()

	burns, err := ledger.ListBurns(ctx, qs.store, burner)
	if err != nil {
		return nil, err
	}
	out := make([]BurnResponse, 0, len(burns))
	for _, b := range burns {
		out = append(out, BurnResponse{
			Burner:       string(b.Burner),
			TotalBurned:  b.TotalBurned.String(),
			LastMemo:     b.LastMemo,
			AsOfSequence: asOf,
		})
	}
	return out, nil
}

// History returns receipts touching account, newest first, with cursor
// pagination: pass the last seen sequence as beforeSequence, or -1 for the
// newest page.
func (qs *QueryService) History(ctx context.Context, account asset.Name, beforeSequence int64, limit int) (resp []HistoryEntry, err error) {
	defer qs.observe("history", time.Now(), &err)
	if qs.history == nil {
		return nil, ErrHistoryUnavailable
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	rows, err := qs.history.History(ctx, string(account), beforeSequence, limit)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, 0, len(rows))
	for _, r := range rows {
		e := HistoryEntry{
			Sequence:    r.Sequence,
			ReceiptID:   r.ReceiptID,
			Action:      r.ActionType,
			Accounts:    r.Accounts,
			Data:        r.Payload,
			VestID:      r.VestID,
			StateHash:   hex.EncodeToString(r.StateHash),
			CommittedAt: r.CommittedAt,
		}
		if r.RequestID != nil {
			e.RequestID = *r.RequestID
		}
		out = append(out, e)
	}
	return out, nil
}

// --- Admin APIs ---

// VerifyIntegrity recomputes supply conservation over committed state.
func (qs *QueryService) VerifyIntegrity(ctx context.Context) (resp *IntegrityReport, err error) {
	defer qs.observe("verify_integrity", time.Now(), &err)
	asOf := qs.asOf()

	v := ledger.NewInvariantValidator(qs.store)
	reports, err := v.Reports(ctx)
	if err != nil {
		return nil, err
	}
	report := &IntegrityReport{IsHealthy: true, Supplies: reports, AsOfSequence: asOf}
	if verr := v.Validate(ctx); verr != nil {
		if !errors.Is(verr, ledger.ErrInvariant) {
			return nil, verr
		}
		report.IsHealthy = false
		report.Violation = verr.Error()
	}
	return report, nil
}

// --- helpers ---

func (qs *QueryService) asOf() int64 {
	if qs.watermark == nil {
		return 0
	}
	return qs.watermark.Sequence()
}

func (qs *QueryService) vestResponse(v ledger.VestRecord, asOf int64) *VestResponse {
	return &VestResponse{
		ID:            v.ID,
		Receiver:      string(v.Receiver),
		VestedBalance: v.VestedBalance.String(),
		Granted:       v.Granted.String(),
		VestedUntil:   v.VestedUntil,
		State:         v.State().String(),
		Matured:       v.Matured(qs.clock.Now()),
		AsOfSequence:  asOf,
	}
}

func statsResponse(st ledger.Stats, asOf int64) *StatsResponse {
	return &StatsResponse{
		Symbol:       st.Symbol().String(),
		Supply:       st.Supply.String(),
		MaxSupply:    st.MaxSupply.String(),
		Issuer:       string(st.Issuer),
		AsOfSequence: asOf,
	}
}

func (qs *QueryService) observe(method string, start time.Time, err *error) {
	if qs.metrics == nil {
		return
	}
	qs.metrics.QueryRequests.WithLabelValues(method).Inc()
	qs.metrics.QueryDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if *err != nil {
		qs.metrics.QueryErrors.WithLabelValues(method).Inc()
	}
}
