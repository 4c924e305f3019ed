package query_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VestLedger/internal/asset"
	"VestLedger/internal/core"
	"VestLedger/internal/directory"
	"VestLedger/internal/ledger"
	"VestLedger/internal/observability"
	"VestLedger/internal/persistence"
	"VestLedger/internal/query"
	"VestLedger/internal/store/memory"
)

const self asset.Name = "vestledger"

var epoch = time.Unix(1_700_000_000, 0).UTC()

type fakeHistory struct {
	rows    []persistence.ActionRow
	account string
	before  int64
	limit   int
}

func (f *fakeHistory) History(_ context.Context, account string, before int64, limit int) ([]persistence.ActionRow, error) {
	f.account, f.before, f.limit = account, before, limit
	return f.rows, nil
}

type fixture struct {
	store   *memory.Store
	engine  *core.Engine
	clock   *core.ManualClock
	history *fakeHistory
	qs      *query.QueryService
}

// newFixture creates SYM, issues 500 to the issuer, transfers 100 to alice,
// burns 10 from alice and vests 50 to bob for one hour.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   memory.New(),
		clock:   core.NewManualClock(epoch),
		history: &fakeHistory{},
	}
	f.engine = core.NewEngine(core.Config{Self: self, InvariantCheckInterval: 1}, core.Deps{
		Backend:   f.store,
		Directory: directory.NewStatic(self, "issuer", "alice", "bob"),
		Clock:     f.clock,
	})
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	f.qs = query.NewQueryService(f.store, f.clock, f.engine, f.history, metrics)

	ctx := context.Background()
	amt := asset.MustParseAmount
	_, err := f.engine.Create(ctx, core.NewSigners(self), "issuer", amt("1000.0000 SYM"))
	require.NoError(t, err)
	_, err = f.engine.Issue(ctx, core.NewSigners("issuer"), "issuer", amt("500.0000 SYM"), "")
	require.NoError(t, err)
	_, err = f.engine.Transfer(ctx, core.NewSigners("issuer"), "issuer", "alice", amt("100.0000 SYM"), "")
	require.NoError(t, err)
	_, err = f.engine.Burn(ctx, core.NewSigners("alice"), "alice", amt("10.0000 SYM"), "gone")
	require.NoError(t, err)
	_, err = f.engine.Transfer(ctx, core.NewSigners("issuer"), "issuer", self, amt("50.0000 SYM"), "fund")
	require.NoError(t, err)
	_, err = f.engine.Vest(ctx, core.NewSigners(self), "bob", amt("50.0000 SYM"), 3600, "")
	require.NoError(t, err)
	return f
}

func TestQuery_SupplyAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	supply, err := f.qs.GetSupply(ctx, "SYM")
	require.NoError(t, err)
	assert.Equal(t, "490.0000 SYM", supply.Supply)
	assert.Equal(t, "4,SYM", supply.Symbol)
	assert.Equal(t, f.engine.Sequence(), supply.AsOfSequence)

	stats, err := f.qs.GetStats(ctx, "SYM")
	require.NoError(t, err)
	assert.Equal(t, "1000.0000 SYM", stats.MaxSupply)
	assert.Equal(t, "issuer", stats.Issuer)

	all, err := f.qs.ListStats(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.qs.GetSupply(ctx, "NOPE")
	assert.True(t, errors.Is(err, ledger.ErrNotFound))
}

func TestQuery_Balances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bal, err := f.qs.GetBalance(ctx, "alice", "SYM")
	require.NoError(t, err)
	assert.Equal(t, "90.0000 SYM", bal.Balance)

	_, err = f.qs.GetBalance(ctx, "bob", "SYM")
	assert.True(t, errors.Is(err, ledger.ErrNotFound))

	list, err := f.qs.ListBalances(ctx, "issuer")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "350.0000 SYM", list[0].Balance)
}

func TestQuery_Vests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.qs.GetVest(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "bob", v.Receiver)
	assert.Equal(t, "50.0000 SYM", v.VestedBalance)
	assert.Equal(t, "LOCKED", v.State)
	assert.False(t, v.Matured)

	f.clock.Advance(time.Hour)
	vests, err := f.qs.ListVests(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, vests, 1)
	assert.True(t, vests[0].Matured)

	none, err := f.qs.ListVests(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestQuery_Burns(t *testing.T) {
	f := newFixture(t)

	burns, err := f.qs.ListBurns(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, burns, 1)
	assert.Equal(t, "10.0000 SYM", burns[0].TotalBurned)
	assert.Equal(t, "gone", burns[0].LastMemo)
}

func TestQuery_HistoryLimits(t *testing.T) {
	f := newFixture(t)
	reqID := "req-1"
	f.history.rows = []persistence.ActionRow{{
		Sequence:   3,
		ReceiptID:  "r",
		RequestID:  &reqID,
		ActionType: "burn",
		Accounts:   []string{"alice"},
		Payload:    []byte(`{"burner":"alice"}`),
		StateHash:  []byte{0xab},
	}}

	entries, err := f.qs.History(context.Background(), "alice", -1, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0].RequestID)
	assert.Equal(t, "ab", entries[0].StateHash)
	assert.Equal(t, query.DefaultHistoryLimit, f.history.limit)
	assert.Equal(t, int64(-1), f.history.before)

	_, err = f.qs.History(context.Background(), "alice", 10, 10_000)
	require.NoError(t, err)
	assert.Equal(t, query.MaxHistoryLimit, f.history.limit)
}

func TestQuery_HistoryUnavailable(t *testing.T) {
	qs := query.NewQueryService(memory.New(), core.SystemClock{}, nil, nil, nil)
	_, err := qs.History(context.Background(), "alice", -1, 10)
	assert.ErrorIs(t, err, query.ErrHistoryUnavailable)
}

func TestQuery_VerifyIntegrity(t *testing.T) {
	f := newFixture(t)

	report, err := f.qs.VerifyIntegrity(context.Background())
	require.NoError(t, err)
	assert.True(t, report.IsHealthy)
	require.Len(t, report.Supplies, 1)
	assert.True(t, report.Supplies[0].Balanced())
	assert.Equal(t, report.Supplies[0].Free+report.Supplies[0].Locked, report.Supplies[0].Supply)
}
