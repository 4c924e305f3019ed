package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VestLedger/internal/action"
	"VestLedger/internal/asset"
	"VestLedger/internal/core"
	"VestLedger/internal/directory"
	"VestLedger/internal/persistence"
	"VestLedger/internal/store/postgres"
	"VestLedger/internal/testutil"
)

func TestActionLog_PersistAndRecover(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, persistence.NewMigrator(db, testutil.MigrationsDir(t), zerolog.Nop()).Up(ctx))

	dir := directory.NewPostgres(db)
	for _, n := range []asset.Name{"vestledger", "issuer", "alice"} {
		require.NoError(t, dir.Register(ctx, n))
	}

	persistCh := make(chan *core.Receipt, 16)
	engine := core.NewEngine(core.Config{Self: "vestledger", InvariantCheckInterval: 1}, core.Deps{
		Backend:     postgres.New(db),
		Directory:   dir,
		Clock:       core.NewManualClock(time.Unix(1_700_000_000, 0).UTC()),
		DBChecker:   persistence.NewPostgresIdempotencyChecker(db),
		PersistChan: persistCh,
	})

	amt := asset.MustParseAmount
	_, err := engine.Create(ctx, core.NewSigners("vestledger"), "issuer", amt("1000.0000 SYM"))
	require.NoError(t, err)
	_, err = engine.Apply(ctx, core.Request{
		RequestID: "issue-1",
		Auth:      core.NewSigners("issuer"),
		Action:    &action.Issue{To: "issuer", Quantity: amt("500.0000 SYM")},
	})
	require.NoError(t, err)
	_, err = engine.Transfer(ctx, core.NewSigners("issuer"), "issuer", "alice", amt("5.0000 SYM"), "")
	require.NoError(t, err)
	close(persistCh)

	worker := persistence.NewPersistenceWorker(db, persistCh, 2, 50*time.Millisecond, nil, zerolog.Nop())
	require.NoError(t, worker.Run(ctx))

	reader := persistence.NewActionLogReader(db)
	tip, found, err := reader.Tip(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(3), tip.NextSequence)
	assert.Equal(t, engine.StateHash(), tip.StateHash)

	rows, err := reader.LoadFrom(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.NoError(t, persistence.VerifyLinkage(rows))

	history, err := reader.History(ctx, "alice", -1, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "transfer", history[0].ActionType)

	dup, err := persistence.NewPostgresIdempotencyChecker(db).IsDuplicate(ctx, "issue-1")
	require.NoError(t, err)
	assert.True(t, dup)
}
