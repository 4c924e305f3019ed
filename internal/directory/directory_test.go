package directory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VestLedger/internal/asset"
	"VestLedger/internal/directory"
)

func TestStatic_IsAccount(t *testing.T) {
	ctx := context.Background()
	d := directory.NewStatic("alice")

	ok, err := d.IsAccount(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = d.IsAccount(ctx, "bob")
	assert.False(t, ok)

	d.Add("bob")
	d.Add("Not.Valid")
	ok, _ = d.IsAccount(ctx, "bob")
	assert.True(t, ok)
	ok, _ = d.IsAccount(ctx, "Not.Valid")
	assert.False(t, ok)
}

func TestParseList(t *testing.T) {
	names, err := directory.ParseList(" alice, bob ,,vestledger")
	require.NoError(t, err)
	assert.Equal(t, []asset.Name{"alice", "bob", "vestledger"}, names)

	_, err = directory.ParseList("alice,BOB")
	assert.ErrorIs(t, err, asset.ErrInvalidName)
}
