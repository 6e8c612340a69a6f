// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package bank

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestTransfer(t *testing.T) {
	require := require.New(t)
	e := NewEngine()

	e.SetBalance(AssetNative, "alice", decimal.NewFromInt(100))

	err := e.Transfer(AssetNative, "alice", "bob", decimal.NewFromInt(40))
	require.NoError(err)
	require.True(e.Balance(AssetNative, "alice").Equal(decimal.NewFromInt(60)))
	require.True(e.Balance(AssetNative, "bob").Equal(decimal.NewFromInt(40)))
}

func TestTransferInsufficient(t *testing.T) {
	require := require.New(t)
	e := NewEngine()

	e.SetBalance(AssetNative, "alice", decimal.NewFromInt(10))

	err := e.Transfer(AssetNative, "alice", "bob", decimal.NewFromInt(11))
	require.ErrorIs(err, ErrInsufficientBalance)
	require.True(e.Balance(AssetNative, "alice").Equal(decimal.NewFromInt(10)))
	require.True(e.Balance(AssetNative, "bob").IsZero())
}

func TestTransferNonPositive(t *testing.T) {
	require := require.New(t)
	e := NewEngine()

	require.ErrorIs(e.Transfer(AssetNative, "a", "b", decimal.Zero), ErrNonPositiveAmount)
	require.ErrorIs(e.Transfer(AssetNative, "a", "b", decimal.NewFromInt(-1)), ErrNonPositiveAmount)
}

func TestMintAndBurn(t *testing.T) {
	require := require.New(t)
	e := NewEngine()

	require.NoError(e.Mint(AssetUnit, "alice", decimal.NewFromInt(5)))
	require.True(e.Balance(AssetUnit, "alice").Equal(decimal.NewFromInt(5)))

	require.NoError(e.Burn(AssetUnit, "alice", decimal.NewFromInt(3)))
	require.True(e.Balance(AssetUnit, "alice").Equal(decimal.NewFromInt(2)))

	require.ErrorIs(e.Burn(AssetUnit, "alice", decimal.NewFromInt(10)), ErrInsufficientBalance)
}

func TestBurnSinkUnspendable(t *testing.T) {
	require := require.New(t)
	e := NewEngine()

	e.SetBalance(AssetNative, "alice", decimal.NewFromInt(10))
	require.NoError(e.Transfer(AssetNative, "alice", BurnSink, decimal.NewFromInt(10)))
	require.True(e.Balance(AssetNative, BurnSink).Equal(decimal.NewFromInt(10)))

	err := e.Transfer(AssetNative, BurnSink, "bob", decimal.NewFromInt(1))
	require.ErrorIs(err, ErrInsufficientBalance)
}

func TestSnapshotRestore(t *testing.T) {
	require := require.New(t)
	e := NewEngine()

	e.SetBalance(AssetNative, "alice", decimal.NewFromInt(7))
	e.SetBalance(AssetUnit, "bob", decimal.RequireFromString("1.5"))

	snap := e.Snapshot()

	// Mutating the snapshot must not touch the engine.
	snap[AssetNative]["alice"] = decimal.Zero
	require.True(e.Balance(AssetNative, "alice").Equal(decimal.NewFromInt(7)))

	restored := NewEngine()
	restored.Restore(e.Snapshot())
	require.True(restored.Balance(AssetNative, "alice").Equal(decimal.NewFromInt(7)))
	require.True(restored.Balance(AssetUnit, "bob").Equal(decimal.RequireFromString("1.5")))
}
