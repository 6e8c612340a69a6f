// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package multicall

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/gridmine/gridmine/pkg/bank"
	"github.com/gridmine/gridmine/pkg/ledger"
	"github.com/gridmine/gridmine/pkg/log"
	"github.com/gridmine/gridmine/pkg/sale"
)

func newTestMulticall(t *testing.T) (*Multicall, *bank.Engine, time.Time) {
	t.Helper()
	eng := bank.NewEngine()
	start := time.Unix(1_700_000_000, 0)
	price := decimal.RequireFromString("0.001")

	l, err := ledger.New(ledger.Config{
		Capacity:        4,
		BasePrice:       price,
		Period:          604800 * time.Second,
		PriceMultiplier: decimal.RequireFromString("1.2"),
		FloorPrice:      price,
		BaseRate:        decimal.NewFromInt(1),
		Treasury:        "treasury",
		Admin:           "admin",
	}, eng, nil, log.NoOp(), start)
	require.NoError(t, err)

	s, err := sale.New(sale.Config{
		BasePrice:       price,
		Period:          604800 * time.Second,
		PriceMultiplier: decimal.RequireFromString("1.2"),
		FloorPrice:      price,
		Destination:     bank.BurnSink,
	}, eng, nil, log.NoOp(), start)
	require.NoError(t, err)

	return New(l, s, eng), eng, start
}

func TestMineDepositsAndClaims(t *testing.T) {
	require := require.New(t)
	mc, eng, t0 := newTestMulticall(t)

	view, err := mc.GetSlot(0, t0)
	require.NoError(err)

	receipt, err := mc.Mine(ledger.ClaimRequest{
		Caller:      "user0",
		Index:       0,
		EpochID:     view.EpochID,
		Deadline:    t0.Add(time.Hour),
		QuotedPrice: view.CurrentPrice,
		Payment:     view.CurrentPrice,
		URI:         "#FF00FF",
		Referrer:    "provider0",
	}, t0)
	require.NoError(err)
	require.True(receipt.Price.Equal(decimal.RequireFromString("0.001")))
	require.True(eng.Balance(bank.AssetNative, "treasury").Equal(receipt.Price))
}

func TestFailedMineReturnsDeposit(t *testing.T) {
	require := require.New(t)
	mc, eng, t0 := newTestMulticall(t)

	view, err := mc.GetSlot(0, t0)
	require.NoError(err)

	// A stale epoch rejects the claim; the attached deposit must not stick
	// to the caller's balance.
	_, err = mc.Mine(ledger.ClaimRequest{
		Caller:      "user0",
		Index:       0,
		EpochID:     view.EpochID + 1,
		Deadline:    t0.Add(time.Hour),
		QuotedPrice: decimal.NewFromInt(1),
		Payment:     decimal.NewFromInt(1),
	}, t0)
	require.ErrorIs(err, ledger.ErrStaleEpoch)
	require.True(eng.Balance(bank.AssetNative, "user0").IsZero())

	// Any balance held before the failed call stays put.
	eng.SetBalance(bank.AssetNative, "user0", decimal.NewFromInt(5))
	_, err = mc.Mine(ledger.ClaimRequest{
		Caller:      "user0",
		Index:       0,
		EpochID:     view.EpochID,
		Deadline:    t0.Add(-time.Second),
		QuotedPrice: decimal.NewFromInt(1),
		Payment:     decimal.NewFromInt(1),
	}, t0)
	require.ErrorIs(err, ledger.ErrExpired)
	require.True(eng.Balance(bank.AssetNative, "user0").Equal(decimal.NewFromInt(5)))
}

func TestFailedBuyReturnsDeposit(t *testing.T) {
	require := require.New(t)
	mc, eng, t0 := newTestMulticall(t)

	_, err := mc.Buy(sale.PurchaseRequest{
		Caller:      "buyer",
		Deadline:    t0.Add(time.Hour),
		QuotedPrice: decimal.RequireFromString("0.0001"),
		Payment:     decimal.RequireFromString("0.0001"),
	}, t0)
	require.ErrorIs(err, sale.ErrUnderpaid)
	require.True(eng.Balance(bank.AssetNative, "buyer").IsZero())
}

func TestUnitPrice(t *testing.T) {
	require := require.New(t)
	mc, _, t0 := newTestMulticall(t)
	require.True(mc.UnitPrice(t0).Equal(decimal.RequireFromString("0.001")))
}

func TestGetSlotNormalizesURI(t *testing.T) {
	require := require.New(t)
	mc, _, t0 := newTestMulticall(t)

	view, err := mc.GetSlot(1, t0)
	require.NoError(err)
	_, err = mc.Mine(ledger.ClaimRequest{
		Caller:      "user0",
		Index:       1,
		EpochID:     view.EpochID,
		Deadline:    t0.Add(time.Hour),
		QuotedPrice: view.CurrentPrice,
		Payment:     view.CurrentPrice,
		URI:         "0xFF00FF",
	}, t0)
	require.NoError(err)

	got, err := mc.GetSlot(1, t0)
	require.NoError(err)
	require.Equal("#ff00ff", got.URI)

	// Unclaimed slots read as the default color.
	empty, err := mc.GetSlot(2, t0)
	require.NoError(err)
	require.Equal("#000000", empty.URI)

	views, err := mc.GetSlots(0, 3, t0)
	require.NoError(err)
	require.Len(views, 4)
	require.Equal("#ff00ff", views[1].URI)
	require.Equal("#000000", views[3].URI)
}

func TestGetMinerAggregate(t *testing.T) {
	require := require.New(t)
	mc, eng, t0 := newTestMulticall(t)

	view, err := mc.GetSlot(0, t0)
	require.NoError(err)
	_, err = mc.Mine(ledger.ClaimRequest{
		Caller:      "alice",
		Index:       0,
		EpochID:     view.EpochID,
		Deadline:    t0.Add(time.Hour),
		QuotedPrice: view.CurrentPrice,
		Payment:     view.CurrentPrice,
	}, t0)
	require.NoError(err)

	eng.SetBalance(bank.AssetUnit, "alice", decimal.NewFromInt(7))

	later := t0.Add(10 * time.Second)
	miner := mc.GetMiner("alice", later)
	require.True(miner.RewardRate.Equal(decimal.NewFromInt(1)))
	require.True(miner.PendingReward.Equal(decimal.NewFromInt(10)))
	require.True(miner.UnitBalance.Equal(decimal.NewFromInt(7)))
	require.True(miner.UnitPrice.Equal(decimal.RequireFromString("0.001")))
}

func TestBuyPassThrough(t *testing.T) {
	require := require.New(t)
	mc, eng, t0 := newTestMulticall(t)

	eng.SetBalance(bank.AssetUnit, sale.Account, decimal.NewFromInt(100))

	receipt, err := mc.Buy(sale.PurchaseRequest{
		Caller:      "buyer",
		Deadline:    t0.Add(time.Hour),
		QuotedPrice: decimal.RequireFromString("0.001"),
		Payment:     decimal.RequireFromString("0.001"),
	}, t0)
	require.NoError(err)
	require.True(receipt.Burned)
	require.True(eng.Balance(bank.AssetUnit, "buyer").Equal(decimal.NewFromInt(100)))
}
