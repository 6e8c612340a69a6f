// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package sale

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/gridmine/gridmine/pkg/bank"
	"github.com/gridmine/gridmine/pkg/log"
)

func newTestSale(t *testing.T, destination string) (*Sale, *bank.Engine, time.Time) {
	t.Helper()
	eng := bank.NewEngine()
	start := time.Unix(1_700_000_000, 0)
	s, err := New(Config{
		BasePrice:       decimal.RequireFromString("0.001"),
		Period:          604800 * time.Second,
		PriceMultiplier: decimal.RequireFromString("1.2"),
		FloorPrice:      decimal.RequireFromString("0.001"),
		Destination:     destination,
	}, eng, nil, log.NoOp(), start)
	require.NoError(t, err)
	return s, eng, start
}

func purchaseReq(caller string, payment string, now time.Time) PurchaseRequest {
	amount := decimal.RequireFromString(payment)
	return PurchaseRequest{
		Caller:      caller,
		Deadline:    now.Add(time.Hour),
		QuotedPrice: amount,
		Payment:     amount,
	}
}

func TestPurchase(t *testing.T) {
	require := require.New(t)
	s, eng, t0 := newTestSale(t, "treasury")

	eng.SetBalance(bank.AssetNative, "buyer", decimal.NewFromInt(1))
	eng.SetBalance(bank.AssetUnit, Account, decimal.NewFromInt(500))

	price := s.CurrentPrice(t0)
	require.True(price.Equal(decimal.RequireFromString("0.001")))

	receipt, err := s.Purchase(purchaseReq("buyer", "0.001", t0), t0)
	require.NoError(err)
	require.True(receipt.Price.Equal(price))
	require.True(receipt.Units.Equal(decimal.NewFromInt(500)))
	require.False(receipt.Burned)

	require.True(eng.Balance(bank.AssetUnit, "buyer").Equal(decimal.NewFromInt(500)))
	require.True(eng.Balance(bank.AssetUnit, Account).IsZero())
	require.True(eng.Balance(bank.AssetNative, "treasury").Equal(price))

	// The round re-arms at the marked-up price.
	require.True(s.CurrentPrice(t0).Equal(decimal.RequireFromString("0.0012")))
}

func TestPurchaseBurnDestination(t *testing.T) {
	require := require.New(t)
	s, eng, t0 := newTestSale(t, bank.BurnSink)

	eng.SetBalance(bank.AssetNative, "buyer", decimal.NewFromInt(1))

	receipt, err := s.Purchase(purchaseReq("buyer", "0.001", t0), t0)
	require.NoError(err)
	require.True(receipt.Burned)
	require.True(eng.Balance(bank.AssetNative, bank.BurnSink).Equal(receipt.Price))
}

func TestPurchaseExpired(t *testing.T) {
	require := require.New(t)
	s, eng, t0 := newTestSale(t, "treasury")
	eng.SetBalance(bank.AssetNative, "buyer", decimal.NewFromInt(1))

	req := purchaseReq("buyer", "0.001", t0)
	req.Deadline = t0.Add(-time.Second)
	_, err := s.Purchase(req, t0)
	require.ErrorIs(err, ErrExpired)

	// No state change: the price is still the base price.
	require.True(s.CurrentPrice(t0).Equal(decimal.RequireFromString("0.001")))
}

func TestPurchaseUnderpaid(t *testing.T) {
	require := require.New(t)
	s, eng, t0 := newTestSale(t, "treasury")
	eng.SetBalance(bank.AssetNative, "buyer", decimal.NewFromInt(1))

	req := purchaseReq("buyer", "0.0001", t0)
	_, err := s.Purchase(req, t0)
	require.ErrorIs(err, ErrUnderpaid)

	// Unfunded caller is refused too.
	_, err = s.Purchase(purchaseReq("pauper", "0.001", t0), t0)
	require.ErrorIs(err, ErrUnderpaid)
}

func TestPurchaseDecayedPrice(t *testing.T) {
	require := require.New(t)
	s, eng, t0 := newTestSale(t, "treasury")
	eng.SetBalance(bank.AssetNative, "buyer", decimal.NewFromInt(1))

	// Buy once to push the init price above the floor, then wait out the
	// whole period: the price must be back at the floor.
	_, err := s.Purchase(purchaseReq("buyer", "0.001", t0), t0)
	require.NoError(err)

	later := t0.Add(604800 * time.Second)
	require.True(s.CurrentPrice(later).Equal(decimal.RequireFromString("0.001")))
}

func TestSaleStateRoundTrip(t *testing.T) {
	require := require.New(t)
	s, eng, t0 := newTestSale(t, "treasury")
	eng.SetBalance(bank.AssetNative, "buyer", decimal.NewFromInt(1))

	_, err := s.Purchase(purchaseReq("buyer", "0.001", t0), t0)
	require.NoError(err)

	st := s.State()
	require.True(st.InitPrice.Equal(decimal.RequireFromString("0.0012")))

	fresh, _, _ := newTestSale(t, "treasury")
	fresh.RestoreState(st)
	require.True(fresh.CurrentPrice(t0).Equal(decimal.RequireFromString("0.0012")))
}
