// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package multicall is the batch read/write facade over the ledger, the
// standalone sale, and the balance engine. It is the layer that normalizes
// slot uris for display; the ledger itself stores them verbatim.
package multicall

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gridmine/gridmine/pkg/bank"
	"github.com/gridmine/gridmine/pkg/colors"
	"github.com/gridmine/gridmine/pkg/ledger"
	"github.com/gridmine/gridmine/pkg/sale"
)

// MinerView aggregates everything a frontend shows for one address.
type MinerView struct {
	Address       string          `json:"address"`
	RewardRate    decimal.Decimal `json:"reward_rate"` // units per second across owned slots
	UnitPrice     decimal.Decimal `json:"unit_price"`  // live standalone sale price
	PendingReward decimal.Decimal `json:"pending_reward"`
	UnitBalance   decimal.Decimal `json:"unit_balance"`
	NativeBalance decimal.Decimal `json:"native_balance"`
}

// Multicall bundles the readable and claimable surfaces.
type Multicall struct {
	ledger *ledger.Ledger
	sale   *sale.Sale
	bank   *bank.Engine
}

// New creates the facade.
func New(l *ledger.Ledger, s *sale.Sale, eng *bank.Engine) *Multicall {
	return &Multicall{ledger: l, sale: s, bank: eng}
}

// GetSlot returns the slot view with its uri normalized to a color code.
func (m *Multicall) GetSlot(index int, now time.Time) (ledger.SlotView, error) {
	view, err := m.ledger.GetSlot(index, now)
	if err != nil {
		return ledger.SlotView{}, err
	}
	view.URI = colors.Normalize(view.URI)
	return view, nil
}

// GetSlots returns the inclusive range [from, to], uris normalized.
func (m *Multicall) GetSlots(from, to int, now time.Time) ([]ledger.SlotView, error) {
	views, err := m.ledger.GetSlots(from, to, now)
	if err != nil {
		return nil, err
	}
	for i := range views {
		views[i].URI = colors.Normalize(views[i].URI)
	}
	return views, nil
}

// GetMiner returns the aggregate state for one address.
func (m *Multicall) GetMiner(addr string, now time.Time) MinerView {
	return MinerView{
		Address:       addr,
		RewardRate:    m.ledger.RewardRate(addr),
		UnitPrice:     m.sale.CurrentPrice(now),
		PendingReward: m.ledger.PendingReward(addr, now),
		UnitBalance:   m.bank.Balance(bank.AssetUnit, addr),
		NativeBalance: m.bank.Balance(bank.AssetNative, addr),
	}
}

// UnitPrice returns the live standalone sale price.
func (m *Multicall) UnitPrice(now time.Time) decimal.Decimal {
	return m.sale.CurrentPrice(now)
}

// GetMultipliers returns the live weight table.
func (m *Multicall) GetMultipliers() []decimal.Decimal {
	return m.ledger.Multipliers()
}

// Mine deposits the attached payment for the caller and submits the claim.
// A rejected claim returns the deposit, so a failed call leaves the caller's
// balance untouched. The referrer is carried through on the claim event for
// any downstream revenue share; the ledger routes the full payment to the
// treasury.
func (m *Multicall) Mine(req ledger.ClaimRequest, now time.Time) (ledger.ClaimReceipt, error) {
	if err := m.deposit(req.Caller, req.Payment); err != nil {
		return ledger.ClaimReceipt{}, err
	}
	receipt, err := m.ledger.Claim(req, now)
	if err != nil {
		m.revertDeposit(req.Caller, req.Payment)
		return ledger.ClaimReceipt{}, err
	}
	return receipt, nil
}

// Buy deposits the attached payment for the caller and submits the purchase.
// A rejected purchase returns the deposit.
func (m *Multicall) Buy(req sale.PurchaseRequest, now time.Time) (sale.PurchaseReceipt, error) {
	if err := m.deposit(req.Caller, req.Payment); err != nil {
		return sale.PurchaseReceipt{}, err
	}
	receipt, err := m.sale.Purchase(req, now)
	if err != nil {
		m.revertDeposit(req.Caller, req.Payment)
		return sale.PurchaseReceipt{}, err
	}
	return receipt, nil
}

func (m *Multicall) deposit(caller string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	return m.bank.Mint(bank.AssetNative, caller, amount)
}

// revertDeposit undoes a deposit after a failed operation. A failed claim or
// purchase mutates nothing, so the deposit is still in the caller's balance.
func (m *Multicall) revertDeposit(caller string, amount decimal.Decimal) {
	if amount.GreaterThan(decimal.Zero) {
		_ = m.bank.Burn(bank.AssetNative, caller, amount)
	}
}
