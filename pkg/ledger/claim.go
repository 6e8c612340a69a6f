// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gridmine/gridmine/pkg/bank"
)

// ClaimRequest is one candidate claim as submitted by a caller. QuotedPrice
// is the ceiling the caller is willing to settle at and Payment is the value
// attached to the call; both must cover the live price at commit time.
type ClaimRequest struct {
	Caller      string
	Index       int
	EpochID     uint64
	Deadline    time.Time
	QuotedPrice decimal.Decimal
	Payment     decimal.Decimal
	URI         string
	Referrer    string
}

// ClaimReceipt describes a committed claim.
type ClaimReceipt struct {
	Index        int             `json:"index"`
	EpochID      uint64          `json:"epoch_id"` // epoch id after the claim
	Price        decimal.Decimal `json:"price"`    // exact settle price
	Refund       decimal.Decimal `json:"refund"`
	PrevOwner    string          `json:"prev_owner,omitempty"`
	SettledUnits decimal.Decimal `json:"settled_units"`
}

// Claim attempts to take over a slot at the instant now. Preconditions are
// checked in order before any mutation: index bounds, deadline, epoch token,
// price coverage. On success the departing owner's accrued units are settled,
// the settle price moves to the treasury, any overpayment stays with the
// caller, and the slot re-arms at price * PriceMultiplier with a fresh epoch.
// The operation either fully commits or leaves no trace.
func (l *Ledger) Claim(req ClaimRequest, now time.Time) (ClaimReceipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if req.Index < 0 || req.Index >= len(l.slots) {
		l.reject("invalid_index")
		return ClaimReceipt{}, ErrInvalidIndex
	}
	s := l.slots[req.Index]

	if now.After(req.Deadline) {
		l.reject("expired")
		return ClaimReceipt{}, ErrExpired
	}
	if req.EpochID != s.EpochID {
		l.reject("stale_epoch")
		return ClaimReceipt{}, ErrStaleEpoch
	}

	price := l.priceLocked(s, now)
	if req.Payment.LessThan(price) || req.QuotedPrice.LessThan(price) {
		l.reject("underpaid")
		return ClaimReceipt{}, ErrUnderpaid
	}
	// The attached payment must actually be there before anything mutates.
	if l.bank.Balance(bank.AssetNative, req.Caller).LessThan(price) {
		l.reject("underpaid")
		return ClaimReceipt{}, ErrUnderpaid
	}

	// Forward the exact settle price; the remainder of the attached payment
	// never leaves the caller's balance, which is the refund. The transfer
	// must commit before any other effect: the bank is shared with the
	// standalone sale, so the balance pre-check above can go stale and this
	// is the only step here that can still fail.
	if err := l.bank.Transfer(bank.AssetNative, req.Caller, l.treasury, price); err != nil {
		return ClaimReceipt{}, err
	}

	// Settle the departing owner using the weight in force for this round.
	prevOwner := s.Owner
	settled := l.accruedLocked(s, now)
	if prevOwner != "" && settled.GreaterThan(decimal.Zero) {
		if err := l.bank.Mint(bank.AssetUnit, prevOwner, settled); err != nil {
			return ClaimReceipt{}, err
		}
	}

	s.Owner = req.Caller
	s.StartTime = now
	s.EpochID++
	s.InitPrice = price.Mul(l.cfg.PriceMultiplier)
	s.URI = req.URI // stored verbatim, normalized on read
	s.Multiplier = l.multipliers[req.Index]

	receipt := ClaimReceipt{
		Index:        req.Index,
		EpochID:      s.EpochID,
		Price:        price,
		Refund:       req.Payment.Sub(price),
		PrevOwner:    prevOwner,
		SettledUnits: settled,
	}

	l.commitMetrics(receipt)
	l.log.Info("slot claimed",
		"index", req.Index,
		"epoch", s.EpochID,
		"price", price.String(),
		"owner", req.Caller,
		"prev_owner", prevOwner,
		"settled_units", settled.String(),
	)
	l.publish(ClaimEvent{
		Index:        req.Index,
		EpochID:      s.EpochID,
		Price:        price,
		Owner:        req.Caller,
		PrevOwner:    prevOwner,
		URI:          req.URI,
		Referrer:     req.Referrer,
		SettledUnits: settled,
		Time:         now,
	})

	return receipt, nil
}

func (l *Ledger) reject(reason string) {
	if l.metrics != nil {
		l.metrics.ClaimsRejected.WithLabelValues(reason).Inc()
	}
}

func (l *Ledger) commitMetrics(r ClaimReceipt) {
	if l.metrics == nil {
		return
	}
	l.metrics.ClaimsCommitted.WithLabelValues(strconv.Itoa(r.Index)).Inc()
	price, _ := r.Price.Float64()
	l.metrics.ClaimPrice.Observe(price)
	if r.SettledUnits.GreaterThan(decimal.Zero) {
		units, _ := r.SettledUnits.Float64()
		l.metrics.SettledUnits.Observe(units)
	}
	owned := 0
	for _, s := range l.slots {
		if s.Owner != "" {
			owned++
		}
	}
	l.metrics.SlotsOwned.Set(float64(owned))
}
