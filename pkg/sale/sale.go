// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sale implements the standalone decaying-price sale: a single
// perpetual auction round selling the sale account's unit reserve for the
// payment asset, with the same decay and markup mechanics as slot claims but
// no ownership, epoch token, or reward accrual.
package sale

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gridmine/gridmine/pkg/bank"
	"github.com/gridmine/gridmine/pkg/log"
	"github.com/gridmine/gridmine/pkg/metric"
	"github.com/gridmine/gridmine/pkg/pricing"
)

var (
	ErrExpired   = errors.New("deadline expired")
	ErrUnderpaid = errors.New("payment below current price")
)

// Account holds the unit reserve offered by the sale.
const Account = "sale:reserve"

// Config fixes the sale's parameters at construction. Destination receives
// every payment and is immutable; bank.BurnSink makes the sale a burner.
type Config struct {
	BasePrice       decimal.Decimal
	Period          time.Duration
	PriceMultiplier decimal.Decimal
	FloorPrice      decimal.Decimal
	Destination     string
	Curve           pricing.Curve
}

// PurchaseRequest is one candidate purchase.
type PurchaseRequest struct {
	Caller      string
	Deadline    time.Time
	QuotedPrice decimal.Decimal
	Payment     decimal.Decimal
}

// PurchaseReceipt describes a committed purchase.
type PurchaseReceipt struct {
	Price  decimal.Decimal `json:"price"`
	Refund decimal.Decimal `json:"refund"`
	Units  decimal.Decimal `json:"units"` // unit reserve handed to the caller
	Burned bool            `json:"burned"`
}

// Sale is the single global sale instance. Purchases are serialized by its
// own lock; there is no epoch token because the price is re-validated at
// commit time under the lock.
type Sale struct {
	mu        sync.RWMutex
	cfg       Config
	initPrice decimal.Decimal
	startTime time.Time
	bank      *bank.Engine
	metrics   *metric.Metrics
	log       log.Logger
}

// New creates a sale whose first round opens at start.
func New(cfg Config, eng *bank.Engine, metrics *metric.Metrics, logger log.Logger, start time.Time) (*Sale, error) {
	if cfg.Period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if cfg.FloorPrice.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("floor price must be positive")
	}
	if cfg.Destination == "" {
		return nil, errors.New("destination is empty")
	}
	if logger == nil {
		logger = log.NoOp()
	}
	return &Sale{
		cfg:       cfg,
		initPrice: cfg.BasePrice,
		startTime: start,
		bank:      eng,
		metrics:   metrics,
		log:       logger,
	}, nil
}

// Destination returns the immutable payment destination.
func (s *Sale) Destination() string {
	return s.cfg.Destination
}

// CurrentPrice returns the asking price at the given instant.
func (s *Sale) CurrentPrice(now time.Time) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.priceLocked(now)
}

// Purchase buys the sale's entire unit reserve at the live price. The exact
// price moves to the destination (or is burned), any overpayment stays with
// the caller, and the round re-arms at price * PriceMultiplier.
func (s *Sale) Purchase(req PurchaseRequest, now time.Time) (PurchaseReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.After(req.Deadline) {
		s.reject("expired")
		return PurchaseReceipt{}, ErrExpired
	}

	price := s.priceLocked(now)
	if req.Payment.LessThan(price) || req.QuotedPrice.LessThan(price) {
		s.reject("underpaid")
		return PurchaseReceipt{}, ErrUnderpaid
	}
	if s.bank.Balance(bank.AssetNative, req.Caller).LessThan(price) {
		s.reject("underpaid")
		return PurchaseReceipt{}, ErrUnderpaid
	}

	burned := s.cfg.Destination == bank.BurnSink
	if err := s.bank.Transfer(bank.AssetNative, req.Caller, s.cfg.Destination, price); err != nil {
		return PurchaseReceipt{}, err
	}

	// Hand the whole unit reserve to the buyer.
	units := s.bank.Balance(bank.AssetUnit, Account)
	if units.GreaterThan(decimal.Zero) {
		if err := s.bank.Transfer(bank.AssetUnit, Account, req.Caller, units); err != nil {
			return PurchaseReceipt{}, err
		}
	}

	s.initPrice = price.Mul(s.cfg.PriceMultiplier)
	s.startTime = now

	if s.metrics != nil {
		s.metrics.PurchasesCommitted.Inc()
	}
	s.log.Info("sale purchase",
		"price", price.String(),
		"units", units.String(),
		"buyer", req.Caller,
		"burned", burned,
	)

	return PurchaseReceipt{
		Price:  price,
		Refund: req.Payment.Sub(price),
		Units:  units,
		Burned: burned,
	}, nil
}

// State is the serializable mutable state of the sale.
type State struct {
	InitPrice decimal.Decimal `json:"init_price"`
	StartTime time.Time       `json:"start_time"`
}

// State returns the sale's mutable state.
func (s *Sale) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{InitPrice: s.initPrice, StartTime: s.startTime}
}

// RestoreState replaces the sale's mutable state with a snapshot.
func (s *Sale) RestoreState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.InitPrice.GreaterThan(decimal.Zero) {
		s.initPrice = st.InitPrice
		s.startTime = st.StartTime
	}
}

func (s *Sale) priceLocked(now time.Time) decimal.Decimal {
	return pricing.CurrentPrice(pricing.Params{
		InitPrice:  s.initPrice,
		StartTime:  s.startTime,
		Period:     s.cfg.Period,
		FloorPrice: s.cfg.FloorPrice,
	}, s.cfg.Curve, now)
}

func (s *Sale) reject(reason string) {
	if s.metrics != nil {
		s.metrics.PurchasesRejected.WithLabelValues(reason).Inc()
	}
}
