// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

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
	ErrInvalidIndex  = errors.New("slot index out of range")
	ErrExpired       = errors.New("deadline expired")
	ErrStaleEpoch    = errors.New("stale epoch id")
	ErrUnderpaid     = errors.New("payment below current price")
	ErrInvalidLength = errors.New("multiplier table length mismatch")
	ErrInvalidWeight = errors.New("multiplier weight cannot be negative")
	ErrUnauthorized  = errors.New("caller is not the administrator")
)

// epochSeedSpacing keeps per-slot epoch ranges disjoint so an epoch id from
// one slot can never validate against another.
const epochSeedSpacing = 1_000_000_000

// Config fixes the ledger's decay curve and reward parameters at
// construction. Only the multiplier table and treasury are mutable
// afterwards, and only by the admin.
type Config struct {
	Capacity        int
	BasePrice       decimal.Decimal
	Period          time.Duration
	PriceMultiplier decimal.Decimal // markup applied to the settle price on claim
	FloorPrice      decimal.Decimal
	BaseRate        decimal.Decimal // units accrued per second at 1x weight
	Treasury        string
	Admin           string
	Curve           pricing.Curve
}

// Slot is one claimable unit. Multiplier is the reward weight snapped from
// the table at the last claim, so a table update mid-round never changes
// what the sitting owner has already earned.
type Slot struct {
	EpochID    uint64          `json:"epoch_id"`
	InitPrice  decimal.Decimal `json:"init_price"`
	StartTime  time.Time       `json:"start_time"`
	Owner      string          `json:"owner,omitempty"`
	URI        string          `json:"uri,omitempty"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

// SlotView is a read-only projection of a slot with its derived fields.
type SlotView struct {
	Index        int             `json:"index"`
	EpochID      uint64          `json:"epoch_id"`
	InitPrice    decimal.Decimal `json:"init_price"`
	StartTime    time.Time       `json:"start_time"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	RewardRate   decimal.Decimal `json:"reward_rate"`
	Accrued      decimal.Decimal `json:"accrued"`
	Owner        string          `json:"owner,omitempty"`
	URI          string          `json:"uri,omitempty"`
}

// Ledger owns the slot array and serializes every state-mutating operation
// behind a single lock. Reads evaluate against a consistent snapshot.
type Ledger struct {
	mu          sync.RWMutex
	cfg         Config
	treasury    string
	multipliers []decimal.Decimal
	slots       []*Slot
	bank        *bank.Engine
	metrics     *metric.Metrics
	log         log.Logger

	subMu   sync.Mutex
	subs    map[int]chan ClaimEvent
	nextSub int
}

// New creates a ledger with cfg.Capacity slots, every weight at 1x, every
// slot priced at the base price and starting its first decay round at start.
func New(cfg Config, eng *bank.Engine, metrics *metric.Metrics, logger log.Logger, start time.Time) (*Ledger, error) {
	if cfg.Capacity <= 0 {
		return nil, errors.New("capacity must be positive")
	}
	if cfg.Period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if cfg.FloorPrice.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("floor price must be positive")
	}
	if cfg.BasePrice.LessThan(cfg.FloorPrice) {
		return nil, errors.New("base price below floor")
	}
	if cfg.PriceMultiplier.LessThan(decimal.NewFromInt(1)) {
		return nil, errors.New("price multiplier below 1")
	}
	if logger == nil {
		logger = log.NoOp()
	}

	one := decimal.NewFromInt(1)
	multipliers := make([]decimal.Decimal, cfg.Capacity)
	slots := make([]*Slot, cfg.Capacity)
	for i := range slots {
		multipliers[i] = one
		slots[i] = &Slot{
			EpochID:    uint64(i) * epochSeedSpacing,
			InitPrice:  cfg.BasePrice,
			StartTime:  start,
			Multiplier: one,
		}
	}

	return &Ledger{
		cfg:         cfg,
		treasury:    cfg.Treasury,
		multipliers: multipliers,
		slots:       slots,
		bank:        eng,
		metrics:     metrics,
		log:         logger,
		subs:        make(map[int]chan ClaimEvent),
	}, nil
}

// Capacity returns the fixed slot count.
func (l *Ledger) Capacity() int {
	return l.cfg.Capacity
}

// Treasury returns the account currently credited with claim payments.
func (l *Ledger) Treasury() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.treasury
}

// Multipliers returns a copy of the live weight table.
func (l *Ledger) Multipliers() []decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]decimal.Decimal, len(l.multipliers))
	copy(out, l.multipliers)
	return out
}

// GetSlot returns the slot at index with fields derived at the given instant.
func (l *Ledger) GetSlot(index int, now time.Time) (SlotView, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index < 0 || index >= len(l.slots) {
		return SlotView{}, ErrInvalidIndex
	}
	return l.viewLocked(index, now), nil
}

// GetSlots returns the inclusive range [from, to].
func (l *Ledger) GetSlots(from, to int, now time.Time) ([]SlotView, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if from < 0 || to < from || to >= len(l.slots) {
		return nil, ErrInvalidIndex
	}
	out := make([]SlotView, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, l.viewLocked(i, now))
	}
	return out, nil
}

// RewardRate returns the aggregate units-per-second rate across every slot
// owned by the address.
func (l *Ledger) RewardRate(addr string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := decimal.Zero
	for _, s := range l.slots {
		if s.Owner == addr && addr != "" {
			total = total.Add(l.cfg.BaseRate.Mul(s.Multiplier))
		}
	}
	return total
}

// PendingReward returns the unsettled reward owed to the address across its
// slots at the given instant. Rewards only materialize into a spendable unit
// balance when a slot is re-claimed; this is a pure projection.
func (l *Ledger) PendingReward(addr string, now time.Time) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := decimal.Zero
	for _, s := range l.slots {
		if s.Owner == addr && addr != "" {
			total = total.Add(l.accruedLocked(s, now))
		}
	}
	return total
}

// OwnedSlots returns how many slots currently have an owner.
func (l *Ledger) OwnedSlots() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := 0
	for _, s := range l.slots {
		if s.Owner != "" {
			n++
		}
	}
	return n
}

func (l *Ledger) viewLocked(index int, now time.Time) SlotView {
	s := l.slots[index]
	view := SlotView{
		Index:        index,
		EpochID:      s.EpochID,
		InitPrice:    s.InitPrice,
		StartTime:    s.StartTime,
		CurrentPrice: l.priceLocked(s, now),
		Owner:        s.Owner,
		URI:          s.URI,
	}
	if s.Owner != "" {
		view.RewardRate = l.cfg.BaseRate.Mul(s.Multiplier)
		view.Accrued = l.accruedLocked(s, now)
	} else {
		// Unclaimed slots accrue nothing; show the rate a claimant would get.
		view.RewardRate = l.cfg.BaseRate.Mul(l.multipliers[index])
		view.Accrued = decimal.Zero
	}
	return view
}

func (l *Ledger) priceLocked(s *Slot, now time.Time) decimal.Decimal {
	return pricing.CurrentPrice(pricing.Params{
		InitPrice:  s.InitPrice,
		StartTime:  s.StartTime,
		Period:     l.cfg.Period,
		FloorPrice: l.cfg.FloorPrice,
	}, l.cfg.Curve, now)
}

func (l *Ledger) accruedLocked(s *Slot, now time.Time) decimal.Decimal {
	if s.Owner == "" || !now.After(s.StartTime) {
		return decimal.Zero
	}
	elapsed := decimal.NewFromFloat(now.Sub(s.StartTime).Seconds())
	return l.cfg.BaseRate.Mul(s.Multiplier).Mul(elapsed)
}
