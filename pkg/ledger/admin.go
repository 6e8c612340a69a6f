// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"errors"

	"github.com/shopspring/decimal"
)

// SetMultipliers replaces the whole weight table. The new table applies to
// claims committed after this call; weights already snapped onto owned slots
// are untouched until those slots are re-claimed.
func (l *Ledger) SetMultipliers(caller string, weights []decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.cfg.Admin {
		return ErrUnauthorized
	}
	if len(weights) != l.cfg.Capacity {
		return ErrInvalidLength
	}
	for _, w := range weights {
		if w.IsNegative() {
			return ErrInvalidWeight
		}
	}

	table := make([]decimal.Decimal, len(weights))
	copy(table, weights)
	l.multipliers = table

	l.log.Info("multiplier table replaced", "capacity", l.cfg.Capacity)
	return nil
}

// SetTreasury redirects future claim payments to addr.
func (l *Ledger) SetTreasury(caller, addr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.cfg.Admin {
		return ErrUnauthorized
	}
	if addr == "" {
		return errors.New("treasury address is empty")
	}

	l.treasury = addr
	l.log.Info("treasury updated", "treasury", addr)
	return nil
}
