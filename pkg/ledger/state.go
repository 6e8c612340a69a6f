// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"github.com/shopspring/decimal"
)

// State is the serializable mutable state of the ledger: the slot array plus
// the admin-mutable table and treasury. Curve and price parameters are fixed
// at construction and live in Config, not here.
type State struct {
	Slots       []Slot            `json:"slots"`
	Multipliers []decimal.Decimal `json:"multipliers"`
	Treasury    string            `json:"treasury"`
}

// State returns a deep copy of the ledger's mutable state.
func (l *Ledger) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st := State{
		Slots:       make([]Slot, len(l.slots)),
		Multipliers: make([]decimal.Decimal, len(l.multipliers)),
		Treasury:    l.treasury,
	}
	for i, s := range l.slots {
		st.Slots[i] = *s
	}
	copy(st.Multipliers, l.multipliers)
	return st
}

// RestoreState replaces the ledger's mutable state with a snapshot taken by
// State. The snapshot must match the configured capacity.
func (l *Ledger) RestoreState(st State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(st.Slots) != l.cfg.Capacity || len(st.Multipliers) != l.cfg.Capacity {
		return ErrInvalidLength
	}
	for i := range st.Slots {
		s := st.Slots[i]
		l.slots[i] = &s
	}
	copy(l.multipliers, st.Multipliers)
	if st.Treasury != "" {
		l.treasury = st.Treasury
	}
	return nil
}
