// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClaimEvent is published to subscribers after every committed claim.
type ClaimEvent struct {
	Index        int             `json:"index"`
	EpochID      uint64          `json:"epoch_id"`
	Price        decimal.Decimal `json:"price"`
	Owner        string          `json:"owner"`
	PrevOwner    string          `json:"prev_owner,omitempty"`
	URI          string          `json:"uri,omitempty"`
	Referrer     string          `json:"referrer,omitempty"`
	SettledUnits decimal.Decimal `json:"settled_units"`
	Time         time.Time       `json:"time"`
}

// Subscribe registers a claim event listener. The returned cancel func must
// be called to release the subscription. A slow subscriber drops events
// rather than stalling the ledger.
func (l *Ledger) Subscribe() (<-chan ClaimEvent, func()) {
	l.subMu.Lock()
	defer l.subMu.Unlock()

	id := l.nextSub
	l.nextSub++
	ch := make(chan ClaimEvent, 64)
	l.subs[id] = ch

	cancel := func() {
		l.subMu.Lock()
		defer l.subMu.Unlock()
		if sub, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (l *Ledger) publish(ev ClaimEvent) {
	l.subMu.Lock()
	defer l.subMu.Unlock()

	for _, ch := range l.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
