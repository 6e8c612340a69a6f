// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gridmine/gridmine/pkg/ledger"
	"github.com/gridmine/gridmine/pkg/sale"
)

var snapshotKey = []byte("gridmine/snapshot")

// Snapshot is the persisted mutable state of the system, so a daemon restart
// resumes the auctions mid-round instead of re-arming every slot.
type Snapshot struct {
	TakenAt  time.Time                             `json:"taken_at"`
	Ledger   ledger.State                          `json:"ledger"`
	Sale     sale.State                            `json:"sale"`
	Balances map[string]map[string]decimal.Decimal `json:"balances"`
}

// SaveSnapshot serializes and stores a snapshot.
func (s *Store) SaveSnapshot(snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.Put(snapshotKey, raw)
}

// LoadSnapshot retrieves the last snapshot. Returns ErrNotFound when the
// store has never been written.
func (s *Store) LoadSnapshot() (Snapshot, error) {
	raw, err := s.Get(snapshotKey)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
