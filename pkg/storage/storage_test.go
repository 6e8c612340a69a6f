// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/gridmine/gridmine/pkg/ledger"
	"github.com/gridmine/gridmine/pkg/sale"
)

func newMemStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("memory", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetDelete(t *testing.T) {
	require := require.New(t)
	s := newMemStore(t)

	key := []byte("k")
	require.NoError(s.Put(key, []byte("v")))

	got, err := s.Get(key)
	require.NoError(err)
	require.Equal([]byte("v"), got)

	ok, err := s.Has(key)
	require.NoError(err)
	require.True(ok)

	require.NoError(s.Delete(key))
	_, err = s.Get(key)
	require.ErrorIs(err, ErrNotFound)

	ok, err = s.Has(key)
	require.NoError(err)
	require.False(ok)
}

func TestUnknownBackend(t *testing.T) {
	_, err := New("postgres", "")
	require.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	require := require.New(t)
	s := newMemStore(t)

	_, err := s.LoadSnapshot()
	require.ErrorIs(err, ErrNotFound)

	start := time.Unix(1_700_000_000, 0)
	snap := Snapshot{
		TakenAt: start,
		Ledger: ledger.State{
			Slots: []ledger.Slot{{
				EpochID:    1,
				InitPrice:  decimal.RequireFromString("0.0012"),
				StartTime:  start,
				Owner:      "alice",
				URI:        "#ff00ff",
				Multiplier: decimal.NewFromInt(2),
			}},
			Multipliers: []decimal.Decimal{decimal.NewFromInt(2)},
			Treasury:    "vault",
		},
		Sale: sale.State{
			InitPrice: decimal.RequireFromString("0.0012"),
			StartTime: start,
		},
		Balances: map[string]map[string]decimal.Decimal{
			"native": {"alice": decimal.NewFromInt(5)},
		},
	}
	require.NoError(s.SaveSnapshot(snap))

	got, err := s.LoadSnapshot()
	require.NoError(err)
	require.Equal("vault", got.Ledger.Treasury)
	require.Len(got.Ledger.Slots, 1)
	require.Equal("alice", got.Ledger.Slots[0].Owner)
	require.True(got.Ledger.Slots[0].InitPrice.Equal(decimal.RequireFromString("0.0012")))
	require.True(got.Sale.InitPrice.Equal(decimal.RequireFromString("0.0012")))
	require.True(got.Balances["native"]["alice"].Equal(decimal.NewFromInt(5)))
}
