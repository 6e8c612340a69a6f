// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package bank

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNonPositiveAmount   = errors.New("amount must be positive")
)

// Well-known asset ids.
const (
	AssetNative = "native" // the payment asset
	AssetUnit   = "unit"   // the mined reward asset
)

// BurnSink receives burned funds. Nothing can spend from it.
const BurnSink = "sink:burn"

// Engine tracks fungible asset balances per account. All mutations are
// serialized behind a single lock; reads take a consistent snapshot.
type Engine struct {
	mu       sync.RWMutex
	balances map[string]map[string]decimal.Decimal // assetID -> account -> balance
}

// NewEngine creates an empty balance engine.
func NewEngine() *Engine {
	return &Engine{
		balances: make(map[string]map[string]decimal.Decimal),
	}
}

// Transfer moves an asset between accounts. Transfers out of the burn sink
// are refused.
func (e *Engine) Transfer(assetID, from, to string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrNonPositiveAmount
	}
	if from == BurnSink {
		return ErrInsufficientBalance
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts := e.balances[assetID]
	fromBalance, ok := accounts[from]
	if !ok || fromBalance.LessThan(amount) {
		return ErrInsufficientBalance
	}

	accounts[from] = fromBalance.Sub(amount)
	e.ensure(assetID)[to] = e.balances[assetID][to].Add(amount)
	return nil
}

// Mint creates new units of an asset in an account.
func (e *Engine) Mint(assetID, account string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrNonPositiveAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.ensure(assetID)[account] = e.balances[assetID][account].Add(amount)
	return nil
}

// Burn destroys units of an asset held by an account.
func (e *Engine) Burn(assetID, account string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrNonPositiveAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	balance, ok := e.balances[assetID][account]
	if !ok || balance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	e.balances[assetID][account] = balance.Sub(amount)
	return nil
}

// Balance returns the balance for an account and asset.
func (e *Engine) Balance(assetID, account string) decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.balances[assetID] == nil {
		return decimal.Zero
	}
	return e.balances[assetID][account]
}

// SetBalance sets the balance for an account and asset. Intended for
// initialization and tests.
func (e *Engine) SetBalance(assetID, account string, amount decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ensure(assetID)[account] = amount
}

// Snapshot returns a deep copy of all balances.
func (e *Engine) Snapshot() map[string]map[string]decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]map[string]decimal.Decimal, len(e.balances))
	for asset, accounts := range e.balances {
		cp := make(map[string]decimal.Decimal, len(accounts))
		for account, balance := range accounts {
			cp[account] = balance
		}
		out[asset] = cp
	}
	return out
}

// Restore replaces all balances with the given snapshot.
func (e *Engine) Restore(snapshot map[string]map[string]decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.balances = make(map[string]map[string]decimal.Decimal, len(snapshot))
	for asset, accounts := range snapshot {
		cp := make(map[string]decimal.Decimal, len(accounts))
		for account, balance := range accounts {
			cp[account] = balance
		}
		e.balances[asset] = cp
	}
}

func (e *Engine) ensure(assetID string) map[string]decimal.Decimal {
	if e.balances[assetID] == nil {
		e.balances[assetID] = make(map[string]decimal.Decimal)
	}
	return e.balances[assetID]
}
