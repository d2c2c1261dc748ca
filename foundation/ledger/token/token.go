// Package token maintains the fungible token bank contracts pull custody
// from and release custody to. Transfers are all-or-nothing.
package token

import (
	"fmt"
	"sync"

	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
)

// ErrInsufficientFunds is returned when a transfer would overdraw the
// from account.
var ErrInsufficientFunds = fmt.Errorf("insufficient funds")

// Bank manages balances for every asset and account pair.
type Bank struct {
	mu       sync.RWMutex
	balances map[ledger.Asset]map[ledger.AccountID]uint64
}

// New constructs a bank applying the specified genesis balances.
func New(genesis map[ledger.Asset]map[ledger.AccountID]uint64) *Bank {
	balances := make(map[ledger.Asset]map[ledger.AccountID]uint64)
	for asset, accounts := range genesis {
		balances[asset] = make(map[ledger.AccountID]uint64)
		for accountID, balance := range accounts {
			balances[asset][accountID] = balance
		}
	}

	return &Bank{
		balances: balances,
	}
}

// Balance returns the current balance for the specified asset and account.
func (b *Bank) Balance(asset ledger.Asset, accountID ledger.AccountID) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.balances[asset][accountID]
}

// CopyBalances makes a copy of the current balances for the specified asset.
func (b *Bank) CopyBalances(asset ledger.Asset) map[ledger.AccountID]uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	accounts := make(map[ledger.AccountID]uint64)
	for accountID, balance := range b.balances[asset] {
		accounts[accountID] = balance
	}
	return accounts
}

// Transfer moves amount of asset between the two accounts. The transfer
// fails with ErrInsufficientFunds before any balance changes.
func (b *Bank) Transfer(asset ledger.Asset, from ledger.AccountID, to ledger.AccountID, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.transfer(asset, from, to, amount)
}

// Apply moves a batch of transfers as a unit. Every transfer is validated
// against the running balances before any of them is applied, so a failing
// batch leaves the bank untouched.
func (b *Bank) Apply(moves []Move) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Validate the whole batch against an overlay first.
	overlay := make(map[string]uint64)
	for _, move := range moves {
		fromKey := string(move.Asset) + "|" + string(move.From)
		bal, exists := overlay[fromKey]
		if !exists {
			bal = b.balances[move.Asset][move.From]
		}
		if bal < move.Amount {
			return fmt.Errorf("move %s -> %s: %w", move.From, move.To, ErrInsufficientFunds)
		}
		overlay[fromKey] = bal - move.Amount

		toKey := string(move.Asset) + "|" + string(move.To)
		tbal, exists := overlay[toKey]
		if !exists {
			tbal = b.balances[move.Asset][move.To]
		}
		overlay[toKey] = tbal + move.Amount
	}

	for _, move := range moves {
		if err := b.transfer(move.Asset, move.From, move.To, move.Amount); err != nil {
			return err
		}
	}

	return nil
}

// transfer performs the balance changes. The caller must hold the lock.
func (b *Bank) transfer(asset ledger.Asset, from ledger.AccountID, to ledger.AccountID, amount uint64) error {
	accounts, exists := b.balances[asset]
	if !exists {
		accounts = make(map[ledger.AccountID]uint64)
		b.balances[asset] = accounts
	}

	if accounts[from] < amount {
		return fmt.Errorf("account %s: %w", from, ErrInsufficientFunds)
	}

	accounts[from] -= amount
	accounts[to] += amount

	return nil
}

// =============================================================================

// Move describes a single transfer inside a batch.
type Move struct {
	Asset  ledger.Asset
	From   ledger.AccountID
	To     ledger.AccountID
	Amount uint64
}
