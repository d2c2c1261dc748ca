package host

import (
	"errors"
	"fmt"

	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/event"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/store"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/token"
)

// write records a buffered storage mutation.
type write struct {
	value   []byte
	removed bool
}

// Tx is a single atomic call transaction. Reads see earlier writes of the
// same call; nothing is visible outside the call until commit.
type Tx struct {
	host    *Host
	now     uint64
	view    bool
	writes  map[string]write
	order   []string
	keys    map[string]store.Key
	moves   []token.Move
	balance map[string]uint64
	events  []event.Event
}

// Now returns the ledger timestamp fixed at the start of the call.
func (tx *Tx) Now() uint64 {
	return tx.now
}

// Random returns a number in [0, n) from the host randomness source.
func (tx *Tx) Random(n uint64) uint64 {
	return tx.host.random(n)
}

// Get returns the value stored under the specified key, observing writes
// buffered earlier in the same call.
func (tx *Tx) Get(key store.Key) ([]byte, error) {
	if w, exists := tx.writes[string(key.Bytes())]; exists {
		if w.removed {
			return nil, store.ErrNotFound
		}
		return w.value, nil
	}

	return tx.host.store.Get(key)
}

// Has reports whether the specified key exists.
func (tx *Tx) Has(key store.Key) (bool, error) {
	if w, exists := tx.writes[string(key.Bytes())]; exists {
		return !w.removed, nil
	}

	return tx.host.store.Has(key)
}

// Set buffers a storage write for commit.
func (tx *Tx) Set(key store.Key, value []byte) error {
	if tx.view {
		return errors.New("storage write inside a read-only call")
	}

	tx.record(key, write{value: value})
	return nil
}

// Remove buffers a storage delete for commit.
func (tx *Tx) Remove(key store.Key) error {
	if tx.view {
		return errors.New("storage delete inside a read-only call")
	}

	tx.record(key, write{removed: true})
	return nil
}

// Transfer buffers a token move for commit. The move is validated against
// the bank balances adjusted for moves already buffered in this call, so a
// call can never overdraw an account regardless of how its transfers are
// ordered.
func (tx *Tx) Transfer(asset ledger.Asset, from ledger.AccountID, to ledger.AccountID, amount uint64) error {
	if tx.view {
		return errors.New("token move inside a read-only call")
	}

	fromBal := tx.effectiveBalance(asset, from)
	if fromBal < amount {
		return fmt.Errorf("account %s: %w", from, token.ErrInsufficientFunds)
	}

	fromKey := string(asset) + "|" + string(from)
	toKey := string(asset) + "|" + string(to)
	tx.balance[fromKey] = fromBal - amount
	tx.balance[toKey] = tx.effectiveBalance(asset, to) + amount

	tx.moves = append(tx.moves, token.Move{Asset: asset, From: from, To: to, Amount: amount})
	return nil
}

// Balance returns the balance for the asset and account as this call
// currently sees it.
func (tx *Tx) Balance(asset ledger.Asset, accountID ledger.AccountID) uint64 {
	return tx.effectiveBalance(asset, accountID)
}

// Emit buffers an event for publication at commit.
func (tx *Tx) Emit(evt event.Event) {
	if tx.view {
		return
	}

	tx.events = append(tx.events, evt)
}

// =============================================================================

func (tx *Tx) record(key store.Key, w write) {
	k := string(key.Bytes())
	if _, exists := tx.writes[k]; !exists {
		tx.order = append(tx.order, k)
		if tx.keys == nil {
			tx.keys = make(map[string]store.Key)
		}
		tx.keys[k] = key
	}
	tx.writes[k] = w
}

func (tx *Tx) effectiveBalance(asset ledger.Asset, accountID ledger.AccountID) uint64 {
	key := string(asset) + "|" + string(accountID)
	if bal, exists := tx.balance[key]; exists {
		return bal
	}

	return tx.host.bank.Balance(asset, accountID)
}

// commit flushes the buffered token moves, storage writes, and events.
func (tx *Tx) commit() error {

	// Apply the token moves first. The bank validates the batch as a
	// unit, so a failure here leaves everything untouched.
	if len(tx.moves) > 0 {
		if err := tx.host.bank.Apply(tx.moves); err != nil {
			return err
		}
	}

	for _, k := range tx.order {
		w := tx.writes[k]
		key := tx.keys[k]

		var err error
		if w.removed {
			err = tx.host.store.Remove(key)
		} else {
			err = tx.host.store.Set(key, w.value)
		}
		if err != nil {
			return fmt.Errorf("storage commit: %w", err)
		}
	}

	if len(tx.events) > 0 && tx.host.events != nil {
		tx.host.events.Append(tx.events)
	}

	return nil
}
