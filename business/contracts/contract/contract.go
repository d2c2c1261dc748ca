// Package contract provides the plumbing shared by every contract:
// the error taxonomy callers branch on and storage counters.
package contract

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/host"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/store"
)

// The set of error kinds contract operations fail with. Every operation
// wraps one of these so callers can branch with errors.Is. A guard failure
// aborts the whole call; the host transaction guarantees nothing commits.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("operation not legal in current status")
	ErrUnauthorized       = errors.New("caller lacks required authorization")
	ErrInvalidParties     = errors.New("malformed party or amount list")
	ErrAmountMismatch     = errors.New("amount does not match obligation")
	ErrAlreadyDeposited   = errors.New("party already deposited")
	ErrAlreadyResolved    = errors.New("dispute already resolved")
	ErrDeadlineNotReached = errors.New("deadline not reached")
	ErrDeadlinePassed     = errors.New("deadline passed")
	ErrAlreadyInitialized = errors.New("already initialized")
)

// =============================================================================

// NextID increments and returns the counter stored under the specified
// key. The first id handed out is 1; ids are never reused.
func NextID(tx *host.Tx, key store.Key) (uint64, error) {
	var id uint64

	data, err := tx.Get(key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		id = 0
	case err != nil:
		return 0, fmt.Errorf("counter read: %w", err)
	default:
		id = binary.BigEndian.Uint64(data)
	}

	id++

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	if err := tx.Set(key, buf[:]); err != nil {
		return 0, fmt.Errorf("counter write: %w", err)
	}

	return id, nil
}

// ReadCounter returns the current counter value without incrementing.
func ReadCounter(tx *host.Tx, key store.Key) (uint64, error) {
	data, err := tx.Get(key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("counter read: %w", err)
	}

	return binary.BigEndian.Uint64(data), nil
}
