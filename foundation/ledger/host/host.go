// Package host provides the environment contracts execute against:
// keyed storage, the token bank, the ledger clock, randomness, hashing,
// and atomic call transactions.
package host

import (
	"crypto/sha256"
	"math/rand"
	"sync"
	"time"

	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/event"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/store"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/token"
)

// Config represents the dependencies required to construct a host.
type Config struct {
	Store  store.Store
	Bank   *token.Bank
	Events *event.Log

	// Now reports the current ledger timestamp in seconds. Defaults to
	// the wall clock. Tests inject their own clock.
	Now func() uint64

	// Random returns a number in [0, n). Defaults to math/rand. Tests
	// inject a deterministic source.
	Random func(n uint64) uint64
}

// Host bundles the environment shared by every contract. Calls against the
// host are serialized and atomic: either every storage write, token move,
// and event of a call commits, or none of them do.
type Host struct {
	mu     sync.Mutex
	store  store.Store
	bank   *token.Bank
	events *event.Log
	now    func() uint64
	random func(n uint64) uint64
}

// New constructs a host from the specified configuration.
func New(cfg Config) *Host {
	now := cfg.Now
	if now == nil {
		now = func() uint64 { return uint64(time.Now().UTC().Unix()) }
	}

	random := cfg.Random
	if random == nil {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		var rngMu sync.Mutex
		random = func(n uint64) uint64 {
			rngMu.Lock()
			defer rngMu.Unlock()
			return uint64(rng.Int63n(int64(n)))
		}
	}

	return &Host{
		store:  cfg.Store,
		bank:   cfg.Bank,
		events: cfg.Events,
		now:    now,
		random: random,
	}
}

// Bank returns the token bank for read-only balance queries.
func (h *Host) Bank() *token.Bank {
	return h.bank
}

// Events returns the event log for read-only queries.
func (h *Host) Events() *event.Log {
	return h.events
}

// Now returns the current ledger timestamp.
func (h *Host) Now() uint64 {
	return h.now()
}

// Hash returns the SHA-256 digest over the concatenation of the
// specified byte slices.
func Hash(parts ...[]byte) [32]byte {
	hash := sha256.New()
	for _, part := range parts {
		hash.Write(part)
	}

	var digest [32]byte
	copy(digest[:], hash.Sum(nil))
	return digest
}

// Run executes fn inside an atomic call transaction. The transaction
// buffers every storage write, token move, and event; if fn returns an
// error nothing is applied. Calls are serialized the way the host chain
// would order them.
func (h *Host) Run(fn func(tx *Tx) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	tx := Tx{
		host:    h,
		now:     h.now(),
		writes:  make(map[string]write),
		balance: make(map[string]uint64),
	}

	if err := fn(&tx); err != nil {
		return err
	}

	return tx.commit()
}

// View executes fn with read-only access to storage. No writes, moves, or
// events are permitted to escape a view.
func (h *Host) View(fn func(tx *Tx) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	tx := Tx{
		host:    h,
		now:     h.now(),
		writes:  make(map[string]write),
		balance: make(map[string]uint64),
		view:    true,
	}

	return fn(&tx)
}
