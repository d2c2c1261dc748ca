// Package memory implements the store interface with an in-memory map.
// It exists for unit tests and for running the engine without a disk.
package memory

import (
	"sync"

	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/store"
)

// Memory represents an in-memory implementation of the store.Store interface.
type Memory struct {
	mu sync.RWMutex
	m  map[string][]byte
}

// New constructs a Memory store for use.
func New() *Memory {
	return &Memory{
		m: make(map[string][]byte),
	}
}

// Get returns the value stored under the specified key.
func (mem *Memory) Get(key store.Key) ([]byte, error) {
	mem.mu.RLock()
	defer mem.mu.RUnlock()

	value, exists := mem.m[string(key.Bytes())]
	if !exists {
		return nil, store.ErrNotFound
	}

	// Return a copy so callers can't mutate the stored value.
	cpy := make([]byte, len(value))
	copy(cpy, value)

	return cpy, nil
}

// Set stores the value under the specified key.
func (mem *Memory) Set(key store.Key, value []byte) error {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	cpy := make([]byte, len(value))
	copy(cpy, value)
	mem.m[string(key.Bytes())] = cpy

	return nil
}

// Has reports whether the specified key exists.
func (mem *Memory) Has(key store.Key) (bool, error) {
	mem.mu.RLock()
	defer mem.mu.RUnlock()

	_, exists := mem.m[string(key.Bytes())]
	return exists, nil
}

// Remove deletes the specified key. Removing a missing key is not an error.
func (mem *Memory) Remove(key store.Key) error {
	mem.mu.Lock()
	defer mem.mu.Unlock()

	delete(mem.m, string(key.Bytes()))
	return nil
}

// Close in this implementation has nothing to do.
func (mem *Memory) Close() error {
	return nil
}
