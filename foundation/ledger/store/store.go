// Package store defines the keyed persistent storage every contract is
// built on.
package store

import (
	"encoding/binary"
	"errors"
)

// ErrNotFound is returned when the specified key does not exist.
var ErrNotFound = errors.New("key not found")

// Store represents the behavior required to be implemented by any package
// providing persistent key/value storage for contract state.
type Store interface {
	Get(key Key) ([]byte, error)
	Set(key Key, value []byte) error
	Has(key Key) (bool, error)
	Remove(key Key) error
	Close() error
}

// =============================================================================

// Key identifies a single stored record. Keys are composed of a contract
// namespace, a closed kind tag declared by the owning contract, and the
// typed parts that identify the record within that kind. Contracts never
// build keys by string concatenation.
type Key struct {
	Space string
	Kind  byte
	parts []byte
}

// NewKey constructs a key from a namespace, kind tag, and record parts.
// Supported part types are uint64 and string.
func NewKey(space string, kind byte, parts ...any) Key {
	k := Key{Space: space, Kind: kind}

	for _, part := range parts {
		switch v := part.(type) {
		case uint64:
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], v)
			k.parts = append(k.parts, b[:]...)
		case uint32:
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], v)
			k.parts = append(k.parts, b[:]...)
		case string:
			var b [2]byte
			binary.BigEndian.PutUint16(b[:], uint16(len(v)))
			k.parts = append(k.parts, b[:]...)
			k.parts = append(k.parts, v...)
		default:
			panic("store: unsupported key part type")
		}
	}

	return k
}

// Bytes returns the serialized form of the key used by storage backends.
func (k Key) Bytes() []byte {
	b := make([]byte, 0, len(k.Space)+2+len(k.parts))
	b = append(b, k.Space...)
	b = append(b, '/', k.Kind)
	b = append(b, k.parts...)
	return b
}

// String implements the fmt.Stringer interface for logging.
func (k Key) String() string {
	return string(k.Bytes())
}
