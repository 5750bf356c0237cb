// Package id provides the 128-bit opaque identifiers minted for nodes
// and edges. Collision probability is treated as zero, per spec.
package id

import (
	"github.com/google/uuid"
)

// Id is a 128-bit value, encoded as 16 big-endian bytes for storage.
// It is backed by a version-4 UUID: 128 bits from a cryptographically
// random source satisfies the RNG contract in SPEC_FULL.md §4 directly.
type Id [16]byte

// Nil is the zero id. It is never minted by New and is used only as a
// sentinel (e.g. an unset destination before a write completes).
var Nil Id

// New mints a fresh, uniformly distributed id.
func New() Id {
	return Id(uuid.New())
}

// Bytes returns the 16 big-endian bytes of the id, suitable for use as
// a BLOB primary key.
func (i Id) Bytes() [16]byte {
	return i
}

// FromBytes reconstructs an id from its 16-byte encoding.
func FromBytes(b [16]byte) Id {
	return Id(b)
}

// String returns the canonical UUID string form, useful for logging.
func (i Id) String() string {
	return uuid.UUID(i).String()
}
