// Package register implements the LWW register at the heart of the
// object graph: a (clock, optional value) pair that merges by taking
// the entry with the greater clock, with a deterministic tie-break when
// two replicas wrote at the same clock.
package register

import (
	"bytes"

	"github.com/dan-solli/lwwgraph/pkg/clock"
)

// Encodable is required of any value type stored in a Register: its
// Encode form is what the tie-break compares lexicographically when two
// registers carry equal clocks (spec §4.2, open question #2).
type Encodable interface {
	Encode() []byte
}

// Option represents a value that may be absent, mirroring Rust's
// Option<V> from the source system. The zero value is None.
type Option[V any] struct {
	ok    bool
	value V
}

// Some wraps a present value.
func Some[V any](v V) Option[V] {
	return Option[V]{ok: true, value: v}
}

// None returns the absent option for V.
func None[V any]() Option[V] {
	return Option[V]{}
}

// Get returns the wrapped value and whether it is present.
func (o Option[V]) Get() (V, bool) {
	return o.value, o.ok
}

// IsSome reports whether the option carries a value.
func (o Option[V]) IsSome() bool { return o.ok }

// Register is an LWW register: a clock paired with an optional value.
// The zero value is (Clock zero, None) — a fresh, never-written id.
type Register[V Encodable] struct {
	Clock clock.Clock
	Value Option[V]
}

// encodedOrNil returns the tie-break byte string for an option: nil for
// None (which sorts first), the value's encoding for Some.
func encodedOrNil[V Encodable](o Option[V]) []byte {
	if v, ok := o.Get(); ok {
		return v.Encode()
	}
	return nil
}

// tieBreak deterministically orders two registers with equal clocks.
// None sorts before Some; two Some values compare their encoded bytes
// lexicographically. Returns <0, 0, >0 as a sorts before, equal to, or
// after b.
func tieBreak[V Encodable](a, b Register[V]) int {
	aSome, bSome := a.Value.IsSome(), b.Value.IsSome()
	switch {
	case !aSome && !bSome:
		return 0
	case !aSome:
		return -1
	case !bSome:
		return 1
	default:
		return bytes.Compare(encodedOrNil(a.Value), encodedOrNil(b.Value))
	}
}

// Join returns the register that should win between a and b: the one
// with the greater clock, or — on a clock tie — the one that sorts
// later under tieBreak. Join is commutative, associative and
// idempotent.
func Join[V Encodable](a, b Register[V]) Register[V] {
	switch a.Clock.Compare(b.Clock) {
	case -1:
		return b
	case 1:
		return a
	default:
		if tieBreak(a, b) <= 0 {
			return b
		}
		return a
	}
}

// Preorder reports whether a <= b under the join semilattice, i.e.
// whether Join(a, b) == b.
func Preorder[V Encodable](a, b Register[V]) bool {
	j := Join(a, b)
	return j.Clock == b.Clock && tieBreak(j, b) == 0
}
