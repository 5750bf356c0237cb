// Package label computes the stable 64-bit FNV identifiers used to
// name struct and field positions within the object graph.
package label

import "encoding/binary"

// Label is a 64-bit FNV hash of a schema name (see Hash). Two distinct names are
// assumed not to collide; a collision is treated as a configuration error
// rather than a runtime condition.
type Label uint64

const (
	basis = 0xCBF29CE484222325
	prime = 0x100000001B3
)

// Hash computes a 64-bit FNV hash of s with the standard 64-bit offset
// basis and prime, updating h = (h * prime) ^ byte for each byte. The
// multiply comes before the XOR, which is the FNV-1 order (FNV-1a
// XORs first); the golden values in label_test.go pin this order. It
// operates on bytes rather than code points so it is stable across Go
// releases and platforms.
func Hash(s string) Label {
	h := uint64(basis)
	for i := 0; i < len(s); i++ {
		h = (h * prime) ^ uint64(s[i])
	}
	return Label(h)
}

// FieldName builds the canonical "StructName.field_name" string that a
// field's label is hashed from.
func FieldName(structName, field string) string {
	return structName + "." + field
}

// Bytes encodes the label as 8 big-endian bytes, for the label column of
// the nodes/edges tables.
func (l Label) Bytes() [8]byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(l))
	return b
}

// FromBytes decodes a label previously produced by Bytes.
func FromBytes(b [8]byte) Label {
	return Label(binary.BigEndian.Uint64(b[:]))
}

// Encode implements register.Encodable so a Register[Label] (a node's
// register) can be ordered deterministically on clock ties.
func (l Label) Encode() []byte {
	b := l.Bytes()
	return b[:]
}

// Atom is the reserved label stamped on every atom-payload destination
// node, so atom destinations are recognizable without chasing the
// payload table (see SPEC_FULL.md §5.8).
var Atom = Hash("$atom")
