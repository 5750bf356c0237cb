// Package codec provides the opaque encode/decode pair atom payloads
// are stored through. The graph and engine packages never interpret an
// atom's bytes; only schema, via a Codec, does.
package codec

import "encoding/json"

// Codec encodes and decodes atom payload values. Implementations must
// round-trip: Decode(Encode(v)) reproduces v's fields.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(b []byte, out any) error
}

// JSON is the default Codec, encoding payloads as JSON. It is the
// obvious choice for a schema whose atom value types are arbitrary
// user-defined Go types: no build step, no generated (de)serializers,
// works with anything encoding/json already handles.
type JSON struct{}

// Encode implements Codec.
func (JSON) Encode(v any) ([]byte, error) { return json.Marshal(v) }

// Decode implements Codec.
func (JSON) Decode(b []byte, out any) error { return json.Unmarshal(b, out) }

var _ Codec = JSON{}
