// Package engine provides the backing-store contract for a persistent
// graph namespace and a SQLite-backed implementation of it, following
// the teacher's table-per-namespace, STRICT/WITHOUT ROWID schema style.
package engine

import (
	"context"

	"github.com/dan-solli/lwwgraph/pkg/clock"
	"github.com/dan-solli/lwwgraph/pkg/id"
	"github.com/dan-solli/lwwgraph/pkg/label"
)

// Namespace selects the backing tables for a persistent graph instance:
// "{collection}.{name}.nodes", "{collection}.{name}.edges" and
// "{collection}.{name}.atoms".
type Namespace struct {
	Collection string
	Name       string
}

// NodesTable returns the qualified nodes table name for this namespace.
func (n Namespace) NodesTable() string { return n.Collection + "." + n.Name + ".nodes" }

// EdgesTable returns the qualified edges table name for this namespace.
func (n Namespace) EdgesTable() string { return n.Collection + "." + n.Name + ".edges" }

// AtomsTable returns the qualified atom-payload table name for this
// namespace (see SPEC_FULL.md §5.8).
func (n Namespace) AtomsTable() string { return n.Collection + "." + n.Name + ".atoms" }

// NodeRow is the relational shape of a node register: clock plus an
// optional label. Label is nil iff the register's value is None.
type NodeRow struct {
	Clock clock.Clock
	Label *label.Label
}

// EdgeRow is the relational shape of an edge register: clock plus an
// optional (src, label, dst) triple. All three are nil together iff the
// register's value is None.
type EdgeRow struct {
	Clock clock.Clock
	Src   *id.Id
	Label *label.Label
	Dst   *id.Id
}

// Store is the only storage surface the persistent graph consumes. It
// corresponds to spec §6's prepare_and_execute/prepare_and_query
// contract, specialised to the nodes/edges/atoms tables-plus-indices
// namespace layout.
type Store interface {
	// EnsureNamespace creates the tables and indices for ns if they do
	// not already exist.
	EnsureNamespace(ctx context.Context, ns Namespace) error

	// LoadNode reads the row for id, or (zero, false) if absent.
	LoadNode(ctx context.Context, ns Namespace, i id.Id) (NodeRow, bool, error)
	// LoadEdge reads the row for id, or (zero, false) if absent.
	LoadEdge(ctx context.Context, ns Namespace, i id.Id) (EdgeRow, bool, error)

	// SaveNode replaces the row for id with row.
	SaveNode(ctx context.Context, ns Namespace, i id.Id, row NodeRow) error
	// SaveEdge replaces the row for id with row.
	SaveEdge(ctx context.Context, ns Namespace, i id.Id, row EdgeRow) error

	// QueryNodeLabel returns every node id currently present with l,
	// answered directly from the backing store without loading matches.
	QueryNodeLabel(ctx context.Context, ns Namespace, l label.Label) ([]id.Id, error)
	// QueryEdgeSrc returns every edge id currently present with src.
	QueryEdgeSrc(ctx context.Context, ns Namespace, src id.Id) ([]id.Id, error)
	// QueryEdgeLabelDst returns every edge id currently present with
	// (l, dst).
	QueryEdgeLabelDst(ctx context.Context, ns Namespace, l label.Label, dst id.Id) ([]id.Id, error)

	// LoadAtomPayload reads the encoded payload for an atom destination
	// node, or (nil, false) if none was ever written.
	LoadAtomPayload(ctx context.Context, ns Namespace, dst id.Id) ([]byte, bool, error)
	// SaveAtomPayload writes the encoded payload for an atom
	// destination node.
	SaveAtomPayload(ctx context.Context, ns Namespace, dst id.Id, payload []byte) error

	// Close releases resources held by the store.
	Close() error
}
