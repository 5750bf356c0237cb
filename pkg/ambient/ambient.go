// Package ambient provides process-wide, scoped access to a single
// object graph — the "global ambient store" of spec design notes §9,
// expressed as an explicit handle rather than a true singleton so it
// stays testable, with a context parameter threaded through every
// operation as the design notes recommend for languages where a bare
// singleton is awkward.
package ambient

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/dan-solli/lwwgraph/pkg/clock"
	"github.com/dan-solli/lwwgraph/pkg/graph"
	"github.com/dan-solli/lwwgraph/pkg/id"
	"github.com/dan-solli/lwwgraph/pkg/label"
	"github.com/dan-solli/lwwgraph/pkg/register"
)

// ErrReentrant is returned when WithStore is invoked while another
// WithStore call on the same Handle is already in progress. The core is
// single-threaded cooperative (spec §5): nesting would silently corrupt
// whichever scope resumes last, so it fails fast instead.
var ErrReentrant = errors.New("ambient: with_store is not reentrant")

// Store is the graph-level surface a Handle exposes to its scoped
// accessor: the node/edge register operations schema's typed views are
// built on, plus the atom-payload side table. pgraph.PG (load-on-demand
// + write-through) satisfies it; graph.G does not, since its methods
// take no context, return no error and it has no atom-payload table.
type Store interface {
	Node(ctx context.Context, i id.Id) (label.Label, bool, error)
	Edge(ctx context.Context, i id.Id) (graph.EdgeValue, bool, error)
	SetNode(ctx context.Context, i id.Id, c clock.Clock, value register.Option[label.Label]) error
	SetEdge(ctx context.Context, i id.Id, c clock.Clock, value register.Option[graph.EdgeValue]) error
	QueryEdgeSrc(ctx context.Context, src id.Id) ([]id.Id, error)
	QueryEdgeLabelDst(ctx context.Context, l label.Label, dst id.Id) ([]id.Id, error)
	LoadAtomPayload(ctx context.Context, dst id.Id) ([]byte, bool, error)
	SaveAtomPayload(ctx context.Context, dst id.Id, payload []byte) error
}

// Handle is the process-wide store handle. Its zero value is not
// usable; construct one with NewHandle.
type Handle struct {
	store    Store
	clocks   *clock.Source
	busy     atomic.Bool
}

// NewHandle wraps store in a Handle with its own monotonic clock
// source.
func NewHandle(store Store) *Handle {
	return &Handle{store: store, clocks: clock.NewSource()}
}

// NextClock mints a clock guaranteed to be greater than every clock
// this Handle has minted before. Callers that merge in externally
// timestamped writes (replication) should supply their own clocks
// instead.
func (h *Handle) NextClock() clock.Clock {
	return h.clocks.Next()
}

// WithStore runs f with exclusive access to the handle's store. Nested
// WithStore calls on the same Handle fail fast with ErrReentrant rather
// than deadlocking or corrupting state, matching the single-writer
// contract in spec §4.6.
func WithStore[R any](ctx context.Context, h *Handle, f func(context.Context, Store) (R, error)) (R, error) {
	var zero R
	if !h.busy.CompareAndSwap(false, true) {
		return zero, ErrReentrant
	}
	defer h.busy.Store(false)
	return f(ctx, h.store)
}
