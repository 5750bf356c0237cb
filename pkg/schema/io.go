package schema

import (
	"context"
	"fmt"

	"github.com/dan-solli/lwwgraph/pkg/ambient"
	"github.com/dan-solli/lwwgraph/pkg/clock"
	"github.com/dan-solli/lwwgraph/pkg/codec"
	"github.com/dan-solli/lwwgraph/pkg/graph"
	"github.com/dan-solli/lwwgraph/pkg/id"
	"github.com/dan-solli/lwwgraph/pkg/label"
	"github.com/dan-solli/lwwgraph/pkg/register"
)

// NewNode mints a fresh id and writes its label, as every generated
// entity constructor does for the entity's own node before wiring up
// its fields.
func NewNode(ctx context.Context, store ambient.Store, c clock.Clock, l label.Label) (id.Id, error) {
	i := id.New()
	if err := store.SetNode(ctx, i, c, register.Some(l)); err != nil {
		return id.Id{}, fmt.Errorf("schema: create node: %w", err)
	}
	return i, nil
}

func writeEdge(ctx context.Context, store ambient.Store, c clock.Clock, src id.Id, l label.Label, dst id.Id) error {
	edgeID := id.New()
	return store.SetEdge(ctx, edgeID, c, register.Some(graph.EdgeValue{Src: src, Label: l, Dst: dst}))
}

// WriteAtom mints a payload node for value, encodes it through codec,
// and wires an edge from owner carrying fieldLabel.
func WriteAtom[T any](ctx context.Context, store ambient.Store, c codec.Codec, owner id.Id, fieldLabel label.Label, at clock.Clock, value T) (Atom[T], error) {
	dst := id.New()
	if err := store.SetNode(ctx, dst, at, register.Some(label.Atom)); err != nil {
		return Atom[T]{}, fmt.Errorf("schema: write atom node: %w", err)
	}
	payload, err := c.Encode(value)
	if err != nil {
		return Atom[T]{}, fmt.Errorf("schema: encode atom: %w", err)
	}
	if err := store.SaveAtomPayload(ctx, dst, payload); err != nil {
		return Atom[T]{}, fmt.Errorf("schema: write atom payload: %w", err)
	}
	if err := writeEdge(ctx, store, at, owner, fieldLabel, dst); err != nil {
		return Atom[T]{}, fmt.Errorf("schema: write atom edge: %w", err)
	}
	return Atom[T]{dst: dst, codec: c}, nil
}

// WriteAtomOption wires an optional scalar field. A nil value writes an
// edge to a fresh, otherwise-untouched id: no node, no payload — the
// field reads back as absent without the graph ever recording a
// tombstone for it.
func WriteAtomOption[T any](ctx context.Context, store ambient.Store, c codec.Codec, owner id.Id, fieldLabel label.Label, at clock.Clock, value *T) (AtomOption[T], error) {
	var dst id.Id
	if value != nil {
		dst = id.New()
		if err := store.SetNode(ctx, dst, at, register.Some(label.Atom)); err != nil {
			return AtomOption[T]{}, fmt.Errorf("schema: write atom node: %w", err)
		}
		payload, err := c.Encode(*value)
		if err != nil {
			return AtomOption[T]{}, fmt.Errorf("schema: encode atom: %w", err)
		}
		if err := store.SaveAtomPayload(ctx, dst, payload); err != nil {
			return AtomOption[T]{}, fmt.Errorf("schema: write atom payload: %w", err)
		}
	} else {
		dst = id.New()
	}
	if err := writeEdge(ctx, store, at, owner, fieldLabel, dst); err != nil {
		return AtomOption[T]{}, fmt.Errorf("schema: write atom edge: %w", err)
	}
	return AtomOption[T]{dst: dst, codec: c}, nil
}

// WriteLink wires a required reference field.
func WriteLink[U any](ctx context.Context, store ambient.Store, owner id.Id, fieldLabel label.Label, at clock.Clock, target id.Id, load Loader[U]) (Link[U], error) {
	if err := writeEdge(ctx, store, at, owner, fieldLabel, target); err != nil {
		return Link[U]{}, fmt.Errorf("schema: write link edge: %w", err)
	}
	return Link[U]{target: target, load: load}, nil
}

// WriteLinkOption wires an optional reference field. A nil target
// writes an edge to a fresh id whose node is left absent, symmetric
// with WriteAtomOption.
func WriteLinkOption[U any](ctx context.Context, store ambient.Store, owner id.Id, fieldLabel label.Label, at clock.Clock, target *id.Id, load Loader[U]) (LinkOption[U], error) {
	dst := id.New()
	if target != nil {
		dst = *target
	}
	if err := writeEdge(ctx, store, at, owner, fieldLabel, dst); err != nil {
		return LinkOption[U]{}, fmt.Errorf("schema: write link edge: %w", err)
	}
	return LinkOption[U]{target: dst, load: load}, nil
}

// AddMultilink adds target to a to-many field by writing one more edge
// tagged with fieldLabel; it does not touch any existing edges the
// field already carries.
func AddMultilink(ctx context.Context, store ambient.Store, owner id.Id, fieldLabel label.Label, at clock.Clock, target id.Id) error {
	if err := writeEdge(ctx, store, at, owner, fieldLabel, target); err != nil {
		return fmt.Errorf("schema: write multilink edge: %w", err)
	}
	return nil
}

// ReadOutgoing resolves owner's own node label and classifies every
// edge leaving it by field label, in a single scan — the same
// single-pass classification a generated Get function performs. Fields
// with more than one outgoing edge of the same label (Multilinks)
// collapse to whichever edge the scan visits last; callers build those
// views directly rather than reading them out of byLabel.
func ReadOutgoing(ctx context.Context, store ambient.Store, owner id.Id) (nodeLabel label.Label, present bool, byLabel map[label.Label]id.Id, err error) {
	nodeLabel, present, err = store.Node(ctx, owner)
	if err != nil || !present {
		return
	}
	edgeIds, qerr := store.QueryEdgeSrc(ctx, owner)
	if qerr != nil {
		err = qerr
		return
	}
	byLabel = make(map[label.Label]id.Id, len(edgeIds))
	for _, eid := range edgeIds {
		ev, ok, eerr := store.Edge(ctx, eid)
		if eerr != nil {
			err = eerr
			return
		}
		if !ok {
			continue
		}
		byLabel[ev.Label] = ev.Dst
	}
	return
}
