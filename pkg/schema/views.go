package schema

import (
	"context"
	"fmt"

	"github.com/dan-solli/lwwgraph/pkg/ambient"
	"github.com/dan-solli/lwwgraph/pkg/codec"
	"github.com/dan-solli/lwwgraph/pkg/id"
	"github.com/dan-solli/lwwgraph/pkg/label"
)

// FieldKind names the six field shapes a schema entity may declare.
type FieldKind int

const (
	KindAtom FieldKind = iota
	KindAtomOption
	KindLink
	KindLinkOption
	KindMultilinks
	KindBacklinks
)

func (k FieldKind) String() string {
	switch k {
	case KindAtom:
		return "Atom"
	case KindAtomOption:
		return "AtomOption"
	case KindLink:
		return "Link"
	case KindLinkOption:
		return "LinkOption"
	case KindMultilinks:
		return "Multilinks"
	case KindBacklinks:
		return "Backlinks"
	default:
		return "unknown"
	}
}

// fieldMarker is implemented by every field view type below, giving
// TryRegister a type-erased way to classify a struct field's kind without
// reflecting over its generic type parameter (the reflect package
// exposes no API for that).
type fieldMarker interface {
	fieldKind() FieldKind
}

// Loader resolves an id into an entity of type U, returning found=false
// rather than an error when the id simply doesn't resolve to one (a
// dangling edge, or a field left absent). Each generated entity package
// supplies its own Loader backed by its hand-written Get function.
type Loader[U any] func(ctx context.Context, store ambient.Store, i id.Id) (*U, bool, error)

// Atom is a required scalar field: an edge to a dedicated payload node,
// decoded through a Codec.
type Atom[T any] struct {
	dst   id.Id
	codec codec.Codec
}

func (Atom[T]) fieldKind() FieldKind { return KindAtom }

// BindAtom constructs an Atom view over an already-known payload
// destination id, for use by hand-written Get functions.
func BindAtom[T any](dst id.Id, c codec.Codec) Atom[T] {
	return Atom[T]{dst: dst, codec: c}
}

// Value decodes the atom's payload.
func (a Atom[T]) Value(ctx context.Context, store ambient.Store) (T, error) {
	var zero T
	payload, ok, err := store.LoadAtomPayload(ctx, a.dst)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ErrFieldMissing
	}
	var v T
	if err := a.codec.Decode(payload, &v); err != nil {
		return zero, fmt.Errorf("schema: decode atom: %w", err)
	}
	return v, nil
}

// AtomOption is an optional scalar field. Absence is represented by an
// edge to a fresh id with no atom payload ever written for it, so
// presence is resolved by checking whether a payload row exists, not by
// any flag carried in the view itself.
type AtomOption[T any] struct {
	dst   id.Id
	codec codec.Codec
}

func (AtomOption[T]) fieldKind() FieldKind { return KindAtomOption }

// BindAtomOption constructs an AtomOption view over an already-known
// payload destination id.
func BindAtomOption[T any](dst id.Id, c codec.Codec) AtomOption[T] {
	return AtomOption[T]{dst: dst, codec: c}
}

// Value reports the decoded payload and whether one was present.
func (a AtomOption[T]) Value(ctx context.Context, store ambient.Store) (T, bool, error) {
	var zero T
	payload, ok, err := store.LoadAtomPayload(ctx, a.dst)
	if err != nil || !ok {
		return zero, false, err
	}
	var v T
	if err := a.codec.Decode(payload, &v); err != nil {
		return zero, false, fmt.Errorf("schema: decode atom: %w", err)
	}
	return v, true, nil
}

// Link is a required reference to another entity.
type Link[U any] struct {
	target id.Id
	load   Loader[U]
}

func (Link[U]) fieldKind() FieldKind { return KindLink }

// BindLink constructs a Link view over an already-known target id.
func BindLink[U any](target id.Id, load Loader[U]) Link[U] {
	return Link[U]{target: target, load: load}
}

// ID returns the target id without resolving the entity.
func (l Link[U]) ID() id.Id { return l.target }

// Get resolves the linked entity.
func (l Link[U]) Get(ctx context.Context, store ambient.Store) (*U, error) {
	ent, found, err := l.load(ctx, store, l.target)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrFieldMissing
	}
	return ent, nil
}

// LinkOption is an optional reference to another entity. Absence is an
// edge to a fresh id whose node register was never written.
type LinkOption[U any] struct {
	target id.Id
	load   Loader[U]
}

func (LinkOption[U]) fieldKind() FieldKind { return KindLinkOption }

// BindLinkOption constructs a LinkOption view over an already-known
// target id.
func BindLinkOption[U any](target id.Id, load Loader[U]) LinkOption[U] {
	return LinkOption[U]{target: target, load: load}
}

// Get resolves the linked entity, reporting false if the field is
// absent.
func (l LinkOption[U]) Get(ctx context.Context, store ambient.Store) (*U, bool, error) {
	_, present, err := store.Node(ctx, l.target)
	if err != nil || !present {
		return nil, false, err
	}
	ent, found, err := l.load(ctx, store, l.target)
	if err != nil || !found {
		return nil, false, err
	}
	return ent, true, nil
}

// Multilinks is a to-many field: every outgoing edge from the owner
// tagged with this field's label.
type Multilinks[U any] struct {
	owner      id.Id
	fieldLabel label.Label
	load       Loader[U]
}

func (Multilinks[U]) fieldKind() FieldKind { return KindMultilinks }

// NewMultilinks constructs a Multilinks view for owner.
func NewMultilinks[U any](owner id.Id, fieldLabel label.Label, load Loader[U]) Multilinks[U] {
	return Multilinks[U]{owner: owner, fieldLabel: fieldLabel, load: load}
}

// All resolves every entity currently linked through this field.
// Dangling edges (the target no longer resolves) are skipped rather
// than surfaced as an error.
func (m Multilinks[U]) All(ctx context.Context, store ambient.Store) ([]*U, error) {
	edgeIds, err := store.QueryEdgeSrc(ctx, m.owner)
	if err != nil {
		return nil, err
	}
	out := make([]*U, 0, len(edgeIds))
	for _, eid := range edgeIds {
		ev, ok, err := store.Edge(ctx, eid)
		if err != nil {
			return nil, err
		}
		if !ok || ev.Label != m.fieldLabel {
			continue
		}
		ent, found, err := m.load(ctx, store, ev.Dst)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, ent)
		}
	}
	return out, nil
}

// Backlinks is the inverse of a Link/Multilinks field declared on
// another entity: every entity whose named field points at the owner.
type Backlinks[U any] struct {
	owner        id.Id
	foreignLabel label.Label
	load         Loader[U]
}

func (Backlinks[U]) fieldKind() FieldKind { return KindBacklinks }

// NewBacklinks constructs a Backlinks view for owner, scanning edges
// carrying foreignLabel (the label of the field it inverts).
func NewBacklinks[U any](owner id.Id, foreignLabel label.Label, load Loader[U]) Backlinks[U] {
	return Backlinks[U]{owner: owner, foreignLabel: foreignLabel, load: load}
}

// All resolves every entity whose forward field points at the owner.
func (b Backlinks[U]) All(ctx context.Context, store ambient.Store) ([]*U, error) {
	edgeIds, err := store.QueryEdgeLabelDst(ctx, b.foreignLabel, b.owner)
	if err != nil {
		return nil, err
	}
	out := make([]*U, 0, len(edgeIds))
	for _, eid := range edgeIds {
		ev, ok, err := store.Edge(ctx, eid)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		ent, found, err := b.load(ctx, store, ev.Src)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, ent)
		}
	}
	return out, nil
}
