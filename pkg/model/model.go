// Package model is a worked example of the schema compiler: four
// entity types (Person, Post, Item, Multi) with hand-written
// constructors and getters, in the shape a code generator targeting
// schema's field views would emit. It exists to exercise the schema
// package end to end and as a template for real entity packages.
package model

import (
	"context"

	"github.com/dan-solli/lwwgraph/pkg/ambient"
	"github.com/dan-solli/lwwgraph/pkg/codec"
	"github.com/dan-solli/lwwgraph/pkg/id"
	"github.com/dan-solli/lwwgraph/pkg/schema"
)

var jsonCodec = codec.JSON{}

// Person has one required scalar field and the inverse of every Post
// that links to it.
type Person struct {
	ID    id.Id
	Name  schema.Atom[string]
	Posts schema.Backlinks[Post] `backlink:"Post.author"`
}

var personSchema = schema.MustRegister[Person]()

// CreatePerson mints a new Person with the given name.
func CreatePerson(ctx context.Context, h *ambient.Handle, name string) (*Person, error) {
	return ambient.WithStore(ctx, h, func(ctx context.Context, store ambient.Store) (*Person, error) {
		c := h.NextClock()
		pid, err := schema.NewNode(ctx, store, c, personSchema.Label)
		if err != nil {
			return nil, err
		}
		nameField, err := schema.WriteAtom(ctx, store, jsonCodec, pid, personSchema.FieldLabel("Name"), c, name)
		if err != nil {
			return nil, err
		}
		return &Person{
			ID:    pid,
			Name:  nameField,
			Posts: schema.NewBacklinks[Post](pid, personSchema.FieldLabel("Posts"), GetPost),
		}, nil
	})
}

// GetPerson resolves a Person by id, matching schema.Loader[Person].
func GetPerson(ctx context.Context, store ambient.Store, pid id.Id) (*Person, bool, error) {
	nodeLabel, present, byLabel, err := schema.ReadOutgoing(ctx, store, pid)
	if err != nil {
		return nil, false, err
	}
	if !present || nodeLabel != personSchema.Label {
		return nil, false, nil
	}
	nameDst, ok := byLabel[personSchema.FieldLabel("Name")]
	if !ok {
		return nil, false, nil
	}
	return &Person{
		ID:    pid,
		Name:  schema.BindAtom[string](nameDst, jsonCodec),
		Posts: schema.NewBacklinks[Post](pid, personSchema.FieldLabel("Posts"), GetPost),
	}, true, nil
}

// Post has one required reference field, its author.
type Post struct {
	ID     id.Id
	Author schema.Link[Person]
}

var postSchema = schema.MustRegister[Post]()

// CreatePost mints a new Post authored by the person with id author.
func CreatePost(ctx context.Context, h *ambient.Handle, author id.Id) (*Post, error) {
	return ambient.WithStore(ctx, h, func(ctx context.Context, store ambient.Store) (*Post, error) {
		c := h.NextClock()
		pid, err := schema.NewNode(ctx, store, c, postSchema.Label)
		if err != nil {
			return nil, err
		}
		authorField, err := schema.WriteLink[Person](ctx, store, pid, postSchema.FieldLabel("Author"), c, author, GetPerson)
		if err != nil {
			return nil, err
		}
		return &Post{ID: pid, Author: authorField}, nil
	})
}

// GetPost resolves a Post by id, matching schema.Loader[Post].
func GetPost(ctx context.Context, store ambient.Store, pid id.Id) (*Post, bool, error) {
	nodeLabel, present, byLabel, err := schema.ReadOutgoing(ctx, store, pid)
	if err != nil {
		return nil, false, err
	}
	if !present || nodeLabel != postSchema.Label {
		return nil, false, nil
	}
	authorDst, ok := byLabel[postSchema.FieldLabel("Author")]
	if !ok {
		return nil, false, nil
	}
	return &Post{
		ID:     pid,
		Author: schema.BindLink[Person](authorDst, GetPerson),
	}, true, nil
}

// Item is a minimal scalar entity, used as the target of Multi's
// Multilinks field.
type Item struct {
	ID   id.Id
	Name schema.Atom[string]
}

var itemSchema = schema.MustRegister[Item]()

// CreateItem mints a new Item with the given name.
func CreateItem(ctx context.Context, h *ambient.Handle, name string) (*Item, error) {
	return ambient.WithStore(ctx, h, func(ctx context.Context, store ambient.Store) (*Item, error) {
		c := h.NextClock()
		iid, err := schema.NewNode(ctx, store, c, itemSchema.Label)
		if err != nil {
			return nil, err
		}
		nameField, err := schema.WriteAtom(ctx, store, jsonCodec, iid, itemSchema.FieldLabel("Name"), c, name)
		if err != nil {
			return nil, err
		}
		return &Item{ID: iid, Name: nameField}, nil
	})
}

// GetItem resolves an Item by id, matching schema.Loader[Item].
func GetItem(ctx context.Context, store ambient.Store, iid id.Id) (*Item, bool, error) {
	nodeLabel, present, byLabel, err := schema.ReadOutgoing(ctx, store, iid)
	if err != nil {
		return nil, false, err
	}
	if !present || nodeLabel != itemSchema.Label {
		return nil, false, nil
	}
	nameDst, ok := byLabel[itemSchema.FieldLabel("Name")]
	if !ok {
		return nil, false, nil
	}
	return &Item{ID: iid, Name: schema.BindAtom[string](nameDst, jsonCodec)}, true, nil
}

// Multi holds a to-many field of Items. Construction emits no edges;
// items are attached afterward with AddItem.
type Multi struct {
	ID    id.Id
	Items schema.Multilinks[Item]
}

var multiSchema = schema.MustRegister[Multi]()

// CreateMulti mints a new, empty Multi.
func CreateMulti(ctx context.Context, h *ambient.Handle) (*Multi, error) {
	return ambient.WithStore(ctx, h, func(ctx context.Context, store ambient.Store) (*Multi, error) {
		c := h.NextClock()
		mid, err := schema.NewNode(ctx, store, c, multiSchema.Label)
		if err != nil {
			return nil, err
		}
		return &Multi{
			ID:    mid,
			Items: schema.NewMultilinks[Item](mid, multiSchema.FieldLabel("Items"), GetItem),
		}, nil
	})
}

// GetMulti resolves a Multi by id, matching schema.Loader[Multi].
func GetMulti(ctx context.Context, store ambient.Store, mid id.Id) (*Multi, bool, error) {
	nodeLabel, present, _, err := schema.ReadOutgoing(ctx, store, mid)
	if err != nil {
		return nil, false, err
	}
	if !present || nodeLabel != multiSchema.Label {
		return nil, false, nil
	}
	return &Multi{
		ID:    mid,
		Items: schema.NewMultilinks[Item](mid, multiSchema.FieldLabel("Items"), GetItem),
	}, true, nil
}

// AddItem attaches item to multi's Items field.
func AddItem(ctx context.Context, h *ambient.Handle, multi, item id.Id) error {
	_, err := ambient.WithStore(ctx, h, func(ctx context.Context, store ambient.Store) (struct{}, error) {
		c := h.NextClock()
		return struct{}{}, schema.AddMultilink(ctx, store, multi, multiSchema.FieldLabel("Items"), c, item)
	})
	return err
}
