package pgraph

import (
	"context"
	"testing"

	"github.com/dan-solli/lwwgraph/pkg/clock"
	"github.com/dan-solli/lwwgraph/pkg/engine"
	"github.com/dan-solli/lwwgraph/pkg/graph"
	"github.com/dan-solli/lwwgraph/pkg/id"
	"github.com/dan-solli/lwwgraph/pkg/label"
	"github.com/dan-solli/lwwgraph/pkg/register"
)

var (
	personLabel = label.Hash("Person")
	postLabel   = label.Hash("Post")
	authorLabel = label.Hash("Post.author")
)

func newTestPG(t *testing.T) (*PG, engine.Store) {
	t.Helper()
	store, err := engine.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()
	pg, err := New(ctx, store, engine.Namespace{Collection: "test", Name: "pgraph"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return pg, store
}

func c(n uint64) clock.Clock { return clock.Clock{Hi: 0, Lo: n} }

func TestApplyPersistsThroughSQLiteStore(t *testing.T) {
	ctx := context.Background()
	pg, _ := newTestPG(t)

	nodeId := id.New()
	edgeId := id.New()
	src, dst := id.New(), id.New()

	action := graph.Comp(
		ActionNode(c(1), nodeId, register.Some(personLabel)),
		ActionEdge(c(1), edgeId, register.Some(graph.EdgeValue{Src: src, Label: authorLabel, Dst: dst})),
	)

	if err := pg.Apply(ctx, action); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// drop the in-memory copy and force a reload from the backing store
	pg.Free()

	gotLabel, ok, err := pg.Node(ctx, nodeId)
	if err != nil {
		t.Fatalf("Node after reload: %v", err)
	}
	if !ok || gotLabel != personLabel {
		t.Fatalf("Node after reload = (%v, %v), want (%v, true)", gotLabel, ok, personLabel)
	}

	gotEdge, ok, err := pg.Edge(ctx, edgeId)
	if err != nil {
		t.Fatalf("Edge after reload: %v", err)
	}
	if !ok || gotEdge.Src != src || gotEdge.Label != authorLabel || gotEdge.Dst != dst {
		t.Fatalf("Edge after reload = (%+v, %v), want src=%v label=%v dst=%v", gotEdge, ok, src, authorLabel, dst)
	}
}

func TestApplyOlderDeltaDoesNotOverwriteNewer(t *testing.T) {
	ctx := context.Background()
	pg, _ := newTestPG(t)

	nodeId := id.New()
	if err := pg.Apply(ctx, ActionNode(c(2), nodeId, register.Some(personLabel))); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := pg.Apply(ctx, ActionNode(c(1), nodeId, register.Some(postLabel))); err != nil {
		t.Fatalf("Apply older delta: %v", err)
	}

	pg.Free()
	gotLabel, ok, err := pg.Node(ctx, nodeId)
	if err != nil || !ok || gotLabel != personLabel {
		t.Fatalf("Node after older apply = (%v, %v, %v), want (%v, true, nil)", gotLabel, ok, err, personLabel)
	}
}

func TestApplyTombstoneRoundTrips(t *testing.T) {
	ctx := context.Background()
	pg, _ := newTestPG(t)

	nodeId := id.New()
	if err := pg.Apply(ctx, ActionNode(c(1), nodeId, register.Some(personLabel))); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := pg.Apply(ctx, ActionNode(c(2), nodeId, register.None[label.Label]())); err != nil {
		t.Fatalf("Apply tombstone: %v", err)
	}

	pg.Free()
	_, ok, err := pg.Node(ctx, nodeId)
	if err != nil {
		t.Fatalf("Node after tombstone reload: %v", err)
	}
	if ok {
		t.Fatal("node still present after tombstone round-trip through the backing store")
	}
}

func TestJoinPersistsThroughSQLiteStore(t *testing.T) {
	ctx := context.Background()
	pg, _ := newTestPG(t)

	nodeId := id.New()
	if err := pg.Apply(ctx, ActionNode(c(1), nodeId, register.Some(personLabel))); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	other := graph.New()
	other.SetNode(nodeId, c(2), register.Some(postLabel))

	if err := pg.Join(ctx, other); err != nil {
		t.Fatalf("Join: %v", err)
	}

	pg.Free()
	gotLabel, ok, err := pg.Node(ctx, nodeId)
	if err != nil || !ok || gotLabel != postLabel {
		t.Fatalf("Node after join+reload = (%v, %v, %v), want (%v, true, nil)", gotLabel, ok, err, postLabel)
	}
}

func TestJoinDoesNotRegressOnOlderClock(t *testing.T) {
	ctx := context.Background()
	pg, _ := newTestPG(t)

	nodeId := id.New()
	if err := pg.Apply(ctx, ActionNode(c(5), nodeId, register.Some(personLabel))); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	other := graph.New()
	other.SetNode(nodeId, c(1), register.Some(postLabel))

	if err := pg.Join(ctx, other); err != nil {
		t.Fatalf("Join: %v", err)
	}

	pg.Free()
	gotLabel, ok, err := pg.Node(ctx, nodeId)
	if err != nil || !ok || gotLabel != personLabel {
		t.Fatalf("Node after regressing join = (%v, %v, %v), want (%v, true, nil)", gotLabel, ok, err, personLabel)
	}
}

func TestPreorderDominance(t *testing.T) {
	ctx := context.Background()
	pg, _ := newTestPG(t)

	nodeId := id.New()
	if err := pg.Apply(ctx, ActionNode(c(1), nodeId, register.Some(personLabel))); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	dominating := graph.New()
	dominating.SetNode(nodeId, c(2), register.Some(postLabel))

	ok, err := pg.Preorder(ctx, dominating)
	if err != nil {
		t.Fatalf("Preorder: %v", err)
	}
	if !ok {
		t.Fatal("Preorder(dominating) should hold: pg's clock is strictly lower")
	}

	regressing := graph.New()
	regressing.SetNode(nodeId, c(0), register.Some(postLabel))

	ok, err = pg.Preorder(ctx, regressing)
	if err != nil {
		t.Fatalf("Preorder: %v", err)
	}
	if ok {
		t.Fatal("Preorder(regressing) should not hold: pg's clock is strictly higher")
	}
}

func TestPreorderIsReadOnly(t *testing.T) {
	ctx := context.Background()
	pg, store := newTestPG(t)
	ns := pg.Namespace()

	other := graph.New()
	freshId := id.New()
	other.SetNode(freshId, c(1), register.Some(personLabel))

	if _, err := pg.Preorder(ctx, other); err != nil {
		t.Fatalf("Preorder: %v", err)
	}

	// Preorder loads referenced ids into memory but must never save: the
	// backing store should still have no row for an id introduced only
	// by the comparison graph.
	_, found, err := store.LoadNode(ctx, ns, freshId)
	if err != nil {
		t.Fatalf("LoadNode: %v", err)
	}
	if found {
		t.Fatal("Preorder persisted a row to the backing store")
	}
}

func TestActionNodeAndActionEdgeBuildSingleEntryActions(t *testing.T) {
	nodeId := id.New()
	a := ActionNode(c(1), nodeId, register.Some(personLabel))
	if len(a.Nodes) != 1 || len(a.Edges) != 0 {
		t.Fatalf("ActionNode produced %+v, want a single node entry", a)
	}
	reg, ok := a.Nodes[nodeId]
	if !ok {
		t.Fatalf("ActionNode did not key the delta by %v", nodeId)
	}
	if v, ok := reg.Value.Get(); !ok || v != personLabel {
		t.Fatalf("ActionNode delta value = (%v, %v), want (%v, true)", v, ok, personLabel)
	}

	edgeId := id.New()
	src, dst := id.New(), id.New()
	e := ActionEdge(c(1), edgeId, register.Some(graph.EdgeValue{Src: src, Label: authorLabel, Dst: dst}))
	if len(e.Edges) != 1 || len(e.Nodes) != 0 {
		t.Fatalf("ActionEdge produced %+v, want a single edge entry", e)
	}
	if _, ok := e.Edges[edgeId]; !ok {
		t.Fatalf("ActionEdge did not key the delta by %v", edgeId)
	}
}

func TestApplyOnlyLoadsAndSavesReferencedIds(t *testing.T) {
	ctx := context.Background()
	pg, _ := newTestPG(t)

	untouched := id.New()
	if err := pg.Apply(ctx, ActionNode(c(1), untouched, register.Some(personLabel))); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	touched := id.New()
	if err := pg.Apply(ctx, ActionNode(c(1), touched, register.Some(postLabel))); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	pg.Free()

	gotUntouched, ok, err := pg.Node(ctx, untouched)
	if err != nil || !ok || gotUntouched != personLabel {
		t.Fatalf("untouched node after reload = (%v, %v, %v), want (%v, true, nil)", gotUntouched, ok, err, personLabel)
	}
	gotTouched, ok, err := pg.Node(ctx, touched)
	if err != nil || !ok || gotTouched != postLabel {
		t.Fatalf("touched node after reload = (%v, %v, %v), want (%v, true, nil)", gotTouched, ok, err, postLabel)
	}
}
