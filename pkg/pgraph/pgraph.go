// Package pgraph implements PG, the persistent graph: an in-memory
// graph.G with load-on-demand and write-through layered on top of a
// relational mirror (engine.Store).
package pgraph

import (
	"context"
	"fmt"
	"time"

	"github.com/dan-solli/lwwgraph/pkg/ambient"
	"github.com/dan-solli/lwwgraph/pkg/clock"
	"github.com/dan-solli/lwwgraph/pkg/engine"
	"github.com/dan-solli/lwwgraph/pkg/graph"
	"github.com/dan-solli/lwwgraph/pkg/gtrace"
	"github.com/dan-solli/lwwgraph/pkg/id"
	"github.com/dan-solli/lwwgraph/pkg/label"
	"github.com/dan-solli/lwwgraph/pkg/metrics"
	"github.com/dan-solli/lwwgraph/pkg/register"
)

// PG satisfies ambient.Store: a Handle can be backed directly by a
// persistent graph, giving schema-level reads and writes load-on-demand
// and write-through behaviour for free.
var _ ambient.Store = (*PG)(nil)

// PG is the persistent graph: G plus the bookkeeping needed to load
// ids from, and save ids to, a relational mirror on demand.
type PG struct {
	g     *graph.G
	store engine.Store
	ns    engine.Namespace

	loadedNodes map[id.Id]struct{}
	loadedEdges map[id.Id]struct{}

	metrics metrics.Collector // optional
}

// WithMetricsCollector sets the metrics collector for this PG instance
// and returns p, for chaining after New.
func (p *PG) WithMetricsCollector(collector metrics.Collector) *PG {
	p.metrics = collector
	return p
}

// New creates (or attaches to) a persistent graph under the given
// namespace. It ensures the namespace's tables exist but loads nothing
// eagerly.
func New(ctx context.Context, store engine.Store, ns engine.Namespace) (*PG, error) {
	if err := store.EnsureNamespace(ctx, ns); err != nil {
		return nil, err
	}
	return &PG{
		g:           graph.New(),
		store:       store,
		ns:          ns,
		loadedNodes: make(map[id.Id]struct{}),
		loadedEdges: make(map[id.Id]struct{}),
	}, nil
}

// Namespace returns the namespace this PG is backed by.
func (p *PG) Namespace() engine.Namespace { return p.ns }

// LoadNode materialises id into G from the backing store, if it has
// not been loaded since the last Free. A missing row installs the zero
// register, exactly as an id that was never written.
func (p *PG) LoadNode(ctx context.Context, i id.Id) error {
	if _, ok := p.loadedNodes[i]; ok {
		return nil
	}
	row, found, err := p.store.LoadNode(ctx, p.ns, i)
	if err != nil {
		return err
	}
	if found {
		var value register.Option[label.Label]
		if row.Label != nil {
			value = register.Some(*row.Label)
		}
		p.g.SetNode(i, row.Clock, value)
	}
	p.loadedNodes[i] = struct{}{}
	return nil
}

// LoadEdge materialises id into G from the backing store, analogous to
// LoadNode.
func (p *PG) LoadEdge(ctx context.Context, i id.Id) error {
	if _, ok := p.loadedEdges[i]; ok {
		return nil
	}
	row, found, err := p.store.LoadEdge(ctx, p.ns, i)
	if err != nil {
		return err
	}
	if found {
		var value register.Option[graph.EdgeValue]
		if row.Label != nil && row.Src != nil && row.Dst != nil {
			value = register.Some(graph.EdgeValue{Src: *row.Src, Label: *row.Label, Dst: *row.Dst})
		}
		p.g.SetEdge(i, row.Clock, value)
	}
	p.loadedEdges[i] = struct{}{}
	return nil
}

// SaveNode replaces id's row in the backing store with its current
// register in G. Saving a tombstone writes the None-valued row.
func (p *PG) SaveNode(ctx context.Context, i id.Id) error {
	reg := p.g.NodeRegisterOf(i)
	var lbl *label.Label
	if v, ok := reg.Value.Get(); ok {
		lbl = &v
	}
	return p.store.SaveNode(ctx, p.ns, i, engine.NodeRow{Clock: reg.Clock, Label: lbl})
}

// SaveEdge replaces id's row in the backing store with its current
// register in G.
func (p *PG) SaveEdge(ctx context.Context, i id.Id) error {
	reg := p.g.EdgeRegisterOf(i)
	var src, dst *id.Id
	var lbl *label.Label
	if v, ok := reg.Value.Get(); ok {
		src, dst = &v.Src, &v.Dst
		lbl = &v.Label
	}
	return p.store.SaveEdge(ctx, p.ns, i, engine.EdgeRow{Clock: reg.Clock, Src: src, Label: lbl, Dst: dst})
}

// Loads materialises every id in ns and es into G.
func (p *PG) Loads(ctx context.Context, ns, es []id.Id) error {
	for _, i := range ns {
		if err := p.LoadNode(ctx, i); err != nil {
			return err
		}
	}
	for _, i := range es {
		if err := p.LoadEdge(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

// Saves writes every id in ns and es back to the backing store.
func (p *PG) Saves(ctx context.Context, ns, es []id.Id) error {
	for _, i := range ns {
		if err := p.SaveNode(ctx, i); err != nil {
			return err
		}
	}
	for _, i := range es {
		if err := p.SaveEdge(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

// UnloadNode drops id from G and from the loaded set. This does not
// tombstone the id — it just forgets the in-memory copy; the next Load
// repopulates it from the backing store's authoritative state. Safe
// only after Save; the caller is responsible for flushing first.
func (p *PG) UnloadNode(i id.Id) {
	p.g.ForgetNode(i)
	delete(p.loadedNodes, i)
}

// UnloadEdge drops id from G and from the loaded set, analogous to
// UnloadNode.
func (p *PG) UnloadEdge(i id.Id) {
	p.g.ForgetEdge(i)
	delete(p.loadedEdges, i)
}

// Unloads batches UnloadNode/UnloadEdge, mirroring Loads/Saves.
func (p *PG) Unloads(ns, es []id.Id) {
	for _, i := range ns {
		p.UnloadNode(i)
	}
	for _, i := range es {
		p.UnloadEdge(i)
	}
}

// Free resets G and the loaded sets; the backing store remains
// authoritative and the next access re-loads from it.
func (p *PG) Free() {
	p.g = graph.New()
	p.loadedNodes = make(map[id.Id]struct{})
	p.loadedEdges = make(map[id.Id]struct{})
}

// Node loads (if needed) and returns the present label for id.
func (p *PG) Node(ctx context.Context, i id.Id) (label.Label, bool, error) {
	if err := p.LoadNode(ctx, i); err != nil {
		return 0, false, err
	}
	l, ok := p.g.Node(i)
	return l, ok, nil
}

// Edge loads (if needed) and returns the present (src, label, dst) for
// id.
func (p *PG) Edge(ctx context.Context, i id.Id) (graph.EdgeValue, bool, error) {
	if err := p.LoadEdge(ctx, i); err != nil {
		return graph.EdgeValue{}, false, err
	}
	e, ok := p.g.Edge(i)
	return e, ok, nil
}

// SetNode loads id, applies the delta, and saves it back.
func (p *PG) SetNode(ctx context.Context, i id.Id, c clock.Clock, value register.Option[label.Label]) error {
	if err := p.LoadNode(ctx, i); err != nil {
		return err
	}
	p.g.SetNode(i, c, value)
	return p.SaveNode(ctx, i)
}

// SetEdge loads id, applies the delta, and saves it back.
func (p *PG) SetEdge(ctx context.Context, i id.Id, c clock.Clock, value register.Option[graph.EdgeValue]) error {
	if err := p.LoadEdge(ctx, i); err != nil {
		return err
	}
	p.g.SetEdge(i, c, value)
	return p.SaveEdge(ctx, i)
}

// QueryNodeLabel answers directly from the backing store, without
// forcing a load of the matching ids into G.
func (p *PG) QueryNodeLabel(ctx context.Context, l label.Label) ([]id.Id, error) {
	return p.store.QueryNodeLabel(ctx, p.ns, l)
}

// QueryEdgeSrc answers directly from the backing store.
func (p *PG) QueryEdgeSrc(ctx context.Context, src id.Id) ([]id.Id, error) {
	return p.store.QueryEdgeSrc(ctx, p.ns, src)
}

// QueryEdgeLabelDst answers directly from the backing store.
func (p *PG) QueryEdgeLabelDst(ctx context.Context, l label.Label, dst id.Id) ([]id.Id, error) {
	return p.store.QueryEdgeLabelDst(ctx, p.ns, l, dst)
}

// LoadAtomPayload reads the payload for an atom destination node.
func (p *PG) LoadAtomPayload(ctx context.Context, dst id.Id) ([]byte, bool, error) {
	return p.store.LoadAtomPayload(ctx, p.ns, dst)
}

// SaveAtomPayload writes the payload for an atom destination node.
func (p *PG) SaveAtomPayload(ctx context.Context, dst id.Id, payload []byte) error {
	return p.store.SaveAtomPayload(ctx, p.ns, dst, payload)
}

// ActionNode builds a single-entry Action setting one node's register,
// for callers that build actions by hand instead of through schema.
func ActionNode(c clock.Clock, i id.Id, value register.Option[label.Label]) graph.Action {
	return graph.Action{Nodes: map[id.Id]graph.NodeRegister{i: {Clock: c, Value: value}}}
}

// ActionEdge builds a single-entry Action setting one edge's register.
func ActionEdge(c clock.Clock, i id.Id, value register.Option[graph.EdgeValue]) graph.Action {
	return graph.Action{Edges: map[id.Id]graph.EdgeRegister{i: {Clock: c, Value: value}}}
}

func actionIds(a graph.Action) (ns, es []id.Id) {
	ns = make([]id.Id, 0, len(a.Nodes))
	for i := range a.Nodes {
		ns = append(ns, i)
	}
	es = make([]id.Id, 0, len(a.Edges))
	for i := range a.Edges {
		es = append(es, i)
	}
	return ns, es
}

// Apply loads every id referenced by the action, delegates to G's
// Apply, then saves every referenced id.
func (p *PG) Apply(ctx context.Context, a graph.Action) (err error) {
	const op = "apply"
	start := nowMs()
	trace := p.maybeTrace()
	defer func() { p.report(ctx, op, start, trace, err) }()

	ns, es := actionIds(a)

	loadTimer := gtrace.StartSpan("load", trace)
	err = p.Loads(ctx, ns, es)
	loadTimer.Finish(err)
	if err != nil {
		return fmt.Errorf("lwwgraph: apply: %w", err)
	}

	p.g.Apply(a)

	saveTimer := gtrace.StartSpan("save", trace)
	err = p.Saves(ctx, ns, es)
	saveTimer.Finish(err)
	if err != nil {
		return fmt.Errorf("lwwgraph: apply: %w", err)
	}
	return nil
}

// Join loads every id in other, delegates to G's Join, then saves
// every referenced id.
func (p *PG) Join(ctx context.Context, other *graph.G) (err error) {
	const op = "join"
	start := nowMs()
	trace := p.maybeTrace()
	defer func() { p.report(ctx, op, start, trace, err) }()

	ns, es := other.NodeIds(), other.EdgeIds()

	loadTimer := gtrace.StartSpan("load", trace)
	err = p.Loads(ctx, ns, es)
	loadTimer.Finish(err)
	if err != nil {
		return fmt.Errorf("lwwgraph: join: %w", err)
	}

	p.g.Join(other)

	saveTimer := gtrace.StartSpan("save", trace)
	err = p.Saves(ctx, ns, es)
	saveTimer.Finish(err)
	if err != nil {
		return fmt.Errorf("lwwgraph: join: %w", err)
	}
	return nil
}

// Preorder loads every id in other and delegates to G's Preorder. It is
// a pure read: no save.
func (p *PG) Preorder(ctx context.Context, other *graph.G) (result bool, err error) {
	const op = "preorder"
	start := nowMs()
	trace := p.maybeTrace()
	defer func() { p.report(ctx, op, start, trace, err) }()

	ns, es := other.NodeIds(), other.EdgeIds()

	loadTimer := gtrace.StartSpan("load", trace)
	err = p.Loads(ctx, ns, es)
	loadTimer.Finish(err)
	if err != nil {
		return false, fmt.Errorf("lwwgraph: preorder: %w", err)
	}

	return p.g.Preorder(other), nil
}

func nowMs() int64 { return time.Now().UnixMilli() }

// maybeTrace returns a fresh Trace when a metrics collector is
// attached, or nil otherwise — gtrace.StartSpan treats a nil trace as a
// no-op, so callers never need to branch on whether tracing is on.
func (p *PG) maybeTrace() *gtrace.Trace {
	if p.metrics == nil {
		return nil
	}
	return gtrace.NewTrace()
}

// report records an operation's outcome through the optional metrics
// collector: one RecordOperation for the whole call, one RecordStage
// per completed span, and a RecordError when it failed. A nil
// collector makes every call here a no-op.
func (p *PG) report(ctx context.Context, op string, startMs int64, trace *gtrace.Trace, err error) {
	if p.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	p.metrics.RecordOperation(ctx, op, status, nowMs()-startMs)
	for _, span := range trace.Spans {
		p.metrics.RecordStage(ctx, op, span.Name, span.DurationMs)
	}
	if err != nil {
		p.metrics.RecordError(ctx, op, ClassifyError(err))
	}
	p.metrics.SetStorageCount(ctx, "node", int64(len(p.loadedNodes)))
	p.metrics.SetStorageCount(ctx, "edge", int64(len(p.loadedEdges)))
}

// Close releases the underlying backing store.
func (p *PG) Close() error {
	return p.store.Close()
}
