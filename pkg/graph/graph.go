// Package graph implements G, the in-memory LWW object graph: two keyed
// maps of independently versioned registers (nodes and edges) plus the
// secondary indices needed to answer label/source/destination queries
// without a full scan.
package graph

import (
	"github.com/dan-solli/lwwgraph/pkg/clock"
	"github.com/dan-solli/lwwgraph/pkg/id"
	"github.com/dan-solli/lwwgraph/pkg/label"
	"github.com/dan-solli/lwwgraph/pkg/register"
)

// EdgeValue is the triple an edge register carries when present: the
// source and destination node ids and the field label the edge is
// tagged with.
type EdgeValue struct {
	Src   id.Id
	Label label.Label
	Dst   id.Id
}

// Encode implements register.Encodable for the edge-register tie-break:
// a fixed-width big-endian concatenation of src, label, dst.
func (e EdgeValue) Encode() []byte {
	buf := make([]byte, 0, 40)
	src := e.Src.Bytes()
	lbl := e.Label.Bytes()
	dst := e.Dst.Bytes()
	buf = append(buf, src[:]...)
	buf = append(buf, lbl[:]...)
	buf = append(buf, dst[:]...)
	return buf
}

// NodeRegister and EdgeRegister name the two register instantiations
// used throughout this package and its callers.
type (
	NodeRegister = register.Register[label.Label]
	EdgeRegister = register.Register[EdgeValue]
)

// idSet is the map-of-struct{} idiom used for every set in this engine.
type idSet map[id.Id]struct{}

func (s idSet) add(i id.Id)      { s[i] = struct{}{} }
func (s idSet) remove(i id.Id)   { delete(s, i) }
func (s idSet) has(i id.Id) bool { _, ok := s[i]; return ok }

// Action is a partial function from ids to register deltas: the unit of
// work Apply, Join and Comp operate over.
type Action struct {
	Nodes map[id.Id]NodeRegister
	Edges map[id.Id]EdgeRegister
}

// Comp composes two actions into one, keeping — per id, independently
// for nodes and edges — the entry with the greater clock. Comp is an
// associative monoid whose identity is the empty Action.
func Comp(a, b Action) Action {
	out := Action{
		Nodes: make(map[id.Id]NodeRegister, len(a.Nodes)+len(b.Nodes)),
		Edges: make(map[id.Id]EdgeRegister, len(a.Edges)+len(b.Edges)),
	}
	for k, v := range a.Nodes {
		out.Nodes[k] = v
	}
	for k, v := range b.Nodes {
		if cur, ok := out.Nodes[k]; ok {
			out.Nodes[k] = register.Join(cur, v)
		} else {
			out.Nodes[k] = v
		}
	}
	for k, v := range a.Edges {
		out.Edges[k] = v
	}
	for k, v := range b.Edges {
		if cur, ok := out.Edges[k]; ok {
			out.Edges[k] = register.Join(cur, v)
		} else {
			out.Edges[k] = v
		}
	}
	return out
}

// G is the in-memory object graph: nodes and edges, each a map from id
// to LWW register, plus the three secondary views the spec requires to
// stay in sync with the primary registers after every mutation.
type G struct {
	nodes map[id.Id]NodeRegister
	edges map[id.Id]EdgeRegister

	byNodeLabel    map[label.Label]idSet
	byEdgeSrc      map[id.Id]idSet
	byEdgeLabelDst map[label.Label]map[id.Id]idSet
}

// New returns an empty graph.
func New() *G {
	return &G{
		nodes:          make(map[id.Id]NodeRegister),
		edges:          make(map[id.Id]EdgeRegister),
		byNodeLabel:    make(map[label.Label]idSet),
		byEdgeSrc:      make(map[id.Id]idSet),
		byEdgeLabelDst: make(map[label.Label]map[id.Id]idSet),
	}
}

// Node returns the present label for id, or (_, false) if the node is
// absent (never written, or tombstoned).
func (g *G) Node(i id.Id) (label.Label, bool) {
	return g.nodes[i].Value.Get()
}

// Edge returns the present (src, label, dst) for id, or (_, false) if
// the edge is absent.
func (g *G) Edge(i id.Id) (EdgeValue, bool) {
	return g.edges[i].Value.Get()
}

// NodeRegisterOf returns the full register for a node id, including ids
// that have never been written (the zero register).
func (g *G) NodeRegisterOf(i id.Id) NodeRegister {
	return g.nodes[i]
}

// EdgeRegisterOf returns the full register for an edge id.
func (g *G) EdgeRegisterOf(i id.Id) EdgeRegister {
	return g.edges[i]
}

// unindexNode removes id's current present value, if any, from
// byNodeLabel.
func (g *G) unindexNode(i id.Id, reg NodeRegister) {
	if v, ok := reg.Value.Get(); ok {
		if set, ok := g.byNodeLabel[v]; ok {
			set.remove(i)
			if len(set) == 0 {
				delete(g.byNodeLabel, v)
			}
		}
	}
}

// indexNode adds id's new present value, if any, to byNodeLabel.
func (g *G) indexNode(i id.Id, reg NodeRegister) {
	if v, ok := reg.Value.Get(); ok {
		set, ok := g.byNodeLabel[v]
		if !ok {
			set = make(idSet)
			g.byNodeLabel[v] = set
		}
		set.add(i)
	}
}

func (g *G) unindexEdge(i id.Id, reg EdgeRegister) {
	if v, ok := reg.Value.Get(); ok {
		if set, ok := g.byEdgeSrc[v.Src]; ok {
			set.remove(i)
			if len(set) == 0 {
				delete(g.byEdgeSrc, v.Src)
			}
		}
		if byDst, ok := g.byEdgeLabelDst[v.Label]; ok {
			if set, ok := byDst[v.Dst]; ok {
				set.remove(i)
				if len(set) == 0 {
					delete(byDst, v.Dst)
				}
			}
			if len(byDst) == 0 {
				delete(g.byEdgeLabelDst, v.Label)
			}
		}
	}
}

func (g *G) indexEdge(i id.Id, reg EdgeRegister) {
	if v, ok := reg.Value.Get(); ok {
		set, ok := g.byEdgeSrc[v.Src]
		if !ok {
			set = make(idSet)
			g.byEdgeSrc[v.Src] = set
		}
		set.add(i)

		byDst, ok := g.byEdgeLabelDst[v.Label]
		if !ok {
			byDst = make(map[id.Id]idSet)
			g.byEdgeLabelDst[v.Label] = byDst
		}
		dstSet, ok := byDst[v.Dst]
		if !ok {
			dstSet = make(idSet)
			byDst[v.Dst] = dstSet
		}
		dstSet.add(i)
	}
}

// SetNode applies a delta to a node register: joins it with whatever is
// currently stored and, on a winning write, keeps the secondary index
// in sync.
func (g *G) SetNode(i id.Id, c clock.Clock, value register.Option[label.Label]) {
	delta := NodeRegister{Clock: c, Value: value}
	cur := g.nodes[i]
	next := register.Join(cur, delta)
	if next == cur {
		return
	}
	g.unindexNode(i, cur)
	g.nodes[i] = next
	g.indexNode(i, next)
}

// SetEdge applies a delta to an edge register, analogous to SetNode.
func (g *G) SetEdge(i id.Id, c clock.Clock, value register.Option[EdgeValue]) {
	delta := EdgeRegister{Clock: c, Value: value}
	cur := g.edges[i]
	next := register.Join(cur, delta)
	if next == cur {
		return
	}
	g.unindexEdge(i, cur)
	g.edges[i] = next
	g.indexEdge(i, next)
}

// ForgetNode removes id's register entirely — map entry and secondary
// index alike — as opposed to SetNode, which only ever moves a register
// forward under Join. This is what backs PG's Unload: dropping a loaded
// copy from memory must not be observable as a CRDT write.
func (g *G) ForgetNode(i id.Id) {
	cur, ok := g.nodes[i]
	if !ok {
		return
	}
	g.unindexNode(i, cur)
	delete(g.nodes, i)
}

// ForgetEdge removes id's register entirely, analogous to ForgetNode.
func (g *G) ForgetEdge(i id.Id) {
	cur, ok := g.edges[i]
	if !ok {
		return
	}
	g.unindexEdge(i, cur)
	delete(g.edges, i)
}

// QueryNodeLabel returns the ids of every node currently present with
// the given label.
func (g *G) QueryNodeLabel(l label.Label) []id.Id {
	set := g.byNodeLabel[l]
	out := make([]id.Id, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	return out
}

// QueryEdgeSrc returns the ids of every edge currently present with the
// given source.
func (g *G) QueryEdgeSrc(src id.Id) []id.Id {
	set := g.byEdgeSrc[src]
	out := make([]id.Id, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	return out
}

// QueryEdgeLabelDst returns the ids of every edge currently present
// with the given label and destination.
func (g *G) QueryEdgeLabelDst(l label.Label, dst id.Id) []id.Id {
	byDst := g.byEdgeLabelDst[l]
	set := byDst[dst]
	out := make([]id.Id, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	return out
}

// Apply installs every node/edge delta named in the action.
func (g *G) Apply(a Action) {
	for i, delta := range a.Nodes {
		g.SetNode(i, delta.Clock, delta.Value)
	}
	for i, delta := range a.Edges {
		g.SetEdge(i, delta.Clock, delta.Value)
	}
}

// Join merges other into g in place, pointwise over the union of ids.
func (g *G) Join(other *G) {
	for i, reg := range other.nodes {
		g.SetNode(i, reg.Clock, reg.Value)
	}
	for i, reg := range other.edges {
		g.SetEdge(i, reg.Clock, reg.Value)
	}
}

// Preorder reports whether g <= other pointwise, i.e. every register in
// g is dominated by (or equal to) the corresponding register in other.
// Ids present in other but absent from g are treated as the zero
// register on g's side, which is always dominated; ids present only in
// g are compared against the zero register on other's side.
func (g *G) Preorder(other *G) bool {
	for i := range other.nodes {
		if !register.Preorder(g.nodes[i], other.nodes[i]) {
			return false
		}
	}
	for i := range other.edges {
		if !register.Preorder(g.edges[i], other.edges[i]) {
			return false
		}
	}
	for i, reg := range g.nodes {
		if !register.Preorder(reg, other.nodes[i]) {
			return false
		}
	}
	for i, reg := range g.edges {
		if !register.Preorder(reg, other.edges[i]) {
			return false
		}
	}
	return true
}

// NodeIds returns every node id this graph currently holds a register
// for (present or tombstoned).
func (g *G) NodeIds() []id.Id {
	out := make([]id.Id, 0, len(g.nodes))
	for i := range g.nodes {
		out = append(out, i)
	}
	return out
}

// EdgeIds returns every edge id this graph currently holds a register
// for.
func (g *G) EdgeIds() []id.Id {
	out := make([]id.Id, 0, len(g.edges))
	for i := range g.edges {
		out = append(out, i)
	}
	return out
}

// CheckViews recomputes the secondary indices from the primary
// registers and reports whether they already matched — an O(N)
// consistency check used by tests (spec §4.3 invariant).
func (g *G) CheckViews() bool {
	fresh := New()
	for i, reg := range g.nodes {
		fresh.nodes[i] = reg
		fresh.indexNode(i, reg)
	}
	for i, reg := range g.edges {
		fresh.edges[i] = reg
		fresh.indexEdge(i, reg)
	}
	return setsEqual(fresh.byNodeLabel, g.byNodeLabel) &&
		edgeSrcEqual(fresh.byEdgeSrc, g.byEdgeSrc) &&
		labelDstEqual(fresh.byEdgeLabelDst, g.byEdgeLabelDst)
}

func setsEqual(a, b map[label.Label]idSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !bv.has(i) {
				return false
			}
		}
	}
	return true
}

func edgeSrcEqual(a, b map[id.Id]idSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !bv.has(i) {
				return false
			}
		}
	}
	return true
}

func labelDstEqual(a, b map[label.Label]map[id.Id]idSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !edgeSrcEqual(av, bv) {
			return false
		}
	}
	return true
}
