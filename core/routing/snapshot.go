package routing

import (
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"

	"github.com/kilianp07/fleetcore/core/model"
)

// Node is a graph node backed by a plant point.
type Node struct {
	id    int64
	Point model.Point
}

// ID implements graph.Node.
func (n *Node) ID() int64 { return n.id }

// Edge is one traversable direction of a path.
type Edge struct {
	F, T *Node
	Path model.Path
	// Reverse is set when the edge travels the path destination->source.
	Reverse bool
}

func (e *Edge) From() graph.Node { return e.F }
func (e *Edge) To() graph.Node   { return e.T }
func (e *Edge) Weight() float64  { return float64(e.Path.Length) }

// ReversedEdge returns the edge with its endpoints swapped.
func (e *Edge) ReversedEdge() graph.Edge {
	return &Edge{F: e.T, T: e.F, Path: e.Path, Reverse: !e.Reverse}
}

// Orientation returns the travel orientation along the underlying path.
func (e *Edge) Orientation() model.Orientation {
	if e.Reverse {
		return model.OrientationBackward
	}
	return model.OrientationForward
}

type edgeKey struct{ from, to int64 }

// Exclusions are the points and paths a derived graph leaves out.
type Exclusions struct {
	Points map[string]struct{}
	Paths  map[string]struct{}
}

// NewExclusions builds exclusion sets from name lists.
func NewExclusions(points, paths []string) Exclusions {
	ex := Exclusions{Points: map[string]struct{}{}, Paths: map[string]struct{}{}}
	for _, p := range points {
		ex.Points[p] = struct{}{}
	}
	for _, p := range paths {
		ex.Paths[p] = struct{}{}
	}
	return ex
}

// Empty reports whether nothing is excluded.
func (e Exclusions) Empty() bool { return len(e.Points) == 0 && len(e.Paths) == 0 }

func (e Exclusions) excludesPoint(name string) bool { _, ok := e.Points[name]; return ok }
func (e Exclusions) excludesPath(name string) bool  { _, ok := e.Paths[name]; return ok }

// Snapshot is an immutable directed weighted graph over plant points. Node
// ids follow the lexical order of point names, so iterating nodes or
// neighbours in id order is iterating them by name. It implements
// graph.Weighted and graph.Directed.
type Snapshot struct {
	class      string
	nodes      map[int64]*Node
	order      []graph.Node
	byName     map[string]int64
	edges      map[edgeKey]*Edge
	candidates map[edgeKey][]*Edge
	from       map[int64][]graph.Node
	to         map[int64][]graph.Node
	exclusions Exclusions
}

// newBaseSnapshot builds the graph for a vehicle class. Locked paths and
// paths forbidden for the class are omitted. Parallel edges between the same
// ordered pair are kept as candidates ordered by length then path name; the
// first one is the edge the graph exposes.
func newBaseSnapshot(class string, points []model.Point, paths []model.Path) *Snapshot {
	sorted := slices.Clone(points)
	slices.SortFunc(sorted, func(a, b model.Point) int { return strings.Compare(a.Name, b.Name) })

	s := &Snapshot{
		class:      class,
		nodes:      make(map[int64]*Node, len(sorted)),
		byName:     make(map[string]int64, len(sorted)),
		edges:      make(map[edgeKey]*Edge),
		candidates: make(map[edgeKey][]*Edge),
	}
	for i, p := range sorted {
		n := &Node{id: int64(i), Point: p}
		s.nodes[n.id] = n
		s.byName[p.Name] = n.id
	}
	for _, p := range paths {
		if p.Locked || !p.AllowedFor(class) {
			continue
		}
		src, ok1 := s.byName[p.Source]
		dst, ok2 := s.byName[p.Destination]
		if !ok1 || !ok2 {
			continue
		}
		if p.NavigableForward() {
			s.addEdge(&Edge{F: s.nodes[src], T: s.nodes[dst], Path: p})
		}
		if p.NavigableReverse() {
			s.addEdge(&Edge{F: s.nodes[dst], T: s.nodes[src], Path: p, Reverse: true})
		}
	}
	for k, cs := range s.candidates {
		slices.SortFunc(cs, byCost)
		s.edges[k] = cs[0]
	}
	s.index()
	return s
}

func (s *Snapshot) addEdge(e *Edge) {
	k := edgeKey{e.F.id, e.T.id}
	s.candidates[k] = append(s.candidates[k], e)
}

func byCost(a, b *Edge) int {
	if a.Path.Length != b.Path.Length {
		if a.Path.Length < b.Path.Length {
			return -1
		}
		return 1
	}
	return strings.Compare(a.Path.Name, b.Path.Name)
}

// derive returns a new snapshot without the excluded points and paths. For
// every ordered pair the cheapest candidate that is not excluded survives.
func (s *Snapshot) derive(ex Exclusions) *Snapshot {
	d := &Snapshot{
		class:      s.class,
		nodes:      make(map[int64]*Node, len(s.nodes)),
		byName:     make(map[string]int64, len(s.byName)),
		edges:      make(map[edgeKey]*Edge, len(s.edges)),
		candidates: make(map[edgeKey][]*Edge, len(s.candidates)),
		exclusions: ex,
	}
	for id, n := range s.nodes {
		if ex.excludesPoint(n.Point.Name) {
			continue
		}
		d.nodes[id] = n
		d.byName[n.Point.Name] = id
	}
	for k, cs := range s.candidates {
		if ex.excludesPoint(cs[0].F.Point.Name) || ex.excludesPoint(cs[0].T.Point.Name) {
			continue
		}
		var kept []*Edge
		for _, e := range cs {
			if !ex.excludesPath(e.Path.Name) {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			continue
		}
		d.candidates[k] = kept
		d.edges[k] = kept[0]
	}
	d.index()
	return d
}

func (s *Snapshot) index() {
	s.order = make([]graph.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		s.order = append(s.order, n)
	}
	slices.SortFunc(s.order, byID)
	s.from = make(map[int64][]graph.Node)
	s.to = make(map[int64][]graph.Node)
	for k, e := range s.edges {
		s.from[k.from] = append(s.from[k.from], e.T)
		s.to[k.to] = append(s.to[k.to], e.F)
	}
	for _, ns := range s.from {
		slices.SortFunc(ns, byID)
	}
	for _, ns := range s.to {
		slices.SortFunc(ns, byID)
	}
}

func byID(a, b graph.Node) int {
	switch {
	case a.ID() < b.ID():
		return -1
	case a.ID() > b.ID():
		return 1
	}
	return 0
}

// Class returns the vehicle class the snapshot was built for; empty for the
// general graph.
func (s *Snapshot) Class() string { return s.class }

// Exclusions returns the exclusion sets the snapshot was derived with.
func (s *Snapshot) Exclusions() Exclusions { return s.exclusions }

// NodeCount returns the number of points in the snapshot.
func (s *Snapshot) NodeCount() int { return len(s.order) }

// EdgeCount returns the number of directed edges in the snapshot.
func (s *Snapshot) EdgeCount() int { return len(s.edges) }

// NodeByName resolves a point name to its node.
func (s *Snapshot) NodeByName(name string) (*Node, bool) {
	id, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.nodes[id], true
}

// EdgeBetween returns the directed edge u->v.
func (s *Snapshot) EdgeBetween(uid, vid int64) (*Edge, bool) {
	e, ok := s.edges[edgeKey{uid, vid}]
	return e, ok
}

// Candidates returns every path usable for u->v, cheapest first.
func (s *Snapshot) Candidates(uid, vid int64) []*Edge {
	return slices.Clone(s.candidates[edgeKey{uid, vid}])
}

// Edges returns all edges ordered by source then target.
func (s *Snapshot) Edges() []*Edge {
	out := make([]*Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *Edge) int {
		if c := byID(a.F, b.F); c != 0 {
			return c
		}
		return byID(a.T, b.T)
	})
	return out
}

// Node implements graph.Graph.
func (s *Snapshot) Node(id int64) graph.Node {
	n, ok := s.nodes[id]
	if !ok {
		return nil
	}
	return n
}

// Nodes implements graph.Graph.
func (s *Snapshot) Nodes() graph.Nodes {
	if len(s.order) == 0 {
		return graph.Empty
	}
	return iterator.NewOrderedNodes(s.order)
}

// From implements graph.Graph.
func (s *Snapshot) From(id int64) graph.Nodes {
	ns := s.from[id]
	if len(ns) == 0 {
		return graph.Empty
	}
	return iterator.NewOrderedNodes(ns)
}

// To implements graph.Directed.
func (s *Snapshot) To(id int64) graph.Nodes {
	ns := s.to[id]
	if len(ns) == 0 {
		return graph.Empty
	}
	return iterator.NewOrderedNodes(ns)
}

// HasEdgeBetween implements graph.Graph.
func (s *Snapshot) HasEdgeBetween(xid, yid int64) bool {
	_, a := s.edges[edgeKey{xid, yid}]
	_, b := s.edges[edgeKey{yid, xid}]
	return a || b
}

// HasEdgeFromTo implements graph.Directed.
func (s *Snapshot) HasEdgeFromTo(uid, vid int64) bool {
	_, ok := s.edges[edgeKey{uid, vid}]
	return ok
}

// Edge implements graph.Graph.
func (s *Snapshot) Edge(uid, vid int64) graph.Edge {
	e, ok := s.edges[edgeKey{uid, vid}]
	if !ok {
		return nil
	}
	return e
}

// WeightedEdge implements graph.Weighted.
func (s *Snapshot) WeightedEdge(uid, vid int64) graph.WeightedEdge {
	e, ok := s.edges[edgeKey{uid, vid}]
	if !ok {
		return nil
	}
	return e
}

// Weight implements graph.Weighted.
func (s *Snapshot) Weight(xid, yid int64) (float64, bool) {
	if xid == yid {
		if _, ok := s.nodes[xid]; ok {
			return 0, true
		}
	}
	if e, ok := s.edges[edgeKey{xid, yid}]; ok {
		return e.Weight(), true
	}
	return math.Inf(1), false
}

var (
	_ graph.Weighted = (*Snapshot)(nil)
	_ graph.Directed = (*Snapshot)(nil)
)
