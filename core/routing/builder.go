package routing

import (
	"sync"

	"github.com/kilianp07/fleetcore/core/model"
)

// Topology supplies the current points and paths of the plant.
type Topology interface {
	Points() []model.Point
	Paths() []model.Path
}

// generalKey caches the vehicle-agnostic graph. Vehicles without a class
// share it since no path can forbid the empty class.
const generalKey = ""

// GraphBuilder builds routing graphs and caches the base graph per vehicle
// class. Derived graphs are computed from the cached base on every call.
type GraphBuilder struct {
	topo Topology

	mu   sync.Mutex
	base map[string]*Snapshot
}

// NewGraphBuilder returns a builder reading from topo.
func NewGraphBuilder(topo Topology) *GraphBuilder {
	return &GraphBuilder{topo: topo, base: make(map[string]*Snapshot)}
}

// BaseGraph returns the cached graph for the given vehicle class.
func (b *GraphBuilder) BaseGraph(class string) *Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	if g, ok := b.base[class]; ok {
		return g
	}
	g := newBaseSnapshot(class, b.topo.Points(), b.topo.Paths())
	b.base[class] = g
	return g
}

// GeneralGraph returns the cached graph that ignores vehicle classes.
func (b *GraphBuilder) GeneralGraph() *Snapshot { return b.BaseGraph(generalKey) }

// DerivedGraph returns the class base graph minus the exclusions.
func (b *GraphBuilder) DerivedGraph(class string, ex Exclusions) *Snapshot {
	return b.BaseGraph(class).derive(ex)
}

// DerivedGeneralGraph returns the general graph minus the exclusions.
func (b *GraphBuilder) DerivedGeneralGraph(ex Exclusions) *Snapshot {
	return b.GeneralGraph().derive(ex)
}

// Invalidate drops every cached base graph.
func (b *GraphBuilder) Invalidate() {
	b.mu.Lock()
	b.base = make(map[string]*Snapshot)
	b.mu.Unlock()
}

// CachedClasses lists the classes with a cached base graph.
func (b *GraphBuilder) CachedClasses() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.base))
	for c := range b.base {
		out = append(out, c)
	}
	return out
}
