package routing

import (
	"github.com/kilianp07/fleetcore/core/model"
)

// RouteTable answers route queries over one snapshot with one algorithm
// instance. It is safe for concurrent reads.
type RouteTable struct {
	graph *Snapshot
	algo  PathAlgorithm
}

// NewRouteTable binds algo to g.
func NewRouteTable(g *Snapshot, algo PathAlgorithm) *RouteTable {
	return &RouteTable{graph: g, algo: algo}
}

// Graph returns the snapshot the table was built from.
func (t *RouteTable) Graph() *Snapshot { return t.graph }

// Route returns the cheapest route between two points. It reports false when
// the destination is unreachable, when either point is not part of the graph,
// or when the vehicle's class does not match a class-specific table.
func (t *RouteTable) Route(vehicle *model.Vehicle, source, destination string) (*model.Route, bool) {
	if vehicle != nil && t.graph.class != generalKey && vehicle.Class != t.graph.class {
		return nil, false
	}
	src, ok := t.graph.NodeByName(source)
	if !ok {
		return nil, false
	}
	dst, ok := t.graph.NodeByName(destination)
	if !ok {
		return nil, false
	}
	if src.id == dst.id {
		return &model.Route{Steps: []model.Step{}}, true
	}
	ids, _, ok := t.algo.Path(src.id, dst.id)
	if !ok || len(ids) < 2 {
		return nil, false
	}
	route := &model.Route{Steps: make([]model.Step, 0, len(ids)-1)}
	for i := 1; i < len(ids); i++ {
		e, ok := t.graph.EdgeBetween(ids[i-1], ids[i])
		if !ok {
			return nil, false
		}
		route.Steps = append(route.Steps, model.Step{
			Path:        e.Path,
			Source:      e.F.Point,
			Destination: e.T.Point,
			Orientation: e.Orientation(),
			Index:       i - 1,
		})
		route.Cost += e.Path.Length
	}
	return route, true
}

// prime runs one throwaway query so lazily built structures exist before
// the table is published.
func (t *RouteTable) prime() {
	if len(t.graph.order) < 2 {
		return
	}
	t.algo.Path(t.graph.order[0].ID(), t.graph.order[1].ID())
}
