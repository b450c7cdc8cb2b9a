package routing

import (
	"time"

	"github.com/kilianp07/fleetcore/core/model"
)

// RouteTableFactory creates route tables from the builder's graphs using the
// algorithm chosen at construction.
type RouteTableFactory struct {
	builder   *GraphBuilder
	algorithm AlgorithmBuilder
}

// NewRouteTableFactory returns a factory using builder and algorithm.
func NewRouteTableFactory(builder *GraphBuilder, algorithm AlgorithmBuilder) *RouteTableFactory {
	return &RouteTableFactory{builder: builder, algorithm: algorithm}
}

// Builder returns the graph builder backing the factory.
func (f *RouteTableFactory) Builder() *GraphBuilder { return f.builder }

// CreateForVehicle builds a table for the vehicle's class. The cached base
// graph is used when nothing is excluded.
func (f *RouteTableFactory) CreateForVehicle(vehicle model.Vehicle, ex Exclusions) *RouteTable {
	if ex.Empty() {
		return f.create(f.builder.BaseGraph(vehicle.Class), "base")
	}
	return f.create(f.builder.DerivedGraph(vehicle.Class, ex), "derived")
}

// CreateGeneral builds a table ignoring vehicle classes.
func (f *RouteTableFactory) CreateGeneral(ex Exclusions) *RouteTable {
	if ex.Empty() {
		return f.create(f.builder.GeneralGraph(), "base")
	}
	return f.create(f.builder.DerivedGeneralGraph(ex), "derived")
}

func (f *RouteTableFactory) create(g *Snapshot, kind string) *RouteTable {
	start := time.Now()
	t := NewRouteTable(g, f.algorithm(g))
	t.prime()
	tableBuildSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	return t
}
