package routing

import (
	"maps"
	"sync"
	"sync/atomic"

	"github.com/kilianp07/fleetcore/core/logger"
	"github.com/kilianp07/fleetcore/core/model"
)

// Router hands out route tables. Tables for unrestricted queries are cached
// per vehicle class and replaced as a whole after a topology update, so
// readers never observe a half-rebuilt set.
type Router struct {
	factory *RouteTableFactory
	log     logger.Logger

	mu     sync.Mutex // serializes writers
	tables atomic.Pointer[map[string]*RouteTable]
}

// NewRouter returns a router using f.
func NewRouter(f *RouteTableFactory, log logger.Logger) *Router {
	if log == nil {
		log = logger.NopLogger{}
	}
	r := &Router{factory: f, log: log}
	empty := map[string]*RouteTable{}
	r.tables.Store(&empty)
	return r
}

// Table returns the table for vehicle, or the general table when vehicle is
// nil. Tables with exclusions are built per call and never cached.
func (r *Router) Table(vehicle *model.Vehicle, ex Exclusions) *RouteTable {
	if !ex.Empty() {
		if vehicle == nil {
			return r.factory.CreateGeneral(ex)
		}
		return r.factory.CreateForVehicle(*vehicle, ex)
	}
	key := generalKey
	if vehicle != nil {
		key = vehicle.Class
	}
	if t, ok := (*r.tables.Load())[key]; ok {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cur := *r.tables.Load()
	if t, ok := cur[key]; ok {
		return t
	}
	var t *RouteTable
	if vehicle == nil {
		t = r.factory.CreateGeneral(Exclusions{})
	} else {
		t = r.factory.CreateForVehicle(*vehicle, Exclusions{})
	}
	next := maps.Clone(cur)
	next[key] = t
	r.tables.Store(&next)
	return t
}

// UpdateTopology drops cached graphs and rebuilds the tables of every class
// seen so far against the current topology.
func (r *Router) UpdateTopology(paths []model.Path) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factory.builder.Invalidate()
	cur := *r.tables.Load()
	next := make(map[string]*RouteTable, len(cur))
	for class := range cur {
		if class == generalKey {
			next[class] = r.factory.CreateGeneral(Exclusions{})
			continue
		}
		next[class] = r.factory.CreateForVehicle(model.Vehicle{Class: class}, Exclusions{})
	}
	r.tables.Store(&next)
	topologyUpdates.Inc()
	r.log.Infof("topology updated: %d paths changed, %d route tables rebuilt", len(paths), len(next))
}
