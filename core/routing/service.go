// Package routing computes cheapest routes over the plant graph. Graphs are
// gonum-compatible snapshots cached per vehicle class; requests may exclude
// points and paths, in which case a derived graph is built for that request.
package routing

import (
	"fmt"
	"sync"

	"github.com/kilianp07/fleetcore/core/logger"
	"github.com/kilianp07/fleetcore/core/model"
)

// ObjectPool resolves plant references.
type ObjectPool interface {
	Topology
	Point(name string) (model.Point, bool)
	Path(name string) (model.Path, bool)
	Vehicle(name string) (model.Vehicle, bool)
	SetPathLocked(name string, locked bool) error
}

// Service is the routing entry point. Every operation holds one exclusive
// lock; route computation is serialized across vehicles.
type Service struct {
	pool   ObjectPool
	router *Router
	log    logger.Logger

	mu sync.Mutex
}

// NewService builds a service over pool using the named path algorithm.
func NewService(pool ObjectPool, cfg Config, log logger.Logger) (*Service, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	algo, err := NewAlgorithmBuilder(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	f := NewRouteTableFactory(NewGraphBuilder(pool), algo)
	return &Service{pool: pool, router: NewRouter(f, log), log: log}, nil
}

// UpdateTopology resolves the named paths and rebuilds routing state. No
// state changes when a name is unknown.
func (s *Service) UpdateTopology(pathNames []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]model.Path, 0, len(pathNames))
	for _, n := range pathNames {
		p, ok := s.pool.Path(n)
		if !ok {
			return &model.ObjectUnknownError{Kind: model.KindPath, Name: n}
		}
		paths = append(paths, p)
	}
	s.router.UpdateTopology(paths)
	return nil
}

// SetPathsLocked locks or unlocks the named paths and rebuilds routing state
// in one step, so no route is computed against a partly applied change. No
// path changes when a name is unknown.
func (s *Service) SetPathsLocked(pathNames []string, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range pathNames {
		if _, ok := s.pool.Path(n); !ok {
			return &model.ObjectUnknownError{Kind: model.KindPath, Name: n}
		}
	}
	paths := make([]model.Path, 0, len(pathNames))
	for _, n := range pathNames {
		if err := s.pool.SetPathLocked(n, locked); err != nil {
			return err
		}
		p, _ := s.pool.Path(n)
		paths = append(paths, p)
	}
	s.router.UpdateTopology(paths)
	return nil
}

// ComputeRoutes returns one entry per distinct destination; a nil route means
// the destination is unreachable. An empty vehicle name routes on the
// general graph. Unknown references fail the whole request.
func (s *Service) ComputeRoutes(vehicleName, source string, destinations []string, avoid []model.ResourceRef) (map[string]*model.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var vehicle *model.Vehicle
	if vehicleName != "" {
		v, ok := s.pool.Vehicle(vehicleName)
		if !ok {
			return nil, &model.ObjectUnknownError{Kind: model.KindVehicle, Name: vehicleName}
		}
		vehicle = &v
	}
	if _, ok := s.pool.Point(source); !ok {
		return nil, &model.ObjectUnknownError{Kind: model.KindPoint, Name: source, Role: "source"}
	}
	for _, d := range destinations {
		if _, ok := s.pool.Point(d); !ok {
			return nil, &model.ObjectUnknownError{Kind: model.KindPoint, Name: d, Role: "destination"}
		}
	}
	ex, err := s.exclusions(avoid)
	if err != nil {
		return nil, err
	}

	table := s.router.Table(vehicle, ex)
	out := make(map[string]*model.Route, len(destinations))
	for _, d := range destinations {
		if _, done := out[d]; done {
			continue
		}
		route, ok := table.Route(vehicle, source, d)
		if !ok {
			routeComputations.WithLabelValues("unreachable").Inc()
			out[d] = nil
			continue
		}
		routeComputations.WithLabelValues("found").Inc()
		out[d] = route
	}
	s.log.Debugw("routes computed", map[string]any{
		"vehicle":      vehicleName,
		"source":       source,
		"destinations": len(out),
		"avoid":        len(avoid),
	})
	return out, nil
}

func (s *Service) exclusions(avoid []model.ResourceRef) (Exclusions, error) {
	ex := Exclusions{}
	if len(avoid) == 0 {
		return ex, nil
	}
	ex.Points = map[string]struct{}{}
	ex.Paths = map[string]struct{}{}
	for _, r := range avoid {
		switch r.Kind {
		case model.KindPoint:
			if _, ok := s.pool.Point(r.Name); !ok {
				return ex, &model.ObjectUnknownError{Kind: model.KindPoint, Name: r.Name, Role: "avoided"}
			}
			ex.Points[r.Name] = struct{}{}
		case model.KindPath:
			if _, ok := s.pool.Path(r.Name); !ok {
				return ex, &model.ObjectUnknownError{Kind: model.KindPath, Name: r.Name, Role: "avoided"}
			}
			ex.Paths[r.Name] = struct{}{}
		default:
			return ex, fmt.Errorf("cannot avoid resource of kind %q", r.Kind)
		}
	}
	return ex, nil
}
