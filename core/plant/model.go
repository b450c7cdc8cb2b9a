// Package plant holds the in-memory plant model: points, paths and vehicles.
// It is the object pool the routing service resolves references against.
package plant

import (
	"slices"
	"strings"
	"sync"

	"github.com/kilianp07/fleetcore/core/model"
)

// Model is a thread-safe repository of plant objects. Accessors return
// copies so callers never share mutable state with the repository.
type Model struct {
	mu       sync.RWMutex
	points   map[string]model.Point
	paths    map[string]model.Path
	vehicles map[string]model.Vehicle
}

// New validates cfg and builds a model from it.
func New(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Model{
		points:   make(map[string]model.Point, len(cfg.Points)),
		paths:    make(map[string]model.Path, len(cfg.Paths)),
		vehicles: make(map[string]model.Vehicle, len(cfg.Vehicles)),
	}
	for _, p := range cfg.Points {
		m.points[p.Name] = p
	}
	for _, p := range cfg.Paths {
		p.ForbiddenClasses = slices.Clone(p.ForbiddenClasses)
		m.paths[p.Name] = p
	}
	for _, v := range cfg.Vehicles {
		m.vehicles[v.Name] = v
	}
	return m, nil
}

// Point looks up a point by name.
func (m *Model) Point(name string) (model.Point, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.points[name]
	return p, ok
}

// Path looks up a path by name.
func (m *Model) Path(name string) (model.Path, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.paths[name]
	if ok {
		p.ForbiddenClasses = slices.Clone(p.ForbiddenClasses)
	}
	return p, ok
}

// Vehicle looks up a vehicle by name.
func (m *Model) Vehicle(name string) (model.Vehicle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vehicles[name]
	return v, ok
}

// Points returns all points sorted by name.
func (m *Model) Points() []model.Point {
	m.mu.RLock()
	out := make([]model.Point, 0, len(m.points))
	for _, p := range m.points {
		out = append(out, p)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b model.Point) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Paths returns all paths sorted by name.
func (m *Model) Paths() []model.Path {
	m.mu.RLock()
	out := make([]model.Path, 0, len(m.paths))
	for _, p := range m.paths {
		p.ForbiddenClasses = slices.Clone(p.ForbiddenClasses)
		out = append(out, p)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b model.Path) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Vehicles returns all vehicles sorted by name.
func (m *Model) Vehicles() []model.Vehicle {
	m.mu.RLock()
	out := make([]model.Vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		out = append(out, v)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b model.Vehicle) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// SetPathLocked changes the lock flag of a path. Callers must push the change
// to the routing service with UpdateTopology for it to affect routing.
func (m *Model) SetPathLocked(name string, locked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.paths[name]
	if !ok {
		return &model.ObjectUnknownError{Kind: model.KindPath, Name: name}
	}
	p.Locked = locked
	m.paths[name] = p
	return nil
}
