package routing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetcore/core/model"
	"github.com/kilianp07/fleetcore/core/plant"
)

func twoWay(name, src, dst string, length int64) model.Path {
	return model.Path{Name: name, Source: src, Destination: dst, Length: length, MaxVelocity: 1000, MaxReverseVelocity: 1000}
}

func oneWay(name, src, dst string, length int64) model.Path {
	return model.Path{Name: name, Source: src, Destination: dst, Length: length, MaxVelocity: 1000}
}

func points(names ...string) []model.Point {
	out := make([]model.Point, len(names))
	for i, n := range names {
		out[i] = model.Point{Name: n}
	}
	return out
}

// linearPlant is A - B - C with unit costs.
func linearPlant(t *testing.T) *plant.Model {
	t.Helper()
	m, err := plant.New(plant.Config{
		Points:   points("A", "B", "C"),
		Paths:    []model.Path{twoWay("A--B", "A", "B", 1), twoWay("B--C", "B", "C", 1)},
		Vehicles: []model.Vehicle{{Name: "v1"}, {Name: "heavy1", Class: "heavy"}},
	})
	require.NoError(t, err)
	return m
}

// diamondPlant offers two routes from A to D: via B (cost 2) and via C (cost 3).
// The cheaper branch is forbidden for heavy vehicles.
func diamondPlant(t *testing.T) *plant.Model {
	t.Helper()
	ab := oneWay("A--B", "A", "B", 1)
	ab.ForbiddenClasses = []string{"heavy"}
	m, err := plant.New(plant.Config{
		Points: points("A", "B", "C", "D"),
		Paths: []model.Path{
			ab,
			oneWay("B--D", "B", "D", 1),
			oneWay("A--C", "A", "C", 1),
			oneWay("C--D", "C", "D", 2),
		},
		Vehicles: []model.Vehicle{{Name: "light1", Class: "light"}, {Name: "heavy1", Class: "heavy"}},
	})
	require.NoError(t, err)
	return m
}

func routeNames(r *model.Route) []string {
	if r == nil {
		return nil
	}
	if len(r.Steps) == 0 {
		return []string{}
	}
	return r.PointNames()
}
