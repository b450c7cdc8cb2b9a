package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetcore/core/model"
)

func TestRouteTableLinear(t *testing.T) {
	for _, algo := range AlgorithmNames() {
		t.Run(algo, func(t *testing.T) {
			b, err := NewAlgorithmBuilder(algo)
			require.NoError(t, err)
			f := NewRouteTableFactory(NewGraphBuilder(linearPlant(t)), b)
			table := f.CreateGeneral(Exclusions{})

			r, ok := table.Route(nil, "A", "C")
			require.True(t, ok)
			assert.Equal(t, []string{"A", "B", "C"}, r.PointNames())
			assert.EqualValues(t, 2, r.Cost)
			assert.Equal(t, 0, r.Steps[0].Index)
			assert.Equal(t, 1, r.Steps[1].Index)

			back, ok := table.Route(nil, "C", "A")
			require.True(t, ok)
			assert.Equal(t, model.OrientationBackward, back.Steps[0].Orientation)
			assert.Equal(t, "B--C", back.Steps[0].Path.Name)

			self, ok := table.Route(nil, "B", "B")
			require.True(t, ok)
			assert.Empty(t, self.Steps)
			assert.Zero(t, self.Cost)

			_, ok = table.Route(nil, "A", "Z")
			assert.False(t, ok)
		})
	}
}

func TestRouteTableVehicleClass(t *testing.T) {
	f := NewRouteTableFactory(NewGraphBuilder(diamondPlant(t)), newDijkstra)
	light := model.Vehicle{Name: "light1", Class: "light"}
	heavy := model.Vehicle{Name: "heavy1", Class: "heavy"}

	r, ok := f.CreateForVehicle(light, Exclusions{}).Route(&light, "A", "D")
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B", "D"}, r.PointNames())

	heavyTable := f.CreateForVehicle(heavy, Exclusions{})
	r, ok = heavyTable.Route(&heavy, "A", "D")
	require.True(t, ok)
	assert.Equal(t, []string{"A", "C", "D"}, r.PointNames())
	assert.EqualValues(t, 3, r.Cost)

	_, ok = heavyTable.Route(&light, "A", "D")
	assert.False(t, ok, "class specific table must not serve another class")
}

func TestRouteTableOneWayUnreachable(t *testing.T) {
	f := NewRouteTableFactory(NewGraphBuilder(diamondPlant(t)), newFloydWarshall)
	_, ok := f.CreateGeneral(Exclusions{}).Route(nil, "D", "A")
	assert.False(t, ok)
}

func TestRouteTableExclusions(t *testing.T) {
	f := NewRouteTableFactory(NewGraphBuilder(diamondPlant(t)), newDijkstra)

	r, ok := f.CreateGeneral(NewExclusions([]string{"B"}, nil)).Route(nil, "A", "D")
	require.True(t, ok)
	assert.Equal(t, []string{"A", "C", "D"}, r.PointNames())

	_, ok = f.CreateGeneral(NewExclusions(nil, []string{"A--C", "B--D"})).Route(nil, "A", "D")
	assert.False(t, ok)

	_, ok = f.CreateGeneral(NewExclusions([]string{"A"}, nil)).Route(nil, "A", "D")
	assert.False(t, ok, "excluded source is absent")
}

func TestBuilderCachesBaseGraphs(t *testing.T) {
	b := NewGraphBuilder(diamondPlant(t))
	g1 := b.BaseGraph("heavy")
	assert.Same(t, g1, b.BaseGraph("heavy"))
	assert.Same(t, b.GeneralGraph(), b.GeneralGraph())
	assert.NotSame(t, b.DerivedGraph("heavy", NewExclusions([]string{"C"}, nil)), b.DerivedGraph("heavy", NewExclusions([]string{"C"}, nil)))
	assert.ElementsMatch(t, []string{"heavy", ""}, b.CachedClasses())

	b.Invalidate()
	assert.Empty(t, b.CachedClasses())
	assert.NotSame(t, g1, b.BaseGraph("heavy"))
}

func TestRouteTableDeterministicTies(t *testing.T) {
	// Two equal-cost routes A->D must resolve identically on every rebuild.
	topo := staticTopology{
		points: points("A", "X", "Y", "D"),
		paths: []model.Path{
			oneWay("A--Y", "A", "Y", 1), oneWay("Y--D", "Y", "D", 1),
			oneWay("A--X", "A", "X", 1), oneWay("X--D", "X", "D", 1),
		},
	}
	for _, algo := range []AlgorithmBuilder{newDijkstra, newBellmanFord, newAStar} {
		var first []string
		for i := 0; i < 5; i++ {
			table := NewRouteTableFactory(NewGraphBuilder(topo), algo).CreateGeneral(Exclusions{})
			r, ok := table.Route(nil, "A", "D")
			require.True(t, ok)
			if first == nil {
				first = r.PointNames()
			}
			assert.Equal(t, first, r.PointNames())
		}
	}
}

func TestPrimingDoesNotChangeResults(t *testing.T) {
	g := NewGraphBuilder(linearPlant(t)).GeneralGraph()
	fresh := NewRouteTable(g, newDijkstra(g))
	primed := NewRouteTable(g, newDijkstra(g))
	primed.prime()
	for _, pair := range [][2]string{{"A", "C"}, {"C", "A"}, {"B", "A"}} {
		r1, ok1 := fresh.Route(nil, pair[0], pair[1])
		r2, ok2 := primed.Route(nil, pair[0], pair[1])
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, r1, r2)
	}
}

type staticTopology struct {
	points []model.Point
	paths  []model.Path
}

func (s staticTopology) Points() []model.Point { return s.points }
func (s staticTopology) Paths() []model.Path   { return s.paths }
