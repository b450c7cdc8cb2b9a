package routing

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"

	"github.com/kilianp07/fleetcore/core/factory"
)

// PathAlgorithm finds the cheapest node sequence between two nodes of the
// graph it was built for. ok is false when to is unreachable from from.
// Implementations must be safe for concurrent use.
type PathAlgorithm interface {
	Path(from, to int64) (nodes []int64, cost float64, ok bool)
}

// AlgorithmBuilder binds a path algorithm to one snapshot.
type AlgorithmBuilder func(g *Snapshot) PathAlgorithm

// Algorithm names.
const (
	Dijkstra      = "dijkstra"
	BellmanFord   = "bellman-ford"
	FloydWarshall = "floyd-warshall"
	AStar         = "astar"
)

var algorithms = factory.NewRegistry[AlgorithmBuilder]()

func init() {
	mustRegister := func(name string, b AlgorithmBuilder) {
		if err := algorithms.Register(name, func(map[string]any) (AlgorithmBuilder, error) { return b, nil }); err != nil {
			panic(err)
		}
	}
	mustRegister(Dijkstra, newDijkstra)
	mustRegister(BellmanFord, newBellmanFord)
	mustRegister(FloydWarshall, newFloydWarshall)
	mustRegister(AStar, newAStar)
}

// NewAlgorithmBuilder returns the builder registered under name.
func NewAlgorithmBuilder(name string) (AlgorithmBuilder, error) {
	return algorithms.Create(factory.ModuleConfig{Type: name})
}

// AlgorithmNames lists the registered algorithms.
func AlgorithmNames() []string { return algorithms.Names() }

func toIDs(nodes []graph.Node, weight float64) ([]int64, float64, bool) {
	if len(nodes) == 0 || math.IsInf(weight, 1) {
		return nil, math.Inf(1), false
	}
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	return ids, weight, true
}

// treeCache memoizes one single-source shortest path tree per source node.
type treeCache struct {
	g     *Snapshot
	build func(u graph.Node) path.Shortest

	mu    sync.Mutex
	trees map[int64]path.Shortest
}

func (c *treeCache) Path(from, to int64) ([]int64, float64, bool) {
	u := c.g.Node(from)
	if u == nil || c.g.Node(to) == nil {
		return nil, math.Inf(1), false
	}
	c.mu.Lock()
	tree, ok := c.trees[from]
	if !ok {
		tree = c.build(u)
		c.trees[from] = tree
	}
	c.mu.Unlock()
	return toIDs(tree.To(to))
}

func newDijkstra(g *Snapshot) PathAlgorithm {
	return &treeCache{
		g:     g,
		trees: make(map[int64]path.Shortest),
		build: func(u graph.Node) path.Shortest { return path.DijkstraFrom(u, g) },
	}
}

func newBellmanFord(g *Snapshot) PathAlgorithm {
	return &treeCache{
		g:     g,
		trees: make(map[int64]path.Shortest),
		build: func(u graph.Node) path.Shortest {
			// Path lengths are non-negative so there is no negative cycle to report.
			tree, _ := path.BellmanFordFrom(u, g)
			return tree
		},
	}
}

type floydWarshall struct {
	g    *Snapshot
	once sync.Once
	all  path.AllShortest
}

func newFloydWarshall(g *Snapshot) PathAlgorithm { return &floydWarshall{g: g} }

func (f *floydWarshall) Path(from, to int64) ([]int64, float64, bool) {
	if f.g.Node(from) == nil || f.g.Node(to) == nil {
		return nil, math.Inf(1), false
	}
	f.once.Do(func() { f.all, _ = path.FloydWarshall(f.g) })
	nodes, weight, _ := f.all.Between(from, to)
	return toIDs(nodes, weight)
}

type aStar struct{ g *Snapshot }

func newAStar(g *Snapshot) PathAlgorithm { return aStar{g: g} }

func (a aStar) Path(from, to int64) ([]int64, float64, bool) {
	s, t := a.g.Node(from), a.g.Node(to)
	if s == nil || t == nil {
		return nil, math.Inf(1), false
	}
	tree, _ := path.AStar(s, t, a.g, nil)
	return toIDs(tree.To(to))
}
