package routing

import "github.com/prometheus/client_golang/prometheus"

var (
	routeComputations *prometheus.CounterVec
	tableBuildSeconds *prometheus.HistogramVec
	topologyUpdates   prometheus.Counter
)

func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, prometheus.Counter) {
	comp := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_computations_total",
			Help: "Number of routes computed, by outcome",
		},
		[]string{"result"},
	)
	build := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "route_table_build_seconds",
			Help:    "Time spent building and priming route tables",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"graph"},
	)
	topo := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "topology_updates_total",
			Help: "Number of routing topology updates",
		},
	)
	return comp, build, topo
}

func init() {
	routeComputations, tableBuildSeconds, topologyUpdates = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers routing metrics on reg, or on
// prometheus.DefaultRegisterer when reg is nil.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(routeComputations, tableBuildSeconds, topologyUpdates)
}

// ResetMetrics recreates the collectors for tests and registers them on reg
// if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	routeComputations, tableBuildSeconds, topologyUpdates = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
