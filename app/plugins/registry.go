package plugins

import (
	"fmt"
	"sort"

	"github.com/kilianp07/fleetcore/core/factory"
	"github.com/kilianp07/fleetcore/core/model"
	coremqtt "github.com/kilianp07/fleetcore/core/mqtt"
	"github.com/kilianp07/fleetcore/core/vehicle"
	"github.com/kilianp07/fleetcore/infra/mqtt"
)

// Env carries the shared resources transports may attach to.
type Env struct {
	// Bus is nil when no broker is configured.
	Bus  coremqtt.Messenger
	MQTT mqtt.Config
}

// TransportFactory builds the transport of one vehicle from raw config.
type TransportFactory func(v model.Vehicle, conf map[string]any, env Env) (vehicle.Transport, error)

var Transports = map[string]TransportFactory{}

func RegisterTransport(name string, f TransportFactory) { Transports[name] = f }

// TransportNames lists the registered transport types.
func TransportNames() []string {
	names := make([]string, 0, len(Transports))
	for n := range Transports {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewTransport instantiates the module selected by mc for v.
func NewTransport(v model.Vehicle, mc factory.ModuleConfig, env Env) (vehicle.Transport, error) {
	f, ok := Transports[mc.Type]
	if !ok {
		return nil, fmt.Errorf("vehicle %s: unknown transport %q (known: %v)", v.Name, mc.Type, TransportNames())
	}
	t, err := f(v, mc.Conf, env)
	if err != nil {
		return nil, fmt.Errorf("vehicle %s: %s transport: %w", v.Name, mc.Type, err)
	}
	return t, nil
}
