package plugins

import (
	"fmt"

	"github.com/kilianp07/fleetcore/core/factory"
	"github.com/kilianp07/fleetcore/core/model"
	"github.com/kilianp07/fleetcore/core/vehicle"
	"github.com/kilianp07/fleetcore/infra/loopback"
	"github.com/kilianp07/fleetcore/infra/modbus"
	"github.com/kilianp07/fleetcore/infra/mqtt"
)

func init() {
	RegisterTransport("loopback", func(v model.Vehicle, conf map[string]any, _ Env) (vehicle.Transport, error) {
		var c loopback.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.InitialPosition == "" {
			c.InitialPosition = v.InitialPosition
		}
		return loopback.New(c), nil
	})
	RegisterTransport("modbus", func(_ model.Vehicle, conf map[string]any, _ Env) (vehicle.Transport, error) {
		var c modbus.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return modbus.NewTransport(c)
	})
	RegisterTransport("mqtt", func(v model.Vehicle, conf map[string]any, env Env) (vehicle.Transport, error) {
		if env.Bus == nil {
			return nil, fmt.Errorf("no mqtt broker configured")
		}
		var c mqtt.TransportConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return mqtt.NewTransport(v.Name, env.Bus, env.MQTT, c), nil
	})
}
