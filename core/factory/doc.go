// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// Vehicle transports and path algorithms are both built this way:
//
//	reg := factory.NewRegistry[vehicle.Transport]()
//	reg.Register("modbus", func(conf map[string]any) (vehicle.Transport, error) {
//	    var c modbus.Config
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return modbus.NewTransport(c)
//	})
//	t, err := reg.Create(factory.ModuleConfig{Type: "modbus", Conf: map[string]any{"address": "10.0.0.5:502"}})
package factory
