package config

import (
	"fmt"

	"github.com/kilianp07/fleetcore/core/factory"
)

// VehicleBinding selects the transport module driving one plant vehicle.
type VehicleBinding struct {
	Name      string               `json:"name"`
	Transport factory.ModuleConfig `json:"transport"`
}

func (b VehicleBinding) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("vehicles: name is required")
	}
	if b.Transport.Type == "" {
		return fmt.Errorf("vehicles: %s has no transport type", b.Name)
	}
	return nil
}

func defaultTransport() factory.ModuleConfig {
	return factory.ModuleConfig{Type: "loopback"}
}
