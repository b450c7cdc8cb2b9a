package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/fleetcore/core/journal"
	"github.com/kilianp07/fleetcore/core/metrics"
	"github.com/kilianp07/fleetcore/core/plant"
	"github.com/kilianp07/fleetcore/core/routing"
	"github.com/kilianp07/fleetcore/core/vehicle"
	"github.com/kilianp07/fleetcore/infra/mqtt"
)

type Config struct {
	MQTT     mqtt.Config      `json:"mqtt"`
	Routing  routing.Config   `json:"routing"`
	Polling  vehicle.Config   `json:"polling"`
	Plant    plant.Config     `json:"plant"`
	Vehicles []VehicleBinding `json:"vehicles"`
	Metrics  metrics.Config   `json:"metrics"`
	Journal  journal.Config   `json:"journal"`
	Sentry   SentryConfig     `json:"sentry"`
	Logging  LoggingConfig    `json:"logging"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	if c.MQTT.Broker != "" {
		c.MQTT.SetDefaults()
	}
	c.Routing.SetDefaults()
	c.Polling.SetDefaults()
	c.Journal.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section and that vehicle bindings name plant
// vehicles.
func (c Config) Validate() error {
	if c.MQTT.Broker != "" {
		if err := c.MQTT.Validate(); err != nil {
			return err
		}
	}
	if err := c.Routing.Validate(); err != nil {
		return err
	}
	if err := c.Polling.Validate(); err != nil {
		return err
	}
	if err := c.Plant.Validate(); err != nil {
		return fmt.Errorf("plant: %w", err)
	}
	known := make(map[string]struct{}, len(c.Plant.Vehicles))
	for _, v := range c.Plant.Vehicles {
		known[v.Name] = struct{}{}
	}
	seen := make(map[string]struct{}, len(c.Vehicles))
	for _, b := range c.Vehicles {
		if err := b.Validate(); err != nil {
			return err
		}
		if _, ok := known[b.Name]; !ok {
			return fmt.Errorf("vehicles: %s is not a plant vehicle", b.Name)
		}
		if _, dup := seen[b.Name]; dup {
			return fmt.Errorf("vehicles: %s bound twice", b.Name)
		}
		seen[b.Name] = struct{}{}
		if b.Transport.Type == "mqtt" && c.MQTT.Broker == "" {
			return fmt.Errorf("vehicles: %s uses mqtt but no broker is configured", b.Name)
		}
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.Journal.Validate(); err != nil {
		return err
	}
	if err := c.Sentry.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}

// Binding returns the transport configured for a plant vehicle. Vehicles
// without a binding run on the loopback simulator.
func (c Config) Binding(name string) VehicleBinding {
	for _, b := range c.Vehicles {
		if b.Name == name {
			return b
		}
	}
	return VehicleBinding{Name: name, Transport: defaultTransport()}
}
