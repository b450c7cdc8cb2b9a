package routing

import (
	"fmt"
	"slices"
)

// Config selects the path algorithm used for every route table.
type Config struct {
	Algorithm string `json:"algorithm"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Algorithm == "" {
		c.Algorithm = Dijkstra
	}
}

// Validate checks the algorithm is registered.
func (c Config) Validate() error {
	if !slices.Contains(AlgorithmNames(), c.Algorithm) {
		return fmt.Errorf("routing: unknown algorithm %q (known: %v)", c.Algorithm, AlgorithmNames())
	}
	return nil
}
