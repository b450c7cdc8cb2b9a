package modbus

import (
	"fmt"
	"net"
	"time"
)

// Config addresses one vehicle controller over Modbus TCP.
type Config struct {
	Address   string `json:"address"`
	SlaveID   byte   `json:"slave_id"`
	TimeoutMS int    `json:"timeout_ms"`
	// MaxSpeed caps the value written to SET_SPEED, in mm/s.
	MaxSpeed int `json:"max_speed"`
}

// SetDefaults applies a 2s timeout, slave 1 and a 2400 mm/s speed cap.
func (c *Config) SetDefaults() {
	if c.SlaveID == 0 {
		c.SlaveID = 1
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 2000
	}
	if c.MaxSpeed <= 0 {
		c.MaxSpeed = 2400
	}
}

func (c Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("modbus: address is required")
	}
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return fmt.Errorf("modbus: address %q: %w", c.Address, err)
	}
	if c.MaxSpeed > 0xFFFF {
		return fmt.Errorf("modbus: max_speed %d exceeds a register", c.MaxSpeed)
	}
	return nil
}

func (c Config) timeout() time.Duration { return time.Duration(c.TimeoutMS) * time.Millisecond }
