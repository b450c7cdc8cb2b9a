package vehicle

import (
	"fmt"
	"time"
)

// Config tunes the polling cycle of a vehicle link.
type Config struct {
	IntervalMS    int `json:"interval_ms"`
	StopTimeoutMS int `json:"stop_timeout_ms"`
}

// SetDefaults applies a 5s poll interval and a 5s stop timeout.
func (c *Config) SetDefaults() {
	if c.IntervalMS == 0 {
		c.IntervalMS = 5000
	}
	if c.StopTimeoutMS == 0 {
		c.StopTimeoutMS = 5000
	}
}

// Validate checks the durations are positive.
func (c Config) Validate() error {
	if c.IntervalMS <= 0 {
		return fmt.Errorf("polling: interval_ms must be positive")
	}
	if c.StopTimeoutMS <= 0 {
		return fmt.Errorf("polling: stop_timeout_ms must be positive")
	}
	return nil
}

func (c Config) Interval() time.Duration    { return time.Duration(c.IntervalMS) * time.Millisecond }
func (c Config) StopTimeout() time.Duration { return time.Duration(c.StopTimeoutMS) * time.Millisecond }
