package journal

import "fmt"

// Config selects and tunes the journal backend.
type Config struct {
	// Backend is "jsonl", "sqlite" or "none".
	Backend string `json:"backend"`
	Path    string `json:"path"`
	// MaxSizeMB enables rotation of the jsonl backend when non-zero.
	MaxSizeMB  int `json:"max_size_mb"`
	MaxBackups int `json:"max_backups"`
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies the jsonl backend at fleet-journal.jsonl.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" && c.Backend != "none" {
		c.Path = "fleet-journal.jsonl"
	}
}

// Validate checks the backend is known.
func (c Config) Validate() error {
	switch c.Backend {
	case "jsonl", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("journal: path is required")
		}
	case "none":
	default:
		return fmt.Errorf("journal: unknown backend %s", c.Backend)
	}
	return nil
}

// Open builds the configured store.
func Open(c Config) (Store, error) {
	switch c.Backend {
	case "jsonl":
		if c.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
		}
		return NewJSONLStore(c.Path)
	case "sqlite":
		return NewSQLiteStore(c.Path)
	case "none":
		return NopStore{}, nil
	}
	return nil, fmt.Errorf("journal: unknown backend %s", c.Backend)
}
