package model

import (
	"fmt"
	"slices"
)

// Point is a named node of the plant graph.
type Point struct {
	Name string `json:"name"`
	X    int64  `json:"x"`
	Y    int64  `json:"y"`
}

// Path connects two points. Length doubles as the routing cost.
type Path struct {
	Name        string `json:"name"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Length      int64  `json:"length"`
	// MaxVelocity allows travel source->destination when non-zero,
	// MaxReverseVelocity allows travel destination->source when non-zero.
	MaxVelocity        int  `json:"max_velocity"`
	MaxReverseVelocity int  `json:"max_reverse_velocity"`
	Locked             bool `json:"locked"`
	// ForbiddenClasses lists vehicle classes that may never use the path.
	ForbiddenClasses []string `json:"forbidden_classes"`
}

// Validate checks the path on its own; endpoint existence is checked by the
// plant model.
func (p Path) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("path name is required")
	}
	if p.Source == "" || p.Destination == "" {
		return fmt.Errorf("path %s: source and destination are required", p.Name)
	}
	if p.Source == p.Destination {
		return fmt.Errorf("path %s: source equals destination", p.Name)
	}
	if p.Length < 0 {
		return fmt.Errorf("path %s: negative length", p.Name)
	}
	return nil
}

// NavigableForward reports whether the path may be travelled source->destination.
func (p Path) NavigableForward() bool { return p.MaxVelocity != 0 }

// NavigableReverse reports whether the path may be travelled destination->source.
func (p Path) NavigableReverse() bool { return p.MaxReverseVelocity != 0 }

// AllowedFor reports whether vehicles of the given class may use the path.
// The empty class stands for the vehicle-agnostic general graph.
func (p Path) AllowedFor(class string) bool {
	if class == "" {
		return true
	}
	return !slices.Contains(p.ForbiddenClasses, class)
}
