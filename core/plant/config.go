package plant

import (
	"fmt"

	"github.com/kilianp07/fleetcore/core/model"
)

// Config describes the plant topology and the vehicles operating on it.
type Config struct {
	Points   []model.Point   `json:"points"`
	Paths    []model.Path    `json:"paths"`
	Vehicles []model.Vehicle `json:"vehicles"`
}

// Validate checks names are unique and every path endpoint exists.
func (c Config) Validate() error {
	points := make(map[string]struct{}, len(c.Points))
	for _, p := range c.Points {
		if p.Name == "" {
			return fmt.Errorf("point name is required")
		}
		if _, dup := points[p.Name]; dup {
			return fmt.Errorf("duplicate point %s", p.Name)
		}
		points[p.Name] = struct{}{}
	}
	paths := make(map[string]struct{}, len(c.Paths))
	for _, p := range c.Paths {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := paths[p.Name]; dup {
			return fmt.Errorf("duplicate path %s", p.Name)
		}
		paths[p.Name] = struct{}{}
		if _, ok := points[p.Source]; !ok {
			return fmt.Errorf("path %s: %w", p.Name, &model.ObjectUnknownError{Kind: model.KindPoint, Name: p.Source, Role: "source"})
		}
		if _, ok := points[p.Destination]; !ok {
			return fmt.Errorf("path %s: %w", p.Name, &model.ObjectUnknownError{Kind: model.KindPoint, Name: p.Destination, Role: "destination"})
		}
	}
	vehicles := make(map[string]struct{}, len(c.Vehicles))
	for _, v := range c.Vehicles {
		if err := v.Validate(); err != nil {
			return err
		}
		if _, dup := vehicles[v.Name]; dup {
			return fmt.Errorf("duplicate vehicle %s", v.Name)
		}
		vehicles[v.Name] = struct{}{}
		if v.InitialPosition != "" {
			if _, ok := points[v.InitialPosition]; !ok {
				return fmt.Errorf("vehicle %s: %w", v.Name, &model.ObjectUnknownError{Kind: model.KindPoint, Name: v.InitialPosition})
			}
		}
	}
	return nil
}
