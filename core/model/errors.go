package model

import (
	"errors"
	"fmt"
)

// ErrObjectUnknown is matched by every ObjectUnknownError.
var ErrObjectUnknown = errors.New("object unknown")

// ObjectKind names the kind of plant object a reference points to.
type ObjectKind string

const (
	KindPoint   ObjectKind = "point"
	KindPath    ObjectKind = "path"
	KindVehicle ObjectKind = "vehicle"
)

// ObjectUnknownError is returned when a reference does not resolve in the
// current plant model.
type ObjectUnknownError struct {
	Kind ObjectKind
	Name string
	// Role qualifies the reference, e.g. "source" or "destination".
	Role string
}

func (e *ObjectUnknownError) Error() string {
	if e.Role != "" {
		return fmt.Sprintf("unknown %s %s: %s", e.Role, e.Kind, e.Name)
	}
	return fmt.Sprintf("unknown %s: %s", e.Kind, e.Name)
}

// Is makes errors.Is(err, ErrObjectUnknown) true.
func (e *ObjectUnknownError) Is(target error) bool { return target == ErrObjectUnknown }

// ResourceRef references a point or path to be avoided while routing.
type ResourceRef struct {
	Kind ObjectKind `json:"kind"`
	Name string     `json:"name"`
}

// ParseResourceRef parses "point:NAME" or "path:NAME".
func ParseResourceRef(s string) (ResourceRef, error) {
	for _, k := range []ObjectKind{KindPoint, KindPath} {
		prefix := string(k) + ":"
		if len(s) > len(prefix) && s[:len(prefix)] == prefix {
			return ResourceRef{Kind: k, Name: s[len(prefix):]}, nil
		}
	}
	return ResourceRef{}, fmt.Errorf("invalid resource reference %q", s)
}
