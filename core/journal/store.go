// Package journal persists what the fleet did: routes handed to vehicles and
// the movement commands they completed.
package journal

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a journal record.
type Kind string

const (
	KindRouteAssigned   Kind = "route_assigned"
	KindCommandExecuted Kind = "command_executed"
	KindOrderRejected   Kind = "order_rejected"
)

// Record is one journal line.
type Record struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Kind        Kind      `json:"kind"`
	Vehicle     string    `json:"vehicle"`
	Operation   string    `json:"operation,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Points      []string  `json:"points,omitempty"`
	Cost        int64     `json:"cost,omitempty"`
	Index       int       `json:"index,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// NewRecord stamps a record with a fresh id and the current time.
func NewRecord(kind Kind, vehicle string) Record {
	return Record{ID: uuid.NewString(), Timestamp: time.Now().UTC(), Kind: kind, Vehicle: vehicle}
}

// Query filters records. Zero fields match everything.
type Query struct {
	Start   time.Time
	End     time.Time
	Vehicle string
	Kinds   []Kind
}

// Matches reports whether r passes the filter.
func (q Query) Matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Vehicle != "" && r.Vehicle != q.Vehicle {
		return false
	}
	if len(q.Kinds) > 0 && !slices.Contains(q.Kinds, r.Kind) {
		return false
	}
	return true
}

// Store persists records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error          { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
