// Package store defines the document-store contract the engine runs
// on: keyed JSON documents under named collections, atomic multi-key
// writes, conditional creates and whole-collection watches. Backends
// live in the memory and rtdb subpackages.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrExists   = errors.New("store: already exists")
)

// Collection names. Backends treat these as opaque path segments.
const (
	CollProducts     = "products"
	CollTables       = "tables"
	CollOrders       = "orders"
	CollOpenOrders   = "openOrders"
	CollCustomers    = "customers"
	CollShifts       = "shifts"
	CollReservations = "reservations"
	CollSettings     = "settings"
	CollCounters     = "counters"
	CollAuditLogs    = "auditLogs"
	CollStaff        = "staff"
)

// Op is one write in an atomic batch. A nil Value deletes the key.
type Op struct {
	Collection string
	Key        string
	Value      any
}

// Put builds a write op.
func Put(coll, key string, v any) Op { return Op{Collection: coll, Key: key, Value: v} }

// Delete builds a delete op.
func Delete(coll, key string) Op { return Op{Collection: coll, Key: key} }

// Store is the engine's persistence contract. Update applies all ops
// or none; Create fails with ErrExists when the key is taken, which is
// what keeps one OPEN order per table under concurrent sends.
type Store interface {
	Get(ctx context.Context, coll, key string, v any) error
	Snapshot(ctx context.Context, coll string) (map[string]json.RawMessage, error)
	Update(ctx context.Context, ops []Op) error
	Create(ctx context.Context, coll, key string, v any) error

	// IncrementDailyCounter bumps and returns the sequence for the
	// given date key, starting at 1. Atomic across writers.
	IncrementDailyCounter(ctx context.Context, dateKey string) (int64, error)

	// Watch streams collection snapshots until ctx is done. The first
	// message is the current state; later ones follow each change.
	// Slow consumers see conflated snapshots, never a backlog.
	Watch(ctx context.Context, coll string) (<-chan map[string]json.RawMessage, error)
}

// Decode unmarshals a raw snapshot document.
func Decode[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}
