package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Collection names, one per submission kind.
const (
	BookingsCollection = "bookings"
	ContactsCollection = "contacts"
)

// ErrCollectionNotFound is returned by Raw when a collection has never been
// written.
var ErrCollectionNotFound = errors.New("collection not found")

// RecordStore persists submission records as ordered, append-only
// collections. Records are never updated or removed.
type RecordStore interface {
	// Append adds record at the end of collection. A collection that does
	// not exist yet is treated as empty.
	Append(ctx context.Context, collection string, record any) error
	// Read returns every record of collection in insertion order, or an
	// empty slice if the collection does not exist.
	Read(ctx context.Context, collection string) ([]json.RawMessage, error)
	// Raw returns the collection as a JSON array document.
	Raw(ctx context.Context, collection string) ([]byte, error)
}

// PersistenceError reports a failed store operation.
type PersistenceError struct {
	Collection string
	Op         string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistErr(collection, op string, err error) error {
	return &PersistenceError{Collection: collection, Op: op, Err: err}
}
