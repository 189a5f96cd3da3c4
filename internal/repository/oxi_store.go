package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/parisxmas/lodgeforms/internal/db"
	"github.com/parisxmas/lodgeforms/internal/oxidb"
)

// OxiStore keeps collections in an OxiDB server. Every append is a single
// document insert, so concurrent appends never overwrite each other; the
// server's auto-increment _id gives the insertion order.
type OxiStore struct {
	pool *db.Pool
}

func NewOxiStore(pool *db.Pool) *OxiStore {
	return &OxiStore{pool: pool}
}

// EnsureIndexes puts a unique index on the record id of each collection.
func (s *OxiStore) EnsureIndexes(ctx context.Context, collections ...string) error {
	c := s.pool.Get()
	for _, coll := range collections {
		if err := c.CreateUniqueIndex(ctx, coll, "id"); err != nil {
			return fmt.Errorf("index %s.id: %w", coll, err)
		}
	}
	return nil
}

func (s *OxiStore) Append(ctx context.Context, collection string, record any) error {
	doc, err := recordToDoc(record)
	if err != nil {
		return persistErr(collection, "append", err)
	}
	if _, err := s.pool.Get().Insert(ctx, collection, doc); err != nil {
		return persistErr(collection, "append", err)
	}
	return nil
}

func (s *OxiStore) Read(ctx context.Context, collection string) ([]json.RawMessage, error) {
	docs, err := s.pool.Get().Find(ctx, collection, map[string]any{}, &oxidb.FindOptions{
		Sort: map[string]any{"_id": 1},
	})
	if err != nil {
		return nil, persistErr(collection, "read", err)
	}
	records := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		r, err := docToRecord(collection, d)
		if err != nil {
			return nil, persistErr(collection, "read", err)
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *OxiStore) Raw(ctx context.Context, collection string) ([]byte, error) {
	names, err := s.pool.Get().ListCollections(ctx)
	if err != nil {
		return nil, persistErr(collection, "read", err)
	}
	if !slices.Contains(names, collection) {
		return nil, ErrCollectionNotFound
	}
	records, err := s.Read(ctx, collection)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, persistErr(collection, "read", err)
	}
	return out, nil
}
