package repository

import (
	"context"
	"encoding/json"
	"fmt"
)

// Has reports whether collection already holds a record with the given id.
func (s *OxiStore) Has(ctx context.Context, collection, id string) (bool, error) {
	n, err := s.pool.Get().Count(ctx, collection, map[string]any{"id": id})
	if err != nil {
		return false, persistErr(collection, "read", err)
	}
	return n > 0, nil
}

// MigrateResult counts what Migrate did for one collection.
type MigrateResult struct {
	Collection string
	Copied     int
	Skipped    int
}

// Migrate copies every record of collection from src into dst in order.
// Records whose id is already present in dst are skipped, so a partial run
// can simply be repeated. With dryRun set nothing is written.
func Migrate(ctx context.Context, src RecordStore, dst *OxiStore, collection string, dryRun bool) (MigrateResult, error) {
	res := MigrateResult{Collection: collection}
	records, err := src.Read(ctx, collection)
	if err != nil {
		return res, err
	}
	for i, raw := range records {
		var head struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return res, fmt.Errorf("%s record %d: %w", collection, i, err)
		}
		if head.ID != "" {
			exists, err := dst.Has(ctx, collection, head.ID)
			if err != nil {
				return res, err
			}
			if exists {
				res.Skipped++
				continue
			}
		}
		if !dryRun {
			if err := dst.Append(ctx, collection, raw); err != nil {
				return res, err
			}
		}
		res.Copied++
	}
	return res, nil
}
