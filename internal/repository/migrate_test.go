package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	src := newFileStore(t)
	dst, srv := newOxiStore(t)

	for _, id := range []string{"a1", "b2", "c3"} {
		require.NoError(t, src.Append(ctx, BookingsCollection, testRecord{ID: id, Name: "guest " + id}))
	}
	require.NoError(t, dst.Append(ctx, BookingsCollection, testRecord{ID: "b2", Name: "guest b2"}))

	res, err := Migrate(ctx, src, dst, BookingsCollection, true)
	require.NoError(t, err)
	assert.Equal(t, MigrateResult{Collection: BookingsCollection, Copied: 2, Skipped: 1}, res)
	assert.Len(t, srv.Docs(BookingsCollection), 1, "dry run writes nothing")

	res, err = Migrate(ctx, src, dst, BookingsCollection, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Copied)

	records, err := dst.Read(ctx, BookingsCollection)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "a1", decode(t, records[1]).ID)
	assert.Equal(t, "c3", decode(t, records[2]).ID)

	// Running again copies nothing.
	res, err = Migrate(ctx, src, dst, BookingsCollection, false)
	require.NoError(t, err)
	assert.Equal(t, MigrateResult{Collection: BookingsCollection, Copied: 0, Skipped: 3}, res)
}

func TestMigrate_EmptySource(t *testing.T) {
	dst, _ := newOxiStore(t)

	res, err := Migrate(context.Background(), newFileStore(t), dst, ContactsCollection, false)
	require.NoError(t, err)
	assert.Zero(t, res.Copied)
}
