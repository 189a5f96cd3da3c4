package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parisxmas/lodgeforms/internal/db"
	"github.com/parisxmas/lodgeforms/internal/models"
	"github.com/parisxmas/lodgeforms/internal/oxidb"
	"github.com/parisxmas/lodgeforms/internal/oxidb/oxidbtest"
)

func newOxiStore(t *testing.T) (*OxiStore, *oxidbtest.Server) {
	t.Helper()
	srv, err := oxidbtest.NewServer()
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	pool, err := db.NewPool(srv.Addr(), 2, nil)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewOxiStore(pool), srv
}

func TestOxiStore_AppendThenRead(t *testing.T) {
	s, srv := newOxiStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, ContactsCollection, testRecord{ID: "c1", Name: "Esi"}))
	require.NoError(t, s.Append(ctx, ContactsCollection, testRecord{ID: "c2", Name: "Yaw"}))

	records, err := s.Read(ctx, ContactsCollection)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, testRecord{ID: "c1", Name: "Esi"}, decode(t, records[0]))
	assert.Equal(t, testRecord{ID: "c2", Name: "Yaw"}, decode(t, records[1]))
	assert.NotContains(t, string(records[0]), "_id")

	assert.Len(t, srv.Docs(ContactsCollection), 2)
}

func TestOxiStore_ReadMissingIsEmpty(t *testing.T) {
	s, _ := newOxiStore(t)

	records, err := s.Read(context.Background(), BookingsCollection)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestOxiStore_Raw(t *testing.T) {
	s, _ := newOxiStore(t)
	ctx := context.Background()

	_, err := s.Raw(ctx, BookingsCollection)
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	require.NoError(t, s.Append(ctx, BookingsCollection, testRecord{ID: "b1", Name: "Adjoa"}))
	raw, err := s.Raw(ctx, BookingsCollection)
	require.NoError(t, err)

	var arr []testRecord
	require.NoError(t, json.Unmarshal(raw, &arr))
	assert.Equal(t, []testRecord{{ID: "b1", Name: "Adjoa"}}, arr)
}

func TestOxiStore_RawMatchesFileStoreLayout(t *testing.T) {
	oxi, _ := newOxiStore(t)
	file := newFileStore(t)
	ctx := context.Background()

	b := models.Booking{
		ID: "a1b2c3d4", Timestamp: "2025-03-01 10:00:00", Name: "Ama Mensah",
		Email: "ama@example.com", Phone: "0244000000", Checkin: "2025-04-01",
		Checkout: "2025-04-03", Adults: "2", Children: "0", RoomType: "executive",
		Message: "Late arrival <after 9pm> & quiet room",
	}
	c := models.Contact{ID: "e5f6a7b8", Timestamp: "2025-03-01 11:00:00", Name: "Kofi", Email: "kofi@example.com", Subject: "Hi", Message: "Hello"}
	for _, s := range []RecordStore{oxi, file} {
		require.NoError(t, s.Append(ctx, BookingsCollection, b))
		require.NoError(t, s.Append(ctx, ContactsCollection, c))
	}

	for _, coll := range []string{BookingsCollection, ContactsCollection} {
		want, err := file.Raw(ctx, coll)
		require.NoError(t, err)
		got, err := oxi.Raw(ctx, coll)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got), coll)
	}
}

func TestDocToRecord_UnknownKeysFollowSorted(t *testing.T) {
	raw, err := docToRecord(ContactsCollection, map[string]any{
		"_id": 7, "zeta": "z", "message": "m", "id": "c1", "alpha": "a",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"id":"c1","message":"m","alpha":"a","zeta":"z"}`, string(raw))
}

func TestOxiStore_ServerErrorIsPersistenceError(t *testing.T) {
	s, srv := newOxiStore(t)
	srv.FailNext("insert", "disk full")

	err := s.Append(context.Background(), BookingsCollection, testRecord{ID: "x"})
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe), "got %v", err)
	var oxErr *oxidb.Error
	assert.True(t, errors.As(err, &oxErr))
	assert.Empty(t, srv.Docs(BookingsCollection))
}

func TestOxiStore_NonObjectRecord(t *testing.T) {
	s, _ := newOxiStore(t)

	err := s.Append(context.Background(), BookingsCollection, []string{"not", "an", "object"})
	var pe *PersistenceError
	assert.True(t, errors.As(err, &pe))
}

func TestOxiStore_EnsureIndexesRejectsDuplicateIDs(t *testing.T) {
	s, _ := newOxiStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureIndexes(ctx, BookingsCollection, ContactsCollection))
	require.NoError(t, s.Append(ctx, BookingsCollection, testRecord{ID: "same"}))
	assert.Error(t, s.Append(ctx, BookingsCollection, testRecord{ID: "same"}))
}

func TestOxiStore_ConcurrentAppends(t *testing.T) {
	s, _ := newOxiStore(t)
	ctx := context.Background()
	const n = 30

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Append(ctx, BookingsCollection, testRecord{ID: fmt.Sprint(i)}))
		}(i)
	}
	wg.Wait()

	records, err := s.Read(ctx, BookingsCollection)
	require.NoError(t, err)
	assert.Len(t, records, n)
}
