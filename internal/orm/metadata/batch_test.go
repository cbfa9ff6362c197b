package metadata

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/conduit-lang/metastore/internal/orm/database"
	"github.com/conduit-lang/metastore/internal/orm/entity"
	"github.com/conduit-lang/metastore/internal/web/auth"
	"github.com/conduit-lang/metastore/internal/web/cache"
	webcontext "github.com/conduit-lang/metastore/internal/web/context"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return New(database.New(sqlDB, database.DialectSQLite), nil), mock
}

func TestStorageUntouchedOnInvalidInput(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := webcontext.WithShowHidden(adminCtx(), true)
	empty := MustQuery()

	_, err := store.Create(ctx, CreateParams{EntityGUID: 5, Name: "color"})
	assert.ErrorIs(t, err, ErrValueUnset)

	_, err = store.DeleteAll(ctx, empty)
	assert.ErrorIs(t, err, ErrUnconstrainedBatch)
	_, err = store.DisableAll(ctx, empty)
	assert.ErrorIs(t, err, ErrUnconstrainedBatch)
	_, err = store.EnableAll(ctx, empty)
	assert.ErrorIs(t, err, ErrUnconstrainedBatch)

	// entity constraints alone do not narrow a batch enough
	_, err = store.DeleteAll(ctx, MustQuery(TypeIn{"object"}, Limit(5)))
	assert.ErrorIs(t, err, ErrUnconstrainedBatch)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnableAll_RequiresShowHidden(t *testing.T) {
	store, mock := newMockStore(t)

	_, err := store.EnableAll(adminCtx(), MustQuery(Names("color")))
	assert.ErrorIs(t, err, ErrHiddenNotVisible)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func seedColors(t *testing.T, f *fixture, n int) {
	t.Helper()
	ctx := adminCtx()
	f.seedEntity(t, 5, "object", "blog", entity.AccessPublic)
	f.seedEntity(t, 6, "object", "blog", entity.AccessPublic)
	for i := 0; i < n; i++ {
		_, err := f.store.Create(ctx, CreateParams{EntityGUID: 5, Name: "color", Value: i, AllowMultiple: true})
		require.NoError(t, err)
	}
	_, err := f.store.Create(ctx, CreateParams{EntityGUID: 6, Name: "color", Value: "keep"})
	require.NoError(t, err)
}

func TestDeleteAll(t *testing.T) {
	f := newFixture(t, WithPageSize(3))
	seedColors(t, f, 7)
	ctx := adminCtx()

	_, err := f.store.GetForEntity(ctx, 5)
	require.NoError(t, err)

	n, err := f.store.DeleteAll(ctx, MustQuery(Entities(5), Names("color")))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, 0, f.countRows(t, "entity_guid = ?", 5))
	assert.Equal(t, 1, f.countRows(t, "entity_guid = ?", 6))

	_, cached := f.store.Cache().Load(ctx, 5)
	assert.False(t, cached)

	n, err = f.store.DeleteAll(ctx, MustQuery(Entities(5)))
	require.NoError(t, err)
	assert.Zero(t, n, "nothing matched")
}

func TestDeleteAll_KeepsForeignKeysInSharedRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rc := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), cache.DefaultConfig())
	t.Cleanup(func() {
		rc.Close()
		mr.Close()
	})

	f := newFixture(t, WithCache(rc, 0))
	seedColors(t, f, 2)
	ctx := adminCtx()

	_, err = f.store.GetForEntity(ctx, 5)
	require.NoError(t, err)
	require.True(t, mr.Exists("metastore:metadata:5"))
	require.NoError(t, mr.Set("metastore:ratelimit:principal:7", "3"))

	_, err = f.store.DeleteAll(ctx, MustQuery(Names("color")))
	require.NoError(t, err)

	assert.False(t, mr.Exists("metastore:metadata:5"))
	assert.True(t, mr.Exists("metastore:ratelimit:principal:7"), "rate limit counters survive a metadata flush")
}

func TestDeleteAll_SkipsVetoedRecords(t *testing.T) {
	f := newFixture(t, WithPageSize(2))
	seedColors(t, f, 5)
	ctx := adminCtx()

	f.bus.Register("delete", "metadata", func(ctx context.Context, event, category string, payload interface{}) bool {
		return payload.(*Record).Value != int64(1)
	})

	n, err := f.store.DeleteAll(ctx, MustQuery(Entities(5)))
	assert.ErrorIs(t, err, ErrBatchIncomplete)
	assert.Equal(t, 4, n)
	assert.Equal(t, 1, f.countRows(t, "entity_guid = ?", 5))
}

func TestDisableAndEnableAll(t *testing.T) {
	for _, showHidden := range []bool{false, true} {
		name := "hidden rows invisible"
		if showHidden {
			name = "hidden rows visible"
		}
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, WithPageSize(2))
			seedColors(t, f, 5)
			ctx := webcontext.WithShowHidden(adminCtx(), showHidden)

			n, err := f.store.DisableAll(ctx, MustQuery(Entities(5)))
			require.NoError(t, err)
			assert.Equal(t, 5, n)
			assert.Equal(t, 5, f.countRows(t, "entity_guid = ? AND enabled = 'no'", 5))
			assert.Equal(t, 1, f.countRows(t, "enabled = 'yes'"))

			records, err := f.store.GetAll(adminCtx(), MustQuery(Entities(5)))
			require.NoError(t, err)
			assert.Empty(t, records)

			hidden := webcontext.WithShowHidden(adminCtx(), true)
			n, err = f.store.EnableAll(hidden, MustQuery(Entities(5)))
			require.NoError(t, err)
			assert.Equal(t, 5, n)
			assert.Equal(t, 0, f.countRows(t, "enabled = 'no'"))

			n, err = f.store.EnableAll(hidden, MustQuery(Entities(5)))
			require.NoError(t, err)
			assert.Zero(t, n, "already enabled")
		})
	}
}

func TestDisableAll_SkipsForeignRecords(t *testing.T) {
	f := newFixture(t)
	f.seedEntity(t, 5, "object", "blog", entity.AccessPublic)

	alice := auth.SetCurrentPrincipal(context.Background(), 7)
	bob := auth.SetCurrentPrincipal(context.Background(), 8)
	_, err := f.store.Create(alice, CreateParams{EntityGUID: 5, Name: "a", Value: "x", AccessID: entity.AccessPublic})
	require.NoError(t, err)
	_, err = f.store.Create(bob, CreateParams{EntityGUID: 5, Name: "b", Value: "y", AccessID: entity.AccessPublic})
	require.NoError(t, err)

	n, err := f.store.DisableAll(alice, MustQuery(Entities(5)))
	assert.ErrorIs(t, err, ErrBatchIncomplete)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, f.countRows(t, "name = ? AND enabled = 'no'", "a"))
	assert.Equal(t, 1, f.countRows(t, "name = ? AND enabled = 'yes'", "b"))
}
