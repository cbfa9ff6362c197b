package entity

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/conduit-lang/metastore/internal/orm/database"
	"github.com/conduit-lang/metastore/internal/orm/events"
	"github.com/conduit-lang/metastore/internal/web/auth"
	webcontext "github.com/conduit-lang/metastore/internal/web/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newSQLiteTable(t *testing.T, emitter events.Emitter) *Table {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, "sqlite3", ":memory:")
	require.NoError(t, err)
	db.SQL().SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))

	return NewTable(db, emitter, auth.ContextSession{}, WithClock(fixedNow))
}

func TestTable_CreateAndGet(t *testing.T) {
	bus := events.NewBus()
	var created *Entity
	bus.Register("create", "object", func(ctx context.Context, event, category string, payload interface{}) bool {
		created = payload.(*Entity)
		return true
	})

	table := newSQLiteTable(t, bus)
	ctx := auth.SetCurrentPrincipal(context.Background(), 3)

	guid, err := table.Create(ctx, &Entity{Type: "object", Subtype: "blog", AccessID: AccessPublic})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, guid, created.GUID)

	e, err := table.Get(ctx, guid)
	require.NoError(t, err)
	assert.Equal(t, "object", e.Type)
	assert.Equal(t, "blog", e.Subtype)
	assert.Equal(t, int64(3), e.OwnerGUID)
	assert.Equal(t, AccessPublic, e.AccessID)
	assert.Equal(t, fixedNow(), e.TimeCreated)
	assert.True(t, e.Enabled)

	_, err = table.Get(ctx, guid+1)
	assert.True(t, database.IsNotFound(err))

	_, err = table.Create(ctx, &Entity{})
	assert.Error(t, err)
}

func TestTable_UpdatePublishesEvent(t *testing.T) {
	bus := events.NewBus()
	var updated *Entity
	bus.Register("update", events.All, func(ctx context.Context, event, category string, payload interface{}) bool {
		updated = payload.(*Entity)
		return true
	})

	table := newSQLiteTable(t, bus)
	ctx := auth.SetCurrentPrincipal(context.Background(), 3)

	e := &Entity{Type: "group", AccessID: AccessPublic}
	_, err := table.Create(ctx, e)
	require.NoError(t, err)

	e.AccessID = AccessLoggedIn
	require.NoError(t, table.Update(ctx, e))
	require.NotNil(t, updated)
	assert.Equal(t, AccessLoggedIn, updated.AccessID)

	assert.True(t, database.IsNotFound(table.Update(ctx, &Entity{GUID: 999, Type: "group"})))
}

func TestTable_GetEntities(t *testing.T) {
	table := newSQLiteTable(t, nil)
	owner := auth.SetCurrentPrincipal(context.Background(), 3)

	for _, e := range []*Entity{
		{Type: "object", Subtype: "blog", AccessID: AccessPublic},
		{Type: "object", Subtype: "page", AccessID: AccessLoggedIn},
		{Type: "object", Subtype: "blog", AccessID: AccessPrivate},
		{Type: "user", AccessID: AccessPublic},
	} {
		_, err := table.Create(owner, e)
		require.NoError(t, err)
	}

	tests := []struct {
		name string
		ctx  context.Context
		opts *Options
		want int
	}{
		{"anonymous sees public", context.Background(), &Options{}, 2},
		{"member sees logged in", auth.SetCurrentPrincipal(context.Background(), 9), &Options{}, 3},
		{"owner sees own", owner, &Options{}, 4},
		{"types", owner, &Options{Types: []string{"object"}}, 3},
		{"subtypes", owner, &Options{Subtypes: []string{"blog"}}, 2},
		{"limit", owner, &Options{Limit: 1}, 1},
		{"no limit", owner, &Options{Limit: NoLimit}, 4},
		{"offset", owner, &Options{Offset: 3}, 1},
		{"custom where", owner, &Options{Wheres: []Clause{{SQL: "e.access_id = ?", Args: []interface{}{AccessPrivate}}}}, 1},
		{"ignore access", webcontext.WithIgnoreAccess(context.Background(), true), &Options{}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := table.GetEntities(tt.ctx, tt.opts)
			require.NoError(t, err)
			assert.Len(t, list, tt.want)

			n, err := table.CountEntities(tt.ctx, tt.opts)
			require.NoError(t, err)
			if tt.opts.Limit == 0 && tt.opts.Offset == 0 {
				assert.Equal(t, int64(tt.want), n)
			}
		})
	}
}

func TestTable_BuildOrdering(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer sqlDB.Close()

	table := NewTable(database.New(sqlDB, database.DialectSQLite), nil, auth.ContextSession{})
	ctx := webcontext.WithShowHidden(webcontext.WithIgnoreAccess(context.Background(), true), true)

	mock.ExpectQuery("SELECT "+columns+" FROM entities e WHERE e.type IN (?) ORDER BY e.time_created DESC, e.guid DESC LIMIT ?").
		WithArgs("object", DefaultLimit).
		WillReturnRows(sqlmock.NewRows(nil))
	_, err = table.GetEntities(ctx, &Options{Types: []string{"object"}})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT "+columns+" FROM entities e ORDER BY e.subtype ASC, e.guid ASC LIMIT ? OFFSET ?").
		WithArgs(5, 10).
		WillReturnRows(sqlmock.NewRows(nil))
	_, err = table.GetEntities(ctx, &Options{OrderBy: []Clause{{SQL: "e.subtype ASC"}}, Limit: 5, Offset: 10})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptions_Validate(t *testing.T) {
	assert.NoError(t, (&Options{}).Validate())
	assert.Error(t, (&Options{Limit: -5}).Validate())
	assert.Error(t, (&Options{Offset: -1}).Validate())
	assert.Error(t, (&Options{Wheres: []Clause{{SQL: " "}}}).Validate())
	assert.Error(t, (&Options{Wheres: []Clause{{SQL: "e.guid = ?"}}}).Validate())
	assert.Error(t, (&Options{OrderBy: []Clause{{SQL: "x", Args: []interface{}{1}}}}).Validate())
}

func TestInClause(t *testing.T) {
	c := InClause("e.guid", int64(1), int64(2))
	assert.Equal(t, "e.guid IN (?, ?)", c.SQL)
	assert.Len(t, c.Args, 2)

	assert.Equal(t, "1 = 0", InClause("e.guid").SQL)
}
