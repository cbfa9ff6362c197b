package metadata

import (
	"testing"

	"github.com/conduit-lang/metastore/internal/orm/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleEntityUpdate(t *testing.T) {
	tests := []struct {
		name        string
		independent [2]string
		wantAccess  int64
	}{
		{"dependent entity follows parent", [2]string{"group", ""}, entity.AccessPrivate},
		{"independent subtype keeps access", [2]string{"object", "blog"}, entity.AccessPublic},
		{"independent wildcard keeps access", [2]string{"object", AnySubtype}, entity.AccessPublic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewIndependence()
			registry.Register(tt.independent[0], tt.independent[1])
			f := newFixture(t, WithIndependence(registry))
			ctx := adminCtx()

			e := &entity.Entity{Type: "object", Subtype: "blog", AccessID: entity.AccessPublic}
			guid, err := f.table.Create(ctx, e)
			require.NoError(t, err)

			for _, name := range []string{"a", "b", "c"} {
				_, err := f.store.Create(ctx, CreateParams{EntityGUID: guid, Name: name, Value: name, AccessID: entity.AccessPublic})
				require.NoError(t, err)
			}
			_, err = f.store.GetForEntity(ctx, guid)
			require.NoError(t, err)

			e.AccessID = entity.AccessPrivate
			require.NoError(t, f.table.Update(ctx, e))

			assert.Equal(t, 3, f.countRows(t, "entity_guid = ? AND access_id = ?", guid, tt.wantAccess))

			records, err := f.store.GetForEntity(ctx, guid)
			require.NoError(t, err)
			for _, r := range records {
				assert.Equal(t, tt.wantAccess, r.AccessID, "cached records reflect the cascade")
			}
		})
	}
}

func TestHandleEntityUpdate_IgnoresOtherPayloads(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	assert.True(t, f.store.HandleEntityUpdate(ctx, "update", "metadata", &Record{ID: 1}))
	assert.True(t, f.store.HandleEntityUpdate(ctx, "update", "object", nil))
	assert.True(t, f.store.HandleEntityUpdate(ctx, "update", "object", &entity.Entity{}))
}
