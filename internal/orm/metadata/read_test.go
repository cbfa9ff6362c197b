package metadata

import (
	"testing"

	"github.com/conduit-lang/metastore/internal/orm/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedCatalog creates three public blog posts with color, size and rank
func seedCatalog(t *testing.T, f *fixture) {
	t.Helper()
	ctx := adminCtx()

	rows := []struct {
		guid  int64
		color string
		size  string
		rank  int
	}{
		{10, "red", "small", 3},
		{11, "blue", "large", 20},
		{12, "Red", "large", 100},
	}
	for _, r := range rows {
		f.seedEntity(t, r.guid, "object", "blog", entity.AccessPublic)
		require.NoError(t, f.store.CreateFromMap(ctx, r.guid, map[string]interface{}{
			"color": r.color,
			"size":  r.size,
			"rank":  r.rank,
		}, CreateParams{AccessID: entity.AccessPublic}))
	}
	f.seedEntity(t, 13, "user", "", entity.AccessPublic)
	_, err := f.store.Create(ctx, CreateParams{EntityGUID: 13, Name: "color", Value: "red", AccessID: entity.AccessPublic})
	require.NoError(t, err)
}

func TestGetAll(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f)
	ctx := adminCtx()

	t.Run("names and values are independent", func(t *testing.T) {
		records, err := f.store.GetAll(ctx, MustQuery(Names("color", "size"), Values("large")))
		require.NoError(t, err)
		require.Len(t, records, 2)
		for _, r := range records {
			assert.Equal(t, "size", r.Name)
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		records, err := f.store.GetAll(ctx, MustQuery(Names("color"), Values("RED"), CaseSensitive(false)))
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})

	t.Run("names stay case sensitive", func(t *testing.T) {
		records, err := f.store.GetAll(ctx, MustQuery(Names("COLOR"), CaseSensitive(false)))
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("entity type", func(t *testing.T) {
		records, err := f.store.GetAll(ctx, MustQuery(Names("color"), TypeIn{"user"}))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, int64(13), records[0].EntityGUID)
	})

	t.Run("default limit", func(t *testing.T) {
		small := newFixture(t, WithDefaultLimit(2))
		seedCatalog(t, small)

		records, err := small.store.GetAll(ctx, MustQuery(Names("color")))
		require.NoError(t, err)
		assert.Len(t, records, 2)

		records, err = small.store.GetAll(ctx, MustQuery(Names("color"), Limit(NoLimit)))
		require.NoError(t, err)
		assert.Len(t, records, 4)
	})

	t.Run("rejects calculations", func(t *testing.T) {
		_, err := f.store.GetAll(ctx, MustQuery(Count{}))
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})
}

func TestGetAll_OrderByOtherMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := adminCtx()

	for _, e := range []struct {
		guid     int64
		priority int
		tag      string
	}{
		{1, 2, "z"},
		{2, 1, "a"},
		{3, 3, "m"},
	} {
		f.seedEntity(t, e.guid, "object", "task", entity.AccessPublic)
		require.NoError(t, f.store.CreateFromMap(ctx, e.guid, map[string]interface{}{
			"priority": e.priority,
			"tag":      e.tag,
		}, CreateParams{AccessID: entity.AccessPublic}))
	}
	f.seedEntity(t, 4, "object", "task", entity.AccessPublic)
	_, err := f.store.Create(ctx, CreateParams{EntityGUID: 4, Name: "tag", Value: "untriaged", AccessID: entity.AccessPublic})
	require.NoError(t, err)

	records, err := f.store.GetAll(ctx, MustQuery(Names("tag"), OrderByMetadata("priority", Asc, ValueTypeInteger)))
	require.NoError(t, err)
	require.Len(t, records, 3, "entity 4 has no priority")
	assert.Equal(t, []int64{2, 1, 3}, entityGUIDs(records))
	for _, r := range records {
		assert.Equal(t, "tag", r.Name)
	}

	records, err = f.store.GetAll(ctx, MustQuery(Names("tag"), OrderByMetadata("priority", Desc, ValueTypeInteger)))
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, entityGUIDs(records))

	list, err := f.store.GetEntities(ctx, MustQuery(Names("tag"), OrderByMetadata("priority", Asc, ValueTypeInteger)))
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 3}, guids(list))
}

func entityGUIDs(records []*Record) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.EntityGUID
	}
	return out
}

func TestCalculate(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f)
	ctx := adminCtx()

	tests := []struct {
		calc Calculation
		want float64
	}{
		{CalcCount, 3},
		{CalcSum, 123},
		{CalcMin, 3},
		{CalcMax, 100},
		{CalcAvg, 41},
	}
	for _, tt := range tests {
		t.Run(string(tt.calc), func(t *testing.T) {
			got, err := f.store.Calculate(ctx, MustQuery(Names("rank"), tt.calc))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}

	got, err := f.store.Calculate(ctx, MustQuery(Names("missing"), CalcSum))
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = f.store.Calculate(ctx, MustQuery(Names("rank")))
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func guids(list []*entity.Entity) []int64 {
	out := make([]int64, len(list))
	for i, e := range list {
		out[i] = e.GUID
	}
	return out
}

func TestGetEntities(t *testing.T) {
	f := newFixture(t)
	seedCatalog(t, f)
	ctx := adminCtx()

	t.Run("pairs with and", func(t *testing.T) {
		list, err := f.store.GetEntities(ctx, MustQuery(NameValue("size", "large"), NameValue("color", "blue")))
		require.NoError(t, err)
		assert.Equal(t, []int64{11}, guids(list))
	})

	t.Run("pairs with or", func(t *testing.T) {
		list, err := f.store.GetEntities(ctx, MustQuery(
			NameValue("size", "small"),
			NameValue("color", "blue"),
			PairsOperator(Or),
			OrderByMetadata("rank", Asc, ValueTypeInteger),
		))
		require.NoError(t, err)
		assert.Equal(t, []int64{10, 11}, guids(list))
	})

	t.Run("numeric comparison", func(t *testing.T) {
		list, err := f.store.GetEntities(ctx, MustQuery(
			Compare("rank", CmpGreaterOrEqual, 20),
			OrderByMetadata("rank", Desc, ValueTypeInteger),
		))
		require.NoError(t, err)
		assert.Equal(t, []int64{12, 11}, guids(list))
	})

	t.Run("text ordering differs from integer ordering", func(t *testing.T) {
		list, err := f.store.GetEntities(ctx, MustQuery(
			TypeIn{"object"},
			OrderByMetadata("rank", Asc, ValueTypeText),
		))
		require.NoError(t, err)
		assert.Equal(t, []int64{12, 11, 10}, guids(list))
	})

	t.Run("entities appear once", func(t *testing.T) {
		list, err := f.store.GetEntities(ctx, MustQuery(Names("color", "size", "rank")))
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{10, 11, 12, 13}, guids(list))
	})

	t.Run("count", func(t *testing.T) {
		n, err := f.store.CalculateEntities(ctx, MustQuery(Names("color"), Values("red", "Red"), Count{}))
		require.NoError(t, err)
		assert.Equal(t, float64(3), n)

		_, err = f.store.CalculateEntities(ctx, MustQuery(Names("rank"), CalcSum))
		assert.ErrorIs(t, err, ErrInvalidQuery)

		_, err = f.store.GetEntities(ctx, MustQuery(Count{}))
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})
}
