package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haebom/tariff/internal/domain/news"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/haebom/tariff/pkg/errors"
)

func item(link, title string, published time.Time) news.Item {
	return news.NewItem(news.Article{Title: title, Link: link, PublishDate: &published}, published)
}

func seedStore(t *testing.T) (*NewsStore, []news.Item) {
	t.Helper()
	c, _ := newTestClient(t, "tariff:")
	store := NewNewsStore(c, logging.NewNopLogger())

	items := []news.Item{
		item("https://a/1", "China raises duties - Reuters", time.Date(2025, 4, 10, 8, 0, 0, 0, time.UTC)),
		item("https://a/2", "Canada answers tariffs - Reuters", time.Date(2025, 4, 11, 9, 0, 0, 0, time.UTC)),
		item("https://a/3", "Markets slide on trade war - Financial Times", time.Date(2025, 4, 11, 12, 0, 0, 0, time.UTC)),
	}
	for _, it := range items {
		require.NoError(t, store.Save(context.Background(), it))
	}
	return store, items
}

func TestNewsStore_SaveGetExists(t *testing.T) {
	store, items := seedStore(t)
	ctx := context.Background()

	ok, err := store.Exists(ctx, items[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.Get(ctx, items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "China raises duties", got.Title)
	assert.Equal(t, "Reuters", got.Source)
	assert.Equal(t, "2025-04-10", got.DateStr)

	_, err = store.Get(ctx, "missing")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestNewsStore_IndexesAndOrdering(t *testing.T) {
	store, items := seedStore(t)
	ctx := context.Background()

	ids, err := store.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{items[2].ID, items[1].ID, items[0].ID}, ids)

	day, err := store.IDsByDate(ctx, "2025-04-11")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{items[1].ID, items[2].ID}, day)

	bySource, err := store.IDsBySource(ctx, "reuters")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{items[0].ID, items[1].ID}, bySource)

	keys, err := store.SourceKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"financial-times", "reuters"}, keys)

	older, err := store.IDsOlderThan(ctx, time.Date(2025, 4, 11, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{items[0].ID}, older, "cutoff is exclusive")
}

func TestNewsStore_GetManySkipsMissing(t *testing.T) {
	store, items := seedStore(t)
	got, err := store.GetMany(context.Background(), []string{items[1].ID, "gone", items[0].ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, items[1].ID, got[0].ID)
	assert.Equal(t, items[0].ID, got[1].ID)

	empty, err := store.GetMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestNewsStore_DeleteDropsIndexes(t *testing.T) {
	store, items := seedStore(t)
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, items[2]))

	ok, err := store.Exists(ctx, items[2].ID)
	require.NoError(t, err)
	assert.False(t, ok)

	day, _ := store.IDsByDate(ctx, "2025-04-11")
	assert.Equal(t, []string{items[1].ID}, day)

	keys, _ := store.SourceKeys(ctx)
	assert.Equal(t, []string{"reuters"}, keys, "empty source index is dropped")

	ids, _ := store.IDs(ctx)
	assert.NotContains(t, ids, items[2].ID)
}

func TestNewsStore_UndatedItemUsesTimestamp(t *testing.T) {
	c, _ := newTestClient(t, "")
	store := NewNewsStore(c, logging.NewNopLogger())
	ctx := context.Background()

	saved := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	it := news.NewItem(news.Article{Title: "Undated - Wire", Link: "https://a/u"}, saved)
	require.NoError(t, store.Save(ctx, it))

	older, err := store.IDsOlderThan(ctx, saved.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, []string{it.ID}, older)
}
