package gorm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailyinspo/inspo/pkg/models"
)

func testIdeaStore(t *testing.T) (*IdeaStore, *Store, func()) {
	t.Helper()
	store, cleanup := testStore(t)
	return NewIdeaStore(store), store, cleanup
}

func sampleIdea(title string, tags ...models.Tag) *models.Idea {
	return &models.Idea{
		Title:           title,
		Summary:         "A summary for " + title,
		Description:     "A longer description for " + title,
		SupportingLogic: "Because reasons.",
		Tags:            tags,
	}
}

func TestIdeaStore_InsertAndGet(t *testing.T) {
	ideas, _, cleanup := testIdeaStore(t)
	defer cleanup()
	ctx := context.Background()

	idea := sampleIdea("Expense tracker",
		models.Tag{Category: "industry", Value: "fintech"},
		models.Tag{Category: "complexity", Value: "mvp"},
	)
	idea.MarketData = &models.MarketData{
		MarketSize:           "$1B",
		Competitors:          []string{"Mint", "YNAB"},
		TechnicalFeasibility: "High",
		DevelopmentTimeline:  "3 months",
	}

	id, err := ideas.Insert(ctx, idea)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	got, err := ideas.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Expense tracker", got.Title)
	assert.NotEmpty(t, got.GeneratedAt)
	assert.Len(t, got.Tags, 2)
	require.NotNil(t, got.MarketData)
	assert.Equal(t, "$1B", got.MarketData.MarketSize)
	assert.Equal(t, []string{"Mint", "YNAB"}, got.MarketData.Competitors)
}

func TestIdeaStore_GetByID_NotFound(t *testing.T) {
	ideas, _, cleanup := testIdeaStore(t)
	defer cleanup()

	got, err := ideas.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIdeaStore_TagsDeduplicatedAcrossIdeas(t *testing.T) {
	ideas, store, cleanup := testIdeaStore(t)
	defer cleanup()
	ctx := context.Background()

	fintech := models.Tag{Category: "industry", Value: "fintech"}
	_, err := ideas.Insert(ctx, sampleIdea("First", fintech))
	require.NoError(t, err)
	_, err = ideas.Insert(ctx, sampleIdea("Second", fintech))
	require.NoError(t, err)

	var tagCount int64
	err = store.DB.Raw("SELECT COUNT(*) FROM tags WHERE category='industry' AND value='fintech'").
		Scan(&tagCount).Error
	require.NoError(t, err)
	assert.Equal(t, int64(1), tagCount)
}

func TestIdeaStore_GetWithFilters_TagOR(t *testing.T) {
	ideas, _, cleanup := testIdeaStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := ideas.Insert(ctx, sampleIdea("Fintech idea",
		models.Tag{Category: "industry", Value: "fintech"}))
	require.NoError(t, err)
	_, err = ideas.Insert(ctx, sampleIdea("MVP idea",
		models.Tag{Category: "complexity", Value: "mvp"}))
	require.NoError(t, err)
	_, err = ideas.Insert(ctx, sampleIdea("Untagged idea"))
	require.NoError(t, err)

	// Either category matching is enough.
	got, err := ideas.GetWithFilters(ctx, models.IdeaFilters{
		Industry:   []string{"fintech"},
		Complexity: []string{"mvp"},
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// No filters returns everything, untagged included.
	all, err := ideas.GetWithFilters(ctx, models.IdeaFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestIdeaStore_GetWithFilters_Search(t *testing.T) {
	ideas, _, cleanup := testIdeaStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := ideas.Insert(ctx, &models.Idea{
		Title:           "Recipe planner",
		Summary:         "Plans weekly meals",
		Description:     "Generates shopping lists from recipes",
		SupportingLogic: "x",
	})
	require.NoError(t, err)
	_, err = ideas.Insert(ctx, sampleIdea("Unrelated"))
	require.NoError(t, err)

	got, err := ideas.GetWithFilters(ctx, models.IdeaFilters{Search: "shopping"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Recipe planner", got[0].Title)
}

func TestIdeaStore_GetWithFilters_DateRangeAndOrdering(t *testing.T) {
	ideas, _, cleanup := testIdeaStore(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Now()
	old := sampleIdea("Old")
	old.GeneratedAtEpoch = now.Add(-48 * time.Hour).UnixMilli()
	old.GeneratedAt = now.Add(-48 * time.Hour).Format(time.RFC3339)
	_, err := ideas.Insert(ctx, old)
	require.NoError(t, err)

	fresh := sampleIdea("Fresh")
	_, err = ideas.Insert(ctx, fresh)
	require.NoError(t, err)

	got, err := ideas.GetWithFilters(ctx, models.IdeaFilters{
		DateFromEpoch: now.Add(-24 * time.Hour).UnixMilli(),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Fresh", got[0].Title)

	// Newest first.
	all, err := ideas.GetWithFilters(ctx, models.IdeaFilters{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Fresh", all[0].Title)
	assert.Equal(t, "Old", all[1].Title)
}

func TestIdeaStore_Pagination(t *testing.T) {
	ideas, _, cleanup := testIdeaStore(t)
	defer cleanup()
	ctx := context.Background()

	epoch := time.Now().UnixMilli()
	for i := 0; i < 5; i++ {
		idea := sampleIdea("Idea")
		idea.GeneratedAtEpoch = epoch
		_, err := ideas.Insert(ctx, idea)
		require.NoError(t, err)
	}

	page1, err := ideas.GetWithFilters(ctx, models.IdeaFilters{Limit: 2, Offset: 0})
	require.NoError(t, err)
	page2, err := ideas.GetWithFilters(ctx, models.IdeaFilters{Limit: 2, Offset: 2})
	require.NoError(t, err)

	require.Len(t, page1, 2)
	require.Len(t, page2, 2)
	assert.NotEqual(t, page1[0].ID, page2[0].ID)

	// Equal epochs fall back to insertion order, so pages never overlap.
	assert.Less(t, page1[1].ID, page2[0].ID)
}

func TestIdeaStore_CountWithFilters(t *testing.T) {
	ideas, _, cleanup := testIdeaStore(t)
	defer cleanup()
	ctx := context.Background()

	// Idea carrying two matching tag values must count once.
	_, err := ideas.Insert(ctx, sampleIdea("Multi",
		models.Tag{Category: "technology", Value: "go"},
		models.Tag{Category: "technology", Value: "sqlite"}))
	require.NoError(t, err)
	_, err = ideas.Insert(ctx, sampleIdea("Other"))
	require.NoError(t, err)

	count, err := ideas.CountWithFilters(ctx, models.IdeaFilters{
		Technology: []string{"go", "sqlite"},
		Limit:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	total, err := ideas.CountWithFilters(ctx, models.IdeaFilters{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestIdeaStore_GetRandom(t *testing.T) {
	ideas, _, cleanup := testIdeaStore(t)
	defer cleanup()
	ctx := context.Background()

	got, err := ideas.GetRandom(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ideas.Insert(ctx, sampleIdea("Only one"))
	require.NoError(t, err)

	got, err = ideas.GetRandom(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Only one", got.Title)
}

func TestIdeaStore_GetAvailableTags(t *testing.T) {
	ideas, _, cleanup := testIdeaStore(t)
	defer cleanup()
	ctx := context.Background()

	id, err := ideas.Insert(ctx, sampleIdea("Tagged",
		models.Tag{Category: "industry", Value: "health"},
		models.Tag{Category: "industry", Value: "fintech"},
		models.Tag{Category: "complexity", Value: "mvp"}))
	require.NoError(t, err)

	tags, err := ideas.GetAvailableTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fintech", "health"}, tags["industry"])
	assert.Equal(t, []string{"mvp"}, tags["complexity"])

	// Tags of deleted ideas disappear from the summary.
	deleted, err := ideas.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	tags, err = ideas.GetAvailableTags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestIdeaStore_DeleteCascades(t *testing.T) {
	ideas, store, cleanup := testIdeaStore(t)
	defer cleanup()
	ctx := context.Background()

	idea := sampleIdea("Doomed", models.Tag{Category: "industry", Value: "gaming"})
	idea.MarketData = &models.MarketData{MarketSize: "small"}
	id, err := ideas.Insert(ctx, idea)
	require.NoError(t, err)

	deleted, err := ideas.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	var links, market int64
	require.NoError(t, store.DB.Raw("SELECT COUNT(*) FROM idea_tags WHERE idea_id = ?", id).Scan(&links).Error)
	require.NoError(t, store.DB.Raw("SELECT COUNT(*) FROM market_data WHERE idea_id = ?", id).Scan(&market).Error)
	assert.Zero(t, links)
	assert.Zero(t, market)

	// Second delete reports nothing removed.
	deleted, err = ideas.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestIdeaStore_RecentTitles(t *testing.T) {
	ideas, _, cleanup := testIdeaStore(t)
	defer cleanup()
	ctx := context.Background()

	for _, title := range []string{"A", "B", "C"} {
		_, err := ideas.Insert(ctx, sampleIdea(title))
		require.NoError(t, err)
	}

	cards, err := ideas.RecentTitles(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, cards, 2)
}
