package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStorage_SaveAndLoadCategories(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCategories(ctx, []model.Category{
		{
			Name:  "餐饮",
			Flow:  model.FlowExpense,
			Emoji: "🍔",
			Subcategories: []model.Subcategory{
				{Name: "三餐", Emoji: "🍚"},
				{Name: "咖啡"},
			},
		},
		{Name: "工资", Flow: model.FlowIncome, Emoji: "💰"},
	}))

	// Re-inserting an existing name is ignored.
	require.NoError(t, store.SaveCategory(ctx, model.Category{Name: "餐饮", Flow: model.FlowIncome, Custom: true}))
	require.NoError(t, store.SaveSubcategory(ctx, "餐饮", model.Subcategory{Name: "奶茶", Custom: true}))
	require.NoError(t, store.SaveSubcategory(ctx, "餐饮", model.Subcategory{Name: "奶茶", Custom: true}))

	cats, err := store.LoadCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)

	assert.Equal(t, "餐饮", cats[0].Name)
	assert.Equal(t, model.FlowExpense, cats[0].Flow)
	assert.False(t, cats[0].Custom)
	assert.Equal(t, []string{"三餐", "咖啡", "奶茶"}, cats[0].SubNames())
	assert.Equal(t, model.DefaultEmoji, cats[0].Subcategories[1].Emoji)
	assert.True(t, cats[0].Subcategories[2].Custom)

	assert.Equal(t, "工资", cats[1].Name)
	assert.Equal(t, model.FlowIncome, cats[1].Flow)
	assert.Empty(t, cats[1].Subcategories)
}

func TestSQLiteStorage_DeleteCategoryCascades(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.SaveCategories(ctx, []model.Category{
		{Name: "X", Flow: model.FlowExpense, Custom: true, Subcategories: []model.Subcategory{{Name: "x1"}}},
		{Name: "餐饮", Flow: model.FlowExpense},
	}))
	require.NoError(t, store.SaveAll(ctx, []model.Record{
		testRecord("1", 1, now, "X"),
		testRecord("2", 2, now, "X"),
		testRecord("3", 3, now, "X"),
		testRecord("4", 4, now, "餐饮"),
	}))

	removed, err := store.DeleteCategory(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	cats, err := store.LoadCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "餐饮", cats[0].Name)

	var subCount int
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subcategories WHERE parent = 'X'`).Scan(&subCount))
	assert.Zero(t, subCount)

	loaded, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	_, err = store.DeleteCategory(ctx, "X")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStorage_DeleteSubcategory(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCategory(ctx, model.Category{
		Name:          "餐饮",
		Flow:          model.FlowExpense,
		Subcategories: []model.Subcategory{{Name: "三餐"}, {Name: "夜宵", Custom: true}},
	}))

	snack := "夜宵"
	r := testRecord("late", 1, time.Now(), "餐饮")
	r.SubCategory = &snack
	require.NoError(t, store.SaveAll(ctx, []model.Record{r, testRecord("plain", 2, time.Now(), "餐饮")}))

	removed, err := store.DeleteSubcategory(ctx, "餐饮", "夜宵")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	cats, err := store.LoadCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, []string{"三餐"}, cats[0].SubNames())

	_, err = store.DeleteSubcategory(ctx, "餐饮", "夜宵")
	assert.ErrorIs(t, err, ErrNotFound)
}
