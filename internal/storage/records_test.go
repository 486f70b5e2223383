package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStorage_SaveAllLoadAll(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	base := time.Date(2024, time.February, 1, 9, 30, 0, 123456789, time.UTC)
	lunch := "三餐"
	records := []model.Record{
		testRecord("a", 3, base, "餐饮"),
		testRecord("b", 5, base, "交通"),
		testRecord("c", 5, base.Add(time.Minute), "购物"),
		testRecord("d", 1, base, "餐饮"),
	}
	records[0].SubCategory = &lunch
	records[1].Flow = model.FlowIncome
	records[1].Amount = decimal.RequireFromString("1000.05")

	require.NoError(t, store.SaveAll(ctx, records))

	loaded, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 4)

	// Newest occurrence first, then newest entry first.
	ids := []string{loaded[0].ID, loaded[1].ID, loaded[2].ID, loaded[3].ID}
	assert.Equal(t, []string{"c", "b", "a", "d"}, ids)

	byID := make(map[string]model.Record)
	for _, r := range loaded {
		byID[r.ID] = r
	}
	for _, want := range records {
		got := byID[want.ID]
		assert.True(t, want.Amount.Equal(got.Amount), "amount for %s", want.ID)
		assert.Equal(t, want.Category, got.Category)
		assert.Equal(t, want.SubCategory, got.SubCategory)
		assert.True(t, want.OccurredOn.Equal(got.OccurredOn))
		assert.True(t, want.RecordedAt.Equal(got.RecordedAt))
		assert.Equal(t, want.Flow, got.Flow)
		assert.Equal(t, want.Note, got.Note)
	}
}

func TestSQLiteStorage_SaveAllReplaces(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.SaveAll(ctx, []model.Record{
		testRecord("old-1", 1, now, "餐饮"),
		testRecord("old-2", 2, now, "餐饮"),
	}))
	require.NoError(t, store.SaveAll(ctx, []model.Record{testRecord("new-1", 3, now, "交通")}))

	loaded, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "new-1", loaded[0].ID)

	require.NoError(t, store.SaveAll(ctx, nil))
	loaded, err = store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSQLiteStorage_SaveAllKeepsPriorStateOnFailure(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	original := []model.Record{testRecord("keep", 1, now, "餐饮")}
	require.NoError(t, store.SaveAll(ctx, original))

	tests := []struct {
		name    string
		records []model.Record
		wantErr error
	}{
		{
			name:    "duplicate ids",
			records: []model.Record{testRecord("x", 1, now, "餐饮"), testRecord("x", 2, now, "餐饮")},
			wantErr: ErrDuplicateID,
		},
		{
			name: "negative amount",
			records: func() []model.Record {
				r := testRecord("neg", 1, now, "餐饮")
				r.Amount = decimal.NewFromInt(-1)
				return []model.Record{r}
			}(),
			wantErr: model.ErrInvalidRecord,
		},
		{
			name: "unknown flow",
			records: func() []model.Record {
				r := testRecord("flow", 1, now, "餐饮")
				r.Flow = "refund"
				return []model.Record{r}
			}(),
			wantErr: model.ErrInvalidRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.SaveAll(ctx, tt.records)
			require.ErrorIs(t, err, tt.wantErr)

			loaded, err := store.LoadAll(ctx)
			require.NoError(t, err)
			require.Len(t, loaded, 1)
			assert.Equal(t, "keep", loaded[0].ID)
		})
	}
}

func TestSQLiteStorage_AddAndDeleteByID(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, testRecord("one", 1, time.Now(), "餐饮")))
	require.NoError(t, store.DeleteByID(ctx, "one"))

	err := store.DeleteByID(ctx, "one")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStorage_DeleteByCategory(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	coffee := "咖啡"
	lunch := "三餐"
	records := []model.Record{
		testRecord("1", 1, now, "X"),
		testRecord("2", 2, now, "X"),
		testRecord("3", 3, now, "X"),
		testRecord("4", 4, now, "餐饮"),
		testRecord("5", 5, now, "餐饮"),
		testRecord("6", 6, now, "餐饮"),
	}
	records[3].SubCategory = &coffee
	records[4].SubCategory = &coffee
	records[5].SubCategory = &lunch
	require.NoError(t, store.SaveAll(ctx, records))

	removed, err := store.DeleteByCategory(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	removed, err = store.DeleteBySubCategory(ctx, "餐饮", "咖啡")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	removed, err = store.DeleteByCategory(ctx, "nothing-here")
	require.NoError(t, err)
	assert.Zero(t, removed)

	loaded, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "6", loaded[0].ID)
}
