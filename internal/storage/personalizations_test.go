package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStorage_Hints(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	added, err := store.AddHint(ctx, "  瑞幸 is always 餐饮 - 咖啡  ")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = store.AddHint(ctx, "瑞幸 is always 餐饮 - 咖啡")
	require.NoError(t, err)
	assert.False(t, added, "duplicate hints are ignored")

	_, err = store.AddHint(ctx, "   ")
	require.ErrorIs(t, err, ErrEmptyString)

	added, err = store.AddHint(ctx, "滴滴 means 交通 - 打车")
	require.NoError(t, err)
	assert.True(t, added)

	hints, err := store.ListHints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"瑞幸 is always 餐饮 - 咖啡", "滴滴 means 交通 - 打车"}, hints)

	require.NoError(t, store.RemoveHint(ctx, "瑞幸 is always 餐饮 - 咖啡"))
	assert.ErrorIs(t, store.RemoveHint(ctx, "瑞幸 is always 餐饮 - 咖啡"), ErrNotFound)

	hints, err = store.ListHints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"滴滴 means 交通 - 打车"}, hints)
}
