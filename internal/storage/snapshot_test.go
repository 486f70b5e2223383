package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock returns a clock that advances one second per call.
func fixedClock() func() time.Time {
	now := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newTestSnapshots(t *testing.T) (*SQLiteStorage, *Snapshots) {
	t.Helper()
	store := createTestStorage(t)
	snaps, err := NewSnapshots(store)
	require.NoError(t, err)
	snaps.now = fixedClock()
	return store, snaps
}

func TestSnapshots_CreateAndList(t *testing.T) {
	store, snaps := newTestSnapshots(t)
	ctx := context.Background()

	recorded := time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Add(ctx, testRecord("r1", 1, recorded, "餐饮")))
	_, err := store.AddHint(ctx, "滴滴 is always 交通")
	require.NoError(t, err)

	first, err := snaps.Create(ctx, "before-cleanup", "manual")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Records)
	assert.Equal(t, 1, first.Hints)
	assert.Equal(t, ExpectedSchemaVersion, first.SchemaVersion)
	assert.False(t, first.Auto)
	assert.Positive(t, first.Size)
	assert.FileExists(t, filepath.Join(snaps.Dir(), "before-cleanup.db"))

	second, err := snaps.Create(ctx, "", "")
	require.NoError(t, err)
	assert.Contains(t, second.ID, "snapshot-")

	list, err := snaps.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, "before-cleanup", list[1].ID)

	_, err = snaps.Create(ctx, "before-cleanup", "again")
	assert.ErrorIs(t, err, ErrSnapshotExists)
}

func TestSnapshots_InvalidID(t *testing.T) {
	_, snaps := newTestSnapshots(t)
	ctx := context.Background()

	for _, id := range []string{"../escape", `a\b`, "nested/id"} {
		_, err := snaps.Create(ctx, id, "")
		assert.ErrorIs(t, err, ErrInvalidSnapshotID, id)
	}

	_, err := snaps.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	assert.ErrorIs(t, snaps.Delete(ctx, "missing"), ErrSnapshotNotFound)
}

func TestSnapshots_Restore(t *testing.T) {
	store, snaps := newTestSnapshots(t)
	ctx := context.Background()
	dbPath := store.Path()

	recorded := time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Add(ctx, testRecord("r1", 1, recorded, "餐饮")))
	_, err := snaps.Create(ctx, "one-record", "")
	require.NoError(t, err)

	require.NoError(t, store.Add(ctx, testRecord("r2", 2, recorded, "交通")))
	require.NoError(t, snaps.Restore(ctx, "one-record"))

	reopened, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	records, err := reopened.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "r1", records[0].ID)
}

func TestSnapshots_RestoreRejectsCorruptCopy(t *testing.T) {
	_, snaps := newTestSnapshots(t)
	ctx := context.Background()

	_, err := snaps.Create(ctx, "broken", "")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(snaps.Dir(), "broken.db"), []byte("not a database"), 0600))

	err = snaps.Restore(ctx, "broken")
	assert.ErrorIs(t, err, ErrSnapshotCorrupted)
}

func TestSnapshots_AutoPrunes(t *testing.T) {
	_, snaps := newTestSnapshots(t)
	ctx := context.Background()

	manual, err := snaps.Create(ctx, "keep-me", "")
	require.NoError(t, err)

	var last *Snapshot
	for range MaxAutoSnapshots + 2 {
		last, err = snaps.Auto(ctx, "import")
		require.NoError(t, err)
		assert.True(t, last.Auto)
		assert.Equal(t, "before import", last.Description)
	}

	list, err := snaps.List(ctx)
	require.NoError(t, err)

	auto := 0
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
		if s.Auto {
			auto++
		}
	}
	assert.Equal(t, MaxAutoSnapshots, auto)
	assert.Contains(t, ids, manual.ID)
	assert.Equal(t, last.ID, list[0].ID)
}

func TestSnapshots_Delete(t *testing.T) {
	_, snaps := newTestSnapshots(t)
	ctx := context.Background()

	_, err := snaps.Create(ctx, "gone", "")
	require.NoError(t, err)
	require.NoError(t, snaps.Delete(ctx, "gone"))

	list, err := snaps.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoFileExists(t, filepath.Join(snaps.Dir(), "gone.db"))
}

func TestNewSnapshots_InMemory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = NewSnapshots(store)
	assert.ErrorIs(t, err, ErrInMemoryDatabase)
}
