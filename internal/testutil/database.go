// Package testutil provides shared fixtures for tests that need a migrated database
// and a loaded category taxonomy.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/Veraticus/the-bills-must-flow/internal/storage"
	"github.com/Veraticus/the-bills-must-flow/internal/taxonomy"
	"github.com/shopspring/decimal"
)

// TestDB is an in-memory database with its taxonomy already loaded.
type TestDB struct {
	Storage  *storage.SQLiteStorage
	Taxonomy *taxonomy.Service
	t        *testing.T
}

// TestDBOptions configures SetupTestDBWithOptions.
type TestDBOptions struct {
	CustomSetup func(context.Context, *storage.SQLiteStorage) error
	Categories  []model.Category
	Records     []model.Record
	Hints       []string
}

// SetupTestDB creates a migrated in-memory database seeded with the default categories.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.Taxonomy.Exists("餐饮") // true
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupTestDBWithOptions creates a test database with extra categories, records and hints.
// Extra categories are added after the defaults are seeded.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	tax := taxonomy.New(store, nil)
	if err := tax.Load(ctx); err != nil {
		t.Fatalf("failed to load taxonomy: %v", err)
	}

	for _, cat := range opts.Categories {
		if err := tax.RegisterPrimary(ctx, cat.Name, cat.Flow.IsIncome()); err != nil {
			t.Fatalf("failed to seed category %q: %v", cat.Name, err)
		}
		for _, sub := range cat.Subcategories {
			if err := tax.RegisterSub(ctx, cat.Name, sub.Name); err != nil {
				t.Fatalf("failed to seed subcategory %s/%s: %v", cat.Name, sub.Name, err)
			}
		}
	}

	for _, hint := range opts.Hints {
		if _, err := tax.AddHint(ctx, hint); err != nil {
			t.Fatalf("failed to seed hint %q: %v", hint, err)
		}
	}

	if len(opts.Records) > 0 {
		if err := store.SaveAll(ctx, opts.Records); err != nil {
			t.Fatalf("failed to seed records: %v", err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{
		Storage:  store,
		Taxonomy: tax,
		t:        t,
	}
}

// MustLoadRecords returns every stored record or fails the test.
func (db *TestDB) MustLoadRecords() []model.Record {
	db.t.Helper()
	records, err := db.Storage.LoadAll(context.Background())
	if err != nil {
		db.t.Fatalf("failed to load records: %v", err)
	}
	return records
}

// Record builds a valid expense record dated in January 2024.
func Record(id string, day int, amount, category, note string) model.Record {
	return model.Record{
		ID:         id,
		Amount:     decimal.RequireFromString(amount),
		Category:   category,
		OccurredOn: time.Date(2024, time.January, day, 0, 0, 0, 0, time.UTC),
		Flow:       model.FlowExpense,
		Note:       note,
		RecordedAt: time.Date(2024, time.February, 1, 12, 0, day, 0, time.UTC),
	}
}
