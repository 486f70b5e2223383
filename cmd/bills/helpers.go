package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/the-bills-must-flow/internal/config"
	"github.com/Veraticus/the-bills-must-flow/internal/storage"
	"github.com/Veraticus/the-bills-must-flow/internal/taxonomy"
	"github.com/spf13/viper"
)

// initStorage opens the database and applies migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initTaxonomy loads the category tree, seeding the defaults on first use.
func initTaxonomy(ctx context.Context, store taxonomy.Store) (*taxonomy.Service, error) {
	tax := taxonomy.New(store, slog.Default())
	if err := tax.Load(ctx); err != nil {
		return nil, err
	}
	return tax, nil
}

// scratchTaxonomy copies tax into memory so registrations are discarded.
func scratchTaxonomy(ctx context.Context, tax *taxonomy.Service) (*taxonomy.Service, error) {
	hints, err := tax.Hints(ctx)
	if err != nil {
		return nil, err
	}
	return initTaxonomy(ctx, taxonomy.NewMemoryStore(tax.Categories(), hints))
}
