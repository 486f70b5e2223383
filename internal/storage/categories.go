package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
)

// LoadCategories returns all categories in creation order with their subcategories.
func (s *SQLiteStorage) LoadCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, flow, emoji, custom
		FROM categories
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	index := make(map[string]int)
	for rows.Next() {
		var (
			cat  model.Category
			flow string
		)
		if err := rows.Scan(&cat.Name, &flow, &cat.Emoji, &cat.Custom); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		cat.Flow = model.FlowDirection(flow)
		index[cat.Name] = len(categories)
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	subRows, err := s.db.QueryContext(ctx, `
		SELECT parent, name, emoji, custom
		FROM subcategories
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subcategories: %w", err)
	}
	defer func() { _ = subRows.Close() }()

	for subRows.Next() {
		var (
			parent string
			sub    model.Subcategory
		)
		if err := subRows.Scan(&parent, &sub.Name, &sub.Emoji, &sub.Custom); err != nil {
			return nil, fmt.Errorf("failed to scan subcategory: %w", err)
		}
		i, ok := index[parent]
		if !ok {
			slog.Warn("Subcategory references missing parent", "parent", parent, "name", sub.Name)
			continue
		}
		categories[i].Subcategories = append(categories[i].Subcategories, sub)
	}
	if err := subRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subcategories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// SaveCategories inserts categories and their subcategories in one transaction.
// Existing names are left untouched.
func (s *SQLiteStorage) SaveCategories(ctx context.Context, categories []model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, cat := range categories {
			if err := insertCategory(ctx, tx, cat); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveCategory inserts a single category with its subcategories. Existing names are left untouched.
func (s *SQLiteStorage) SaveCategory(ctx context.Context, cat model.Category) error {
	return s.SaveCategories(ctx, []model.Category{cat})
}

// SaveSubcategory inserts a subcategory under parent. Existing names are left untouched.
func (s *SQLiteStorage) SaveSubcategory(ctx context.Context, parent string, sub model.Subcategory) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(parent, "parent"); err != nil {
		return err
	}
	return insertSubcategory(ctx, s.db, parent, sub)
}

// DeleteCategory removes a category, its subcategories and every record filed under it.
// It returns the number of records removed.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, name string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(name, "name"); err != nil {
		return 0, err
	}

	var removed int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		n, err := deleteRecordsByCategory(ctx, tx, name)
		if err != nil {
			return err
		}
		removed = n

		result, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE name = ?`, name)
		if err != nil {
			return fmt.Errorf("failed to delete category %q: %w", name, err)
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return fmt.Errorf("%w: category %q", ErrNotFound, name)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("Deleted category", "name", name, "records_removed", removed)
	return removed, nil
}

// DeleteSubcategory removes a subcategory and every record filed under it.
// It returns the number of records removed.
func (s *SQLiteStorage) DeleteSubcategory(ctx context.Context, parent, name string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(parent, "parent"); err != nil {
		return 0, err
	}
	if err := validateString(name, "name"); err != nil {
		return 0, err
	}

	var removed int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		n, err := deleteRecordsBySubCategory(ctx, tx, parent, name)
		if err != nil {
			return err
		}
		removed = n

		result, err := tx.ExecContext(ctx,
			`DELETE FROM subcategories WHERE parent = ? AND name = ?`, parent, name)
		if err != nil {
			return fmt.Errorf("failed to delete subcategory %s/%s: %w", parent, name, err)
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return fmt.Errorf("%w: subcategory %s/%s", ErrNotFound, parent, name)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("Deleted subcategory", "parent", parent, "name", name, "records_removed", removed)
	return removed, nil
}

func insertCategory(ctx context.Context, q queryable, cat model.Category) error {
	if err := validateString(cat.Name, "name"); err != nil {
		return err
	}
	emoji := cat.Emoji
	if emoji == "" {
		emoji = model.DefaultEmoji
	}

	_, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO categories (name, flow, emoji, custom)
		VALUES (?, ?, ?, ?)`,
		cat.Name, string(cat.Flow), emoji, cat.Custom)
	if err != nil {
		return fmt.Errorf("failed to insert category %q: %w", cat.Name, err)
	}

	for _, sub := range cat.Subcategories {
		if err := insertSubcategory(ctx, q, cat.Name, sub); err != nil {
			return err
		}
	}
	return nil
}

func insertSubcategory(ctx context.Context, q queryable, parent string, sub model.Subcategory) error {
	if err := validateString(sub.Name, "name"); err != nil {
		return err
	}
	emoji := sub.Emoji
	if emoji == "" {
		emoji = model.DefaultEmoji
	}

	_, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO subcategories (parent, name, emoji, custom)
		VALUES (?, ?, ?, ?)`,
		parent, sub.Name, emoji, sub.Custom)
	if err != nil {
		return fmt.Errorf("failed to insert subcategory %s/%s: %w", parent, sub.Name, err)
	}
	return nil
}
