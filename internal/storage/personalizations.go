package storage

import (
	"context"
	"fmt"
	"strings"
)

// ListHints returns the classifier personalization hints in the order they were added.
func (s *SQLiteStorage) ListHints(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT hint FROM personalizations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query personalizations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hints := []string{}
	for rows.Next() {
		var hint string
		if err := rows.Scan(&hint); err != nil {
			return nil, fmt.Errorf("failed to scan personalization: %w", err)
		}
		hints = append(hints, hint)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating personalizations: %w", err)
	}
	return hints, nil
}

// AddHint stores a trimmed hint. Duplicates are ignored and reported as false.
func (s *SQLiteStorage) AddHint(ctx context.Context, hint string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	hint = strings.TrimSpace(hint)
	if err := validateString(hint, "hint"); err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO personalizations (hint) VALUES (?)`, hint)
	if err != nil {
		return false, fmt.Errorf("failed to add personalization: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check personalization insert: %w", err)
	}
	return affected > 0, nil
}

// RemoveHint deletes a hint.
func (s *SQLiteStorage) RemoveHint(ctx context.Context, hint string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM personalizations WHERE hint = ?`, strings.TrimSpace(hint))
	if err != nil {
		return fmt.Errorf("failed to remove personalization: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: hint %q", ErrNotFound, hint)
	}
	return nil
}
