package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/shopspring/decimal"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05.000000000"
)

const selectRecords = `
	SELECT id, amount, category, sub_category, occurred_on, flow, note, recorded_at
	FROM records`

// LoadAll returns every record ordered by occurrence date then entry time, newest first.
func (s *SQLiteStorage) LoadAll(ctx context.Context) ([]model.Record, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return queryRecords(ctx, s.db, selectRecords+` ORDER BY occurred_on DESC, recorded_at DESC, id`)
}

// SaveAll replaces the stored record set in a single transaction.
// A failure leaves the previous record set untouched.
func (s *SQLiteStorage) SaveAll(ctx context.Context, records []model.Record) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecords(records); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
			return fmt.Errorf("failed to clear records: %w", err)
		}
		return insertRecords(ctx, tx, records)
	})
	if err != nil {
		return err
	}

	slog.Debug("saved records", "count", len(records))
	return nil
}

// Add stores a single new record.
func (s *SQLiteStorage) Add(ctx context.Context, record model.Record) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := record.Validate(); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertRecords(ctx, tx, []model.Record{record})
	})
}

// DeleteByID removes one record.
func (s *SQLiteStorage) DeleteByID(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count deleted records: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: record %s", ErrNotFound, id)
	}
	return nil
}

// DeleteByCategory removes every record in the category and returns how many were removed.
func (s *SQLiteStorage) DeleteByCategory(ctx context.Context, category string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(category, "category"); err != nil {
		return 0, err
	}
	return deleteRecordsByCategory(ctx, s.db, category)
}

// DeleteBySubCategory removes every record in parent/sub and returns how many were removed.
func (s *SQLiteStorage) DeleteBySubCategory(ctx context.Context, parent, sub string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(parent, "parent"); err != nil {
		return 0, err
	}
	if err := validateString(sub, "sub"); err != nil {
		return 0, err
	}
	return deleteRecordsBySubCategory(ctx, s.db, parent, sub)
}

func deleteRecordsByCategory(ctx context.Context, q queryable, category string) (int, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM records WHERE category = ?`, category)
	if err != nil {
		return 0, fmt.Errorf("failed to delete records for category %q: %w", category, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted records: %w", err)
	}
	return int(affected), nil
}

func deleteRecordsBySubCategory(ctx context.Context, q queryable, parent, sub string) (int, error) {
	result, err := q.ExecContext(ctx,
		`DELETE FROM records WHERE category = ? AND sub_category = ?`, parent, sub)
	if err != nil {
		return 0, fmt.Errorf("failed to delete records for %s/%s: %w", parent, sub, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted records: %w", err)
	}
	return int(affected), nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, records []model.Record) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (id, amount, category, sub_category, occurred_on, flow, note, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		var sub sql.NullString
		if r.SubCategory != nil {
			sub = sql.NullString{String: *r.SubCategory, Valid: true}
		}

		recordedAt := r.RecordedAt
		if recordedAt.IsZero() {
			recordedAt = time.Now()
		}

		_, err := stmt.ExecContext(ctx,
			r.ID,
			r.Amount.String(),
			r.Category,
			sub,
			r.OccurredOn.Format(dateLayout),
			string(r.Flow),
			r.Note,
			recordedAt.UTC().Format(timestampLayout),
		)
		if err != nil {
			return fmt.Errorf("failed to insert record %s: %w", r.ID, err)
		}
	}
	return nil
}

func queryRecords(ctx context.Context, q queryable, query string, args ...any) ([]model.Record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []model.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (model.Record, error) {
	var (
		r                    model.Record
		amount, occurred, at string
		flow                 string
		sub                  sql.NullString
	)

	if err := rows.Scan(&r.ID, &amount, &r.Category, &sub, &occurred, &flow, &r.Note, &at); err != nil {
		return r, fmt.Errorf("failed to scan record: %w", err)
	}

	var err error
	if r.Amount, err = decimal.NewFromString(amount); err != nil {
		return r, fmt.Errorf("%w: record %s amount %q: %w", ErrCorruptRow, r.ID, amount, err)
	}
	if r.OccurredOn, err = time.Parse(dateLayout, occurred); err != nil {
		return r, fmt.Errorf("%w: record %s date %q: %w", ErrCorruptRow, r.ID, occurred, err)
	}
	if r.RecordedAt, err = time.Parse(timestampLayout, at); err != nil {
		return r, fmt.Errorf("%w: record %s timestamp %q: %w", ErrCorruptRow, r.ID, at, err)
	}
	r.Flow = model.FlowDirection(flow)
	if sub.Valid {
		s := sub.String
		r.SubCategory = &s
	}
	return r, nil
}
