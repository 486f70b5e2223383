// Package storage provides the data persistence layer for the bills application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
)

// Validation errors.
var (
	ErrNilContext  = errors.New("context cannot be nil")
	ErrEmptyString = errors.New("string parameter cannot be empty")
	ErrNotFound    = errors.New("not found")
	ErrDuplicateID = errors.New("duplicate record id")
	ErrCorruptRow  = errors.New("corrupt row")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRecords validates every record and rejects duplicate IDs.
func validateRecords(records []model.Record) error {
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return fmt.Errorf("record at index %d: %w", i, err)
		}
		if _, dup := seen[records[i].ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, records[i].ID)
		}
		seen[records[i].ID] = struct{}{}
	}
	return nil
}
