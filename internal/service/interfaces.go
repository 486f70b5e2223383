// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/shopspring/decimal"
)

// RecordStore defines the contract for record persistence.
type RecordStore interface {
	// LoadAll returns every record ordered by occurrence date, then entry time, newest first.
	LoadAll(ctx context.Context) ([]model.Record, error)
	// SaveAll replaces the stored record set atomically.
	SaveAll(ctx context.Context, records []model.Record) error
	Add(ctx context.Context, record model.Record) error
	DeleteByID(ctx context.Context, id string) error
	DeleteByCategory(ctx context.Context, category string) (int, error)
	DeleteBySubCategory(ctx context.Context, parent, sub string) (int, error)
}

// PrimaryCategory is a primary category name with its flow direction.
type PrimaryCategory struct {
	Name     string
	IsIncome bool
}

// Taxonomy is the two-level category tree consulted and extended by the pipeline.
type Taxonomy interface {
	ListPrimary() []PrimaryCategory
	ListSub(parent string) []string
	Exists(name string) bool
	ExistsSub(parent, name string) bool
	// RegisterPrimary adds a primary category. Registering an existing name is a no-op.
	RegisterPrimary(ctx context.Context, name string, isIncome bool) error
	// RegisterSub adds a subcategory. Registering an existing name is a no-op.
	RegisterSub(ctx context.Context, parent, name string) error
	IsUserDefined(name string) bool
	IsUserDefinedSub(parent, name string) bool
	Snapshot() model.TaxonomySnapshot
}

// BatchItem is the minimal view of a classification group sent to the classifier.
type BatchItem struct {
	Amount      decimal.Decimal
	Description string
	Flow        model.FlowDirection
	Token       string
}

// BatchRequest is one classifier call.
type BatchRequest struct {
	Taxonomy         model.TaxonomySnapshot
	Items            []BatchItem
	Personalizations []string
}

// Classifier suggests categories for a batch of items, keyed by item token.
// Tokens missing from the result mean no suggestion was produced for them.
type Classifier interface {
	ClassifyBatch(ctx context.Context, req BatchRequest) (map[string]model.Suggestion, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
