package engine

import (
	"context"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/shopspring/decimal"
)

// TaxonomyReader provides the category tree sent with each batch.
type TaxonomyReader interface {
	Snapshot() model.TaxonomySnapshot
}

// TaxonomyWriter is the part of the taxonomy reconciliation consults and extends.
type TaxonomyWriter interface {
	Exists(name string) bool
	ExistsSub(parent, name string) bool
	RegisterPrimary(ctx context.Context, name string, isIncome bool) error
	RegisterSub(ctx context.Context, parent, name string) error
}

// ReviewItem is one group as presented to a reviewer.
type ReviewItem struct {
	Suggestion  *model.Suggestion // nil when the classifier gave none
	Key         string
	Description string
	Flow        model.FlowDirection
	Total       decimal.Decimal
	Count       int
	Novel       bool // Suggested primary is not in the taxonomy yet
}

// Prompter defines the contract for reviewing suggestions before they are applied.
type Prompter interface {
	ReviewGroups(ctx context.Context, items []ReviewItem) (map[string]Decision, error)
}
