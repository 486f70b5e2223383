package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
)

// ReconcileOptions configures reconciliation.
type ReconcileOptions struct {
	AutoApprove bool // Approve novel categories without a review decision
}

// Decision is a reviewer's answer for one group. The zero value accepts the
// suggestion with approval left to ReconcileOptions.AutoApprove.
type Decision struct {
	Approved    *bool  // Approval of a novel suggestion
	Category    string // Override primary category
	SubCategory string // Override subcategory, only read with Category
}

// Override reports whether the reviewer picked a category by hand.
func (d Decision) Override() bool {
	return strings.TrimSpace(d.Category) != ""
}

// Source records which rule produced an assignment.
type Source string

// Assignment sources.
const (
	SourceSuggestion Source = "suggestion"
	SourceApproved   Source = "approved"
	SourceOverride   Source = "override"
	SourceFallback   Source = "fallback"
	SourceCatchAll   Source = "catch-all"
)

// Assignment is the final category for every member of a group.
type Assignment struct {
	SubCategory *string
	Category    string
	Source      Source
}

// Reconciler turns suggestions and review decisions into assignments,
// registering new categories as it goes.
type Reconciler struct {
	taxonomy TaxonomyWriter
	logger   *slog.Logger
	opts     ReconcileOptions
}

// NewReconciler creates a reconciler.
func NewReconciler(taxonomy TaxonomyWriter, logger *slog.Logger, opts ReconcileOptions) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{taxonomy: taxonomy, logger: logger, opts: opts}
}

// Resolve decides the category of every group, in group order. Categories
// registered for one group are seen by the groups after it. Resolve never
// fails: anything that cannot be honoured degrades to the flow's catch-all.
func (r *Reconciler) Resolve(ctx context.Context, groups *Groups, suggestions map[string]model.Suggestion, decisions map[string]Decision) map[string]Assignment {
	out := make(map[string]Assignment, groups.Len())
	for _, key := range groups.Keys() {
		group, _ := groups.Get(key)
		flow := group.Representative.Flow

		var suggestion *model.Suggestion
		if s, ok := suggestions[key]; ok {
			suggestion = &s
		}
		out[key] = r.resolve(ctx, flow, suggestion, decisions[key])
	}
	return out
}

func (r *Reconciler) resolve(ctx context.Context, flow model.FlowDirection, suggestion *model.Suggestion, decision Decision) Assignment {
	var (
		primary string
		sub     *string
		source  Source
	)

	var suggested string
	var suggestedSub *string
	if suggestion != nil {
		suggested, suggestedSub = suggestion.SplitWith(r.taxonomy.Exists)
	}
	novel := suggested != "" && !r.taxonomy.Exists(suggested)

	approved := r.opts.AutoApprove
	if decision.Approved != nil {
		approved = *decision.Approved
	}

	switch {
	case decision.Override():
		primary = strings.TrimSpace(decision.Category)
		source = SourceOverride
		r.ensurePrimary(ctx, primary, flow)
		sub = model.NormalizeSub(model.StringPtr(decision.SubCategory))
		if sub != nil && !r.ensureSub(ctx, primary, *sub) {
			sub = nil
		}

	case suggested == "":
		primary = flow.CatchAll()
		source = SourceCatchAll

	case !novel:
		primary, sub = suggested, suggestedSub
		source = SourceSuggestion

	case approved:
		primary, sub = suggested, suggestedSub
		source = SourceApproved
		r.ensurePrimary(ctx, primary, flow)
		if sub != nil {
			r.ensureSub(ctx, primary, *sub)
		}

	default:
		primary = strings.TrimSpace(suggestion.Fallback)
		source = SourceFallback
	}

	if sub != nil && !r.taxonomy.ExistsSub(primary, *sub) {
		r.logger.Debug("Dropping unknown subcategory", "category", primary, "subcategory", *sub)
		sub = nil
	}

	if primary == "" || !r.taxonomy.Exists(primary) {
		if primary != "" {
			r.logger.Warn("Category no longer exists, using catch-all",
				"category", primary,
				"catch_all", flow.CatchAll())
		}
		primary = flow.CatchAll()
		sub = nil
		source = SourceCatchAll
		r.ensurePrimary(ctx, primary, flow)
	}

	return Assignment{Category: primary, SubCategory: sub, Source: source}
}

func (r *Reconciler) ensurePrimary(ctx context.Context, name string, flow model.FlowDirection) bool {
	if r.taxonomy.Exists(name) {
		return true
	}
	if err := r.taxonomy.RegisterPrimary(ctx, name, flow.IsIncome()); err != nil {
		r.logger.Warn("Failed to register category", "category", name, "error", err)
		return false
	}
	r.logger.Info("Registered new category", "category", name, "flow", flow)
	return true
}

func (r *Reconciler) ensureSub(ctx context.Context, parent, name string) bool {
	if r.taxonomy.ExistsSub(parent, name) {
		return true
	}
	if err := r.taxonomy.RegisterSub(ctx, parent, name); err != nil {
		r.logger.Warn("Failed to register subcategory", "category", parent, "subcategory", name, "error", err)
		return false
	}
	return true
}

// Apply sets the category of every record whose group key has an assignment,
// recomputing each record's own key. It returns the number of records updated.
func Apply(records []*model.Record, assignments map[string]Assignment) int {
	updated := 0
	for _, rec := range records {
		if rec == nil {
			continue
		}
		a, ok := assignments[GroupKey(rec)]
		if !ok {
			continue
		}
		rec.Category = a.Category
		rec.SetSubCategory(a.SubCategory)
		updated++
	}
	return updated
}
