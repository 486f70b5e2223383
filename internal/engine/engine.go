// Package engine implements the import pipeline: grouping freshly parsed
// records, classifying the groups in sequential batches and reconciling the
// suggestions into final categories.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/Veraticus/the-bills-must-flow/internal/service"
	"github.com/shopspring/decimal"
)

// ErrAborted is returned when a failed classification run is not continued.
var ErrAborted = errors.New("import aborted")

// Taxonomy is everything the pipeline needs from the category tree.
type Taxonomy interface {
	TaxonomyReader
	TaxonomyWriter
}

// Engine runs imports against a record store and a taxonomy.
type Engine struct {
	store        service.RecordStore
	taxonomy     Taxonomy
	prompter     Prompter
	orchestrator *Orchestrator
	reconciler   *Reconciler
	logger       *slog.Logger
}

// Config holds configuration options for the engine.
type Config struct {
	Batch     BatchOptions
	Reconcile ReconcileOptions
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{Batch: DefaultBatchOptions()}
}

// New creates an engine with the default configuration.
func New(store service.RecordStore, classifier service.Classifier, taxonomy Taxonomy, prompter Prompter, logger *slog.Logger) *Engine {
	return NewWithConfig(store, classifier, taxonomy, prompter, logger, DefaultConfig())
}

// NewWithConfig creates an engine with a custom configuration. prompter may be
// nil, in which case every suggestion is accepted as is.
func NewWithConfig(store service.RecordStore, classifier service.Classifier, taxonomy Taxonomy, prompter Prompter, logger *slog.Logger, config Config) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:        store,
		taxonomy:     taxonomy,
		prompter:     prompter,
		orchestrator: NewOrchestrator(classifier, taxonomy, logger, config.Batch),
		reconciler:   NewReconciler(taxonomy, logger, config.Reconcile),
		logger:       logger,
	}
}

// ImportOptions tunes a single import.
type ImportOptions struct {
	OnProgress func(Progress)
	// OnFailure decides whether a failed run continues with the suggestions
	// gathered so far. Groups without one land in the catch-all. A nil
	// OnFailure aborts.
	OnFailure        func(*RunResult) bool
	Personalizations []string
	SkipReview       bool
	DryRun           bool
}

// ImportSummary describes what an import did.
type ImportSummary struct {
	Run         *RunResult
	Assignments map[string]Assignment
	BySource    map[Source]int // Records per assignment source
	Records     []*model.Record
	Groups      int
	Saved       bool
}

// Import classifies records and, unless DryRun is set, appends them to the
// stored records in one bulk replace.
func (e *Engine) Import(ctx context.Context, records []*model.Record, opts ImportOptions) (*ImportSummary, error) {
	summary := &ImportSummary{
		Records:  records,
		BySource: make(map[Source]int),
	}
	if len(records) == 0 {
		return summary, nil
	}

	groups := GroupRecords(records)
	summary.Groups = groups.Len()

	e.logger.Info("Starting import",
		"records", len(records),
		"groups", groups.Len())

	run := e.orchestrator.Run(ctx, groups, opts.Personalizations, opts.OnProgress)
	summary.Run = run
	if !run.Finishable() {
		if ctx.Err() != nil || opts.OnFailure == nil || !opts.OnFailure(run) {
			return summary, fmt.Errorf("%w: %w", ErrAborted, run.Err)
		}
		e.logger.Warn("Continuing with partial classification",
			"classified", len(run.Suggestions),
			"groups", groups.Len())
	}

	var decisions map[string]Decision
	if !opts.SkipReview && e.prompter != nil {
		var err error
		decisions, err = e.prompter.ReviewGroups(ctx, e.reviewItems(groups, run.Suggestions))
		if err != nil {
			return summary, fmt.Errorf("review failed: %w", err)
		}
	}

	summary.Assignments = e.reconciler.Resolve(ctx, groups, run.Suggestions, decisions)
	Apply(records, summary.Assignments)
	for _, key := range groups.Keys() {
		summary.BySource[summary.Assignments[key].Source] += len(groups.Members(key))
	}

	if opts.DryRun {
		return summary, nil
	}

	existing, err := e.store.LoadAll(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to load existing records: %w", err)
	}
	all := make([]model.Record, 0, len(existing)+len(records))
	all = append(all, existing...)
	for _, r := range records {
		all = append(all, *r)
	}
	if err := e.store.SaveAll(ctx, all); err != nil {
		return summary, fmt.Errorf("failed to save records: %w", err)
	}
	summary.Saved = true

	e.logger.Info("Import saved",
		"imported", len(records),
		"total", len(all))

	return summary, nil
}

// reviewItems builds the reviewer's view of each group, in group order.
func (e *Engine) reviewItems(groups *Groups, suggestions map[string]model.Suggestion) []ReviewItem {
	items := make([]ReviewItem, 0, groups.Len())
	for _, key := range groups.Keys() {
		group, _ := groups.Get(key)

		total := decimal.Zero
		for _, m := range group.Members {
			total = total.Add(m.Amount)
		}

		item := ReviewItem{
			Key:         key,
			Description: CoreDescription(group.Representative.Note),
			Flow:        group.Representative.Flow,
			Total:       total,
			Count:       len(group.Members),
		}
		if s, ok := suggestions[key]; ok {
			item.Suggestion = &s
			primary, _ := s.SplitWith(e.taxonomy.Exists)
			item.Novel = primary != "" && !e.taxonomy.Exists(primary)
		}
		items = append(items, item)
	}
	return items
}
