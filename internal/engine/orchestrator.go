package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/Veraticus/the-bills-must-flow/internal/service"
)

// BatchOptions configures batch classification.
type BatchOptions struct {
	BatchSize int // Number of groups sent per classifier request
}

// DefaultBatchOptions returns the default batch size of 5.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{BatchSize: 5}
}

// Progress reports how far a run has got.
type Progress struct {
	Completed int // Groups covered by finished batches
	Total     int
	Batch     int // 1-based index of the batch just finished
	Batches   int
}

// RunState is the terminal state of a run.
type RunState int

const (
	// RunCompleted means every batch was submitted and merged.
	RunCompleted RunState = iota
	// RunFailed means a batch failed and the remaining batches were not sent.
	RunFailed
)

func (s RunState) String() string {
	if s == RunFailed {
		return "failed"
	}
	return "completed"
}

// RunResult is everything a run produced.
type RunResult struct {
	Err         error
	Suggestions map[string]model.Suggestion
	Missing     []string // Keys of finished batches that got no suggestion
	Progress    Progress
	State       RunState
}

// Finishable reports whether the run drained every batch.
func (r *RunResult) Finishable() bool {
	return r.State == RunCompleted
}

// Orchestrator sends groups to a classifier in fixed-size batches, one batch at a time.
type Orchestrator struct {
	classifier service.Classifier
	taxonomy   TaxonomyReader
	logger     *slog.Logger
	batchSize  int
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(classifier service.Classifier, taxonomy TaxonomyReader, logger *slog.Logger, opts BatchOptions) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchOptions().BatchSize
	}
	return &Orchestrator{
		classifier: classifier,
		taxonomy:   taxonomy,
		logger:     logger,
		batchSize:  opts.BatchSize,
	}
}

// Run classifies every group in first-seen order. Batch n+1 is only sent after
// batch n has been merged. The first failing batch ends the run; suggestions
// merged before it are kept. onProgress may be nil.
func (o *Orchestrator) Run(ctx context.Context, groups *Groups, personalizations []string, onProgress func(Progress)) *RunResult {
	keys := groups.Keys()
	batches := o.split(keys)

	result := &RunResult{
		Suggestions: make(map[string]model.Suggestion, len(keys)),
		Progress:    Progress{Total: len(keys), Batches: len(batches)},
		State:       RunCompleted,
	}
	if len(keys) == 0 {
		return result
	}

	snapshot := o.taxonomy.Snapshot()

	o.logger.Info("Starting batch classification",
		"groups", len(keys),
		"batches", len(batches),
		"batch_size", o.batchSize)

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return o.fail(result, i+1, err)
		}

		req := service.BatchRequest{
			Taxonomy:         snapshot,
			Items:            make([]service.BatchItem, 0, len(batch)),
			Personalizations: personalizations,
		}
		wanted := make(map[string]bool, len(batch))
		for _, key := range batch {
			group, _ := groups.Get(key)
			rep := group.Representative
			req.Items = append(req.Items, service.BatchItem{
				Amount:      rep.Amount,
				Description: rep.Note,
				Flow:        rep.Flow,
				Token:       key,
			})
			wanted[key] = true
		}

		suggestions, err := o.classifier.ClassifyBatch(ctx, req)
		if err != nil {
			return o.fail(result, i+1, err)
		}

		for token, s := range suggestions {
			if !wanted[token] {
				o.logger.Debug("Dropping suggestion for unknown token", "token", token)
				continue
			}
			result.Suggestions[token] = s
		}
		for _, key := range batch {
			if _, ok := result.Suggestions[key]; !ok {
				result.Missing = append(result.Missing, key)
			}
		}

		result.Progress.Completed += len(batch)
		result.Progress.Batch = i + 1
		if onProgress != nil {
			onProgress(result.Progress)
		}
	}

	o.logger.Info("Batch classification finished",
		"suggested", len(result.Suggestions),
		"missing", len(result.Missing))

	return result
}

func (o *Orchestrator) fail(result *RunResult, batch int, err error) *RunResult {
	result.State = RunFailed
	result.Err = fmt.Errorf("batch %d of %d: %w", batch, result.Progress.Batches, err)
	o.logger.Error("Batch classification stopped",
		"batch", batch,
		"completed", result.Progress.Completed,
		"total", result.Progress.Total,
		"error", err)
	return result
}

func (o *Orchestrator) split(keys []string) [][]string {
	batches := make([][]string, 0, (len(keys)+o.batchSize-1)/o.batchSize)
	for start := 0; start < len(keys); start += o.batchSize {
		end := min(start+o.batchSize, len(keys))
		batches = append(batches, keys[start:end])
	}
	return batches
}
