// Package classification provides an offline classifier trained on the user's
// own categorized history.
package classification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/Veraticus/the-bills-must-flow/internal/service"
	"github.com/jbrukh/bayesian"
)

// ErrInsufficientHistory is returned when fewer than two distinct categories have been recorded.
var ErrInsufficientHistory = errors.New("not enough categorized records to train the offline classifier")

// HistorySource supplies the records the classifier learns from.
type HistorySource interface {
	LoadAll(ctx context.Context) ([]model.Record, error)
}

var _ service.Classifier = (*Bayes)(nil)

// Bayes suggests the category whose past records share the most terms with an
// item's description. It never proposes new categories.
type Bayes struct {
	source  HistorySource
	logger  *slog.Logger
	cl      *bayesian.Classifier
	classes []bayesian.Class
	labels    []string
	primaries []string
	flows     []model.FlowDirection
	trained   bool
	mu      sync.Mutex
}

// NewBayes creates a classifier that trains lazily on the first batch.
func NewBayes(source HistorySource, logger *slog.Logger) *Bayes {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bayes{source: source, logger: logger}
}

// Train (re)builds the model from every categorized record in the source.
func (b *Bayes) Train(ctx context.Context) error {
	records, err := b.source.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load training records: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	index := make(map[string]int)
	var (
		classes   []bayesian.Class
		labels    []string
		primaries []string
		flows     []model.FlowDirection
		docs      []model.Record
	)
	for _, r := range records {
		if r.Category == "" || r.Category == model.UnclassifiedCategory {
			continue
		}
		key := classKey(r)
		if _, ok := index[key]; !ok {
			index[key] = len(classes)
			classes = append(classes, bayesian.Class(key))
			labels = append(labels, model.JoinLabel(r.Category, r.SubCategory))
			primaries = append(primaries, r.Category)
			flows = append(flows, r.Flow)
		}
		docs = append(docs, r)
	}

	if len(classes) < 2 {
		return fmt.Errorf("%w: found %d", ErrInsufficientHistory, len(classes))
	}

	cl := bayesian.NewClassifierTfIdf(classes...)
	for _, r := range docs {
		cl.Learn(Terms(r.Note), bayesian.Class(classKey(r)))
	}
	cl.ConvertTermsFreqToTfIdf()

	b.cl = cl
	b.classes = classes
	b.labels = labels
	b.primaries = primaries
	b.flows = flows
	b.trained = true

	b.logger.Info("Trained offline classifier", "classes", len(classes), "records", len(docs))
	return nil
}

// ClassifyBatch suggests the best-scoring existing category of the same flow for
// each item. Items with no usable terms or no same-flow class are left out.
func (b *Bayes) ClassifyBatch(ctx context.Context, req service.BatchRequest) (map[string]model.Suggestion, error) {
	b.mu.Lock()
	trained := b.trained
	b.mu.Unlock()
	if !trained {
		if err := b.Train(ctx); err != nil {
			return nil, err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]model.Suggestion, len(req.Items))
	for _, item := range req.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		terms := Terms(item.Description)
		if len(terms) == 0 {
			continue
		}

		pos, confidence, ok := b.best(terms, item.Flow)
		if !ok {
			continue
		}

		out[item.Token] = model.Suggestion{
			Label:    b.labels[pos],
			Fallback: b.primaries[pos],
			Reason:   fmt.Sprintf("history match %.0f%%", confidence*100),
		}
	}
	return out, nil
}

// best returns the highest-scoring class whose flow matches, with its softmax
// confidence among same-flow classes.
func (b *Bayes) best(terms []string, flow model.FlowDirection) (int, float64, bool) {
	scores, _, _ := b.cl.LogScores(terms)

	bestPos := -1
	maxScore := math.Inf(-1)
	for i, score := range scores {
		if b.flows[i] != flow {
			continue
		}
		if score > maxScore {
			maxScore = score
			bestPos = i
		}
	}
	if bestPos < 0 {
		return 0, 0, false
	}

	var sumExp float64
	for i, score := range scores {
		if b.flows[i] == flow {
			sumExp += math.Exp(score - maxScore)
		}
	}
	return bestPos, 1 / sumExp, true
}

// classKey keeps an income and an expense category of the same name apart.
func classKey(r model.Record) string {
	return string(r.Flow) + "/" + model.JoinLabel(r.Category, r.SubCategory)
}

// Terms splits a description into lowercase words plus the character bigrams of
// each word, so unspaced Chinese merchant names still share terms.
func Terms(desc string) []string {
	desc = strings.TrimSuffix(strings.TrimSpace(desc), strings.TrimSpace(model.ImportedSuffix))
	desc = strings.ToLower(desc)

	words := strings.FieldsFunc(desc, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})

	terms := make([]string, 0, len(words)*3)
	for _, w := range words {
		terms = append(terms, w)
		runes := []rune(w)
		if len(runes) < 3 {
			continue
		}
		for i := 0; i+1 < len(runes); i++ {
			terms = append(terms, string(runes[i:i+2]))
		}
	}
	return terms
}
