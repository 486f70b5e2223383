package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/Veraticus/the-bills-must-flow/internal/engine"
	"github.com/Veraticus/the-bills-must-flow/internal/model"
)

// ErrInputTerminated is returned when input ends in the middle of a review.
var ErrInputTerminated = errors.New("input terminated")

// ReviewStats counts the answers given during review.
type ReviewStats struct {
	Accepted int
	Rejected int
	Custom   int
	Skipped  int
}

// Prompter implements the interactive review of classified groups.
type Prompter struct {
	writer io.Writer
	reader *NonBlockingReader
	recent []string
	stats  ReviewStats
	mu     sync.Mutex

	isCategory func(string) bool
}

// NewCLIPrompter creates a new CLI prompter with the given reader and writer.
func NewCLIPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}

	return &Prompter{
		reader: NewNonBlockingReader(reader),
		writer: writer,
	}
}

// SetCategoryLookup lets custom entries such as "Wi-Fi" that name an existing
// category be taken whole instead of split at the dash.
func (p *Prompter) SetCategoryLookup(isCategory func(string) bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.isCategory = isCategory
}

// ReviewGroups walks the reviewer through every group. Accepting a novel
// suggestion approves the new category, rejecting it uses the fallback, and
// skipping leaves the default behavior in place.
func (p *Prompter) ReviewGroups(ctx context.Context, items []engine.ReviewItem) (map[string]engine.Decision, error) {
	decisions := make(map[string]engine.Decision, len(items))
	if len(items) == 0 {
		return decisions, nil
	}

	if _, err := fmt.Fprintln(p.writer, FormatTitle(fmt.Sprintf("Reviewing %d groups", len(items)))); err != nil {
		return nil, fmt.Errorf("failed to write review title: %w", err)
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		title := fmt.Sprintf("[%d/%d] %s", i+1, len(items), item.Description)
		if _, err := fmt.Fprintln(p.writer, RenderBox(title, formatReviewItem(item))); err != nil {
			return nil, fmt.Errorf("failed to write review box: %w", err)
		}

		choices, err := p.writeOptions(item)
		if err != nil {
			return nil, err
		}

		choice, err := p.promptChoice(ctx, "Choice", choices)
		if err != nil {
			return nil, err
		}

		switch choice {
		case "a":
			if item.Novel {
				approved := true
				decisions[item.Key] = engine.Decision{Approved: &approved}
			}
			p.count(func(s *ReviewStats) { s.Accepted++ })
		case "r":
			approved := false
			decisions[item.Key] = engine.Decision{Approved: &approved}
			p.count(func(s *ReviewStats) { s.Rejected++ })
		case "c":
			primary, sub, err := p.promptCustomCategory(ctx)
			if err != nil {
				return nil, err
			}
			decisions[item.Key] = engine.Decision{Category: primary, SubCategory: sub}
			p.remember(model.JoinLabel(primary, model.StringPtr(sub)))
			p.count(func(s *ReviewStats) { s.Custom++ })
		case "s":
			p.count(func(s *ReviewStats) { s.Skipped++ })
		}
	}

	return decisions, nil
}

// Confirm asks a yes/no question. An empty answer means no.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	choice, err := p.promptChoice(ctx, question+" [y/N]", []string{"y", "n", "yes", "no", ""})
	if err != nil {
		return false, err
	}
	return choice == "y" || choice == "yes", nil
}

// Stats returns the review answers so far.
func (p *Prompter) Stats() ReviewStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Prompter) count(f func(*ReviewStats)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f(&p.stats)
}

func (p *Prompter) remember(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recent = append([]string{label}, p.recent...)
	if len(p.recent) > 10 {
		p.recent = p.recent[:10]
	}
}

func formatReviewItem(item engine.ReviewItem) string {
	details := fmt.Sprintf("%s Details:\n", InfoIcon) +
		fmt.Sprintf("  Flow: %s\n", item.Flow) +
		fmt.Sprintf("  Records: %d\n", item.Count) +
		fmt.Sprintf("  Total: ¥%s\n", item.Total.StringFixed(2))

	s := item.Suggestion
	if s == nil {
		return details + fmt.Sprintf("\n%s No suggestion; defaults to %s",
			WarningIcon, WarningStyle.Render(item.Flow.CatchAll()))
	}

	var suggestion string
	if item.Novel {
		suggestion = fmt.Sprintf("\n%s Suggests NEW category: %s", NewIcon, WarningStyle.Render(s.Label))
		if s.Fallback != "" {
			suggestion += fmt.Sprintf("\n  %s Fallback: %s", InfoIcon, s.Fallback)
		}
	} else {
		suggestion = fmt.Sprintf("\n%s Suggests: %s", RobotIcon, SuccessStyle.Render(s.Label))
	}
	if s.Reason != "" {
		suggestion += "\n  " + SubtleStyle.Render(s.Reason)
	}

	return details + suggestion
}

func (p *Prompter) writeOptions(item engine.ReviewItem) ([]string, error) {
	lines := make([]string, 0, 4)
	choices := make([]string, 0, 4)

	switch {
	case item.Suggestion == nil:
	case item.Novel:
		lines = append(lines, fmt.Sprintf("  [A] Create and use new category: %s", WarningStyle.Render(item.Suggestion.Label)))
		lines = append(lines, fmt.Sprintf("  [R] Reject and use %s", fallbackName(item)))
		choices = append(choices, "a", "r")
	default:
		lines = append(lines, fmt.Sprintf("  [A] Accept suggestion: %s", SuccessStyle.Render(item.Suggestion.Label)))
		choices = append(choices, "a")
	}
	lines = append(lines, "  [C] Enter custom category", "  [S] Skip (keep default)")
	choices = append(choices, "c", "s")

	if _, err := fmt.Fprintln(p.writer, FormatPrompt("Options:")); err != nil {
		return nil, fmt.Errorf("failed to write options prompt: %w", err)
	}
	if _, err := fmt.Fprintln(p.writer, strings.Join(lines, "\n")+"\n"); err != nil {
		return nil, fmt.Errorf("failed to write options: %w", err)
	}
	return choices, nil
}

func fallbackName(item engine.ReviewItem) string {
	if item.Suggestion != nil && strings.TrimSpace(item.Suggestion.Fallback) != "" {
		return item.Suggestion.Fallback
	}
	return item.Flow.CatchAll()
}

func (p *Prompter) promptChoice(ctx context.Context, prompt string, validChoices []string) (string, error) {
	for {
		if _, err := fmt.Fprintf(p.writer, "%s: ", FormatPrompt(prompt)); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		input, err := p.reader.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrInputTerminated
			}
			return "", err
		}

		choice := strings.ToLower(input)
		for _, valid := range validChoices {
			if choice == valid {
				return choice, nil
			}
		}

		if _, err := fmt.Fprintln(p.writer, FormatError("Invalid choice. Please try again.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

// promptCustomCategory reads "Category" or "Category - Subcategory".
func (p *Prompter) promptCustomCategory(ctx context.Context) (string, string, error) {
	p.mu.Lock()
	recent := append([]string(nil), p.recent...)
	isCategory := p.isCategory
	p.mu.Unlock()

	if len(recent) > 0 {
		if _, err := fmt.Fprintln(p.writer, FormatInfo("Recent categories:")); err != nil {
			return "", "", fmt.Errorf("failed to write recent categories header: %w", err)
		}
		seen := make(map[string]bool)
		for _, label := range recent {
			if seen[label] {
				continue
			}
			seen[label] = true
			if _, err := fmt.Fprintf(p.writer, "  • %s\n", label); err != nil {
				slog.Warn("Failed to write recent category", "error", err)
			}
		}
	}

	for {
		if _, err := fmt.Fprint(p.writer, FormatPrompt("Enter category (Category or Category - Sub)")); err != nil {
			return "", "", fmt.Errorf("failed to write category prompt: %w", err)
		}

		input, err := p.reader.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", "", ErrInputTerminated
			}
			return "", "", err
		}

		primary, sub := model.SplitLabelWith(input, isCategory)
		if primary == "" {
			if _, err := fmt.Fprintln(p.writer, FormatError("Category cannot be empty. Please try again.")); err != nil {
				slog.Warn("Failed to write empty category error", "error", err)
			}
			continue
		}

		if sub == nil {
			return primary, "", nil
		}
		return primary, *sub, nil
	}
}

// Ensure Prompter implements the engine.Prompter interface.
var _ engine.Prompter = (*Prompter)(nil)
