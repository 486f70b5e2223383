package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Veraticus/the-bills-must-flow/internal/engine"
	"github.com/schollz/progressbar/v3"
)

// ProgressReporter renders batch classification progress as a bar.
type ProgressReporter struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
	last   engine.Progress
}

// NewProgressReporter creates a reporter for total groups.
func NewProgressReporter(writer io.Writer, total int) *ProgressReporter {
	if writer == nil {
		writer = os.Stderr
	}

	r := &ProgressReporter{writer: writer}
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Classifying groups...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return r
}

// Update moves the bar to p.Completed. It is shaped to be passed as an
// engine.ImportOptions.OnProgress callback.
func (r *ProgressReporter) Update(p engine.Progress) {
	r.last = p
	r.bar.Describe(fmt.Sprintf("[cyan][bold]Batch %d/%d[reset]", p.Batch, p.Batches))
	if err := r.bar.Set(p.Completed); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Last returns the most recent progress.
func (r *ProgressReporter) Last() engine.Progress {
	return r.last
}

// Abort stops the bar without completing it.
func (r *ProgressReporter) Abort() {
	if err := r.bar.Exit(); err != nil {
		slog.Warn("Failed to stop progress bar", "error", err)
	}
	if _, err := fmt.Fprintln(r.writer); err != nil {
		slog.Warn("Failed to write newline after progress bar", "error", err)
	}
}
