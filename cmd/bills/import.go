package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/Veraticus/the-bills-must-flow/internal/cli"
	"github.com/Veraticus/the-bills-must-flow/internal/common"
	"github.com/Veraticus/the-bills-must-flow/internal/engine"
	"github.com/Veraticus/the-bills-must-flow/internal/importer"
	"github.com/Veraticus/the-bills-must-flow/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const maxSkippedShown = 5

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import and categorize a bank or e-wallet export",
		Long: `Import a CSV or Excel export, group identical merchants, ask the
classifier for categories in batches of five, let you review the suggestions and
append the categorized records to the database.

Nothing is saved unless the whole import finishes. The database is snapshotted
first; see 'bills snapshot list' to undo an import.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().BoolP("yes", "y", false, "accept suggestions without interactive review")
	cmd.Flags().Bool("dry-run", false, "classify and show the result without saving")
	cmd.Flags().Bool("offline", false, "use the classifier trained on your own records instead of an LLM")
	cmd.Flags().Bool("auto-approve", false, "create suggested new categories without asking")
	cmd.Flags().String("encoding", "auto", "CSV encoding (auto, gbk, utf-8)")
	cmd.Flags().Int("batch-size", engine.DefaultBatchOptions().BatchSize, "groups per classifier request")
	cmd.Flags().Bool("no-snapshot", false, "skip the database snapshot taken before saving")

	_ = viper.BindPFlag("import.yes", cmd.Flags().Lookup("yes"))
	_ = viper.BindPFlag("import.dry_run", cmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("import.auto_approve", cmd.Flags().Lookup("auto-approve"))
	_ = viper.BindPFlag("import.encoding", cmd.Flags().Lookup("encoding"))
	_ = viper.BindPFlag("import.batch_size", cmd.Flags().Lookup("batch-size"))
	_ = viper.BindPFlag("import.no_snapshot", cmd.Flags().Lookup("no-snapshot"))

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	result, err := parseImportFile(ctx, args[0])
	if err != nil {
		return err
	}
	reportSkipped(out, result)
	if len(result.Records) == 0 {
		_, err := fmt.Fprintln(out, cli.FormatWarning("No valid records found in "+args[0]+"; nothing to import."))
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	tax, err := initTaxonomy(ctx, store)
	if err != nil {
		return err
	}
	hints, err := tax.Hints(ctx)
	if err != nil {
		return err
	}

	dryRun := viper.GetBool("import.dry_run")
	importTax := tax
	if dryRun {
		if importTax, err = scratchTaxonomy(ctx, tax); err != nil {
			return err
		}
	}

	offline, _ := cmd.Flags().GetBool("offline")
	classifier, release, err := createClassifier(ctx, store, offline)
	if err != nil {
		return err
	}
	defer release()

	if !dryRun && !viper.GetBool("import.no_snapshot") {
		snapshotBeforeImport(ctx, out, store)
	}

	skipReview := viper.GetBool("import.yes")
	prompter := cli.NewCLIPrompter(cmd.InOrStdin(), out)
	prompter.SetCategoryLookup(importTax.Exists)
	eng := engine.NewWithConfig(store, classifier, importTax, prompter, slog.Default(), engine.Config{
		Batch:     engine.BatchOptions{BatchSize: viper.GetInt("import.batch_size")},
		Reconcile: engine.ReconcileOptions{AutoApprove: viper.GetBool("import.auto_approve")},
	})

	interrupts := cli.NewInterruptHandler(out)
	ctx = interrupts.HandleInterrupts(ctx, true)

	groups := engine.GroupRecords(result.Records).Len()
	progress := cli.NewProgressReporter(cmd.ErrOrStderr(), groups)

	summary, err := eng.Import(ctx, result.Records, engine.ImportOptions{
		OnProgress:       progress.Update,
		Personalizations: hints,
		SkipReview:       skipReview,
		DryRun:           dryRun,
		OnFailure: func(run *engine.RunResult) bool {
			progress.Abort()
			if _, err := fmt.Fprintln(out, cli.FormatError(fmt.Sprintf(
				"Classification stopped after %d of %d groups: %v", run.Progress.Completed, run.Progress.Total, run.Err))); err != nil {
				slog.Warn("Failed to write failure message", "error", err)
			}
			if skipReview {
				return false
			}
			ok, err := prompter.Confirm(ctx, "Import anyway, filing unclassified groups under the catch-all category?")
			return err == nil && ok
		},
	})
	if err != nil {
		if interrupts.WasInterrupted() {
			return nil
		}
		if errors.Is(err, engine.ErrAborted) {
			return common.NewUserError("Import aborted; nothing was saved", err)
		}
		return err
	}

	return printImportSummary(out, summary, dryRun)
}

// snapshotBeforeImport copies the database so a bad import can be undone.
// Failing to snapshot does not stop the import.
func snapshotBeforeImport(ctx context.Context, out io.Writer, store *storage.SQLiteStorage) {
	snaps, err := storage.NewSnapshots(store)
	if err == nil {
		var snap *storage.Snapshot
		if snap, err = snaps.Auto(ctx, "import"); err == nil {
			slog.Debug("Snapshot taken before import", "id", snap.ID)
			return
		}
	}
	slog.Warn("Failed to snapshot database before import", "error", err)
	if _, werr := fmt.Fprintln(out, cli.FormatWarning("Could not snapshot the database before importing: "+err.Error())); werr != nil {
		slog.Warn("Failed to write snapshot warning", "error", werr)
	}
}

// parseImportFile turns parser failures into messages for the user.
func parseImportFile(ctx context.Context, path string) (*importer.Result, error) {
	encoding, err := importer.ParseEncoding(viper.GetString("import.encoding"))
	if err != nil {
		return nil, common.NewUserError("Unknown encoding; use auto, gbk or utf-8", err)
	}

	result, err := importer.NewParser(importer.Options{Encoding: encoding}).ParseFile(ctx, path)
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, importer.ErrUnsupportedFormat):
		return nil, common.NewUserError("Unsupported file type; export your bills as .csv, .xlsx or .xls", err)
	case errors.Is(err, importer.ErrHeaderNotFound):
		return nil, common.NewUserError("No recognizable header row (date, amount, direction) in "+path, err)
	case errors.Is(err, importer.ErrLegacyWorkbook):
		return nil, common.NewUserError("This workbook format cannot be read; open it and save it as .xlsx", err)
	default:
		return nil, err
	}
}

func reportSkipped(out io.Writer, result *importer.Result) {
	if len(result.Skipped) == 0 {
		return
	}
	msg := fmt.Sprintf("Skipped %d unreadable rows", len(result.Skipped))
	for i, row := range result.Skipped {
		if i == maxSkippedShown {
			msg += fmt.Sprintf("\n  ... and %d more", len(result.Skipped)-maxSkippedShown)
			break
		}
		msg += fmt.Sprintf("\n  line %d: %s", row.Line, row.Reason)
	}
	if _, err := fmt.Fprintln(out, cli.FormatWarning(msg)); err != nil {
		slog.Warn("Failed to write skipped rows", "error", err)
	}
}

func printImportSummary(out io.Writer, summary *engine.ImportSummary, dryRun bool) error {
	sources := make([]string, 0, len(summary.BySource))
	for source := range summary.BySource {
		sources = append(sources, string(source))
	}
	sort.Strings(sources)

	body := fmt.Sprintf("Records: %d\nGroups: %d\n", len(summary.Records), summary.Groups)
	for _, source := range sources {
		body += fmt.Sprintf("  %-10s %d\n", source, summary.BySource[engine.Source(source)])
	}

	title := "Import complete"
	switch {
	case dryRun:
		title = "Dry run (nothing saved)"
	case !summary.Saved:
		title = "Nothing to import"
	}

	_, err := fmt.Fprintln(out, cli.RenderBox(title, body))
	return err
}
