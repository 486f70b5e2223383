package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-bills-must-flow/internal/cli"
	"github.com/Veraticus/the-bills-must-flow/internal/common"
	"github.com/Veraticus/the-bills-must-flow/internal/config"
	"github.com/Veraticus/the-bills-must-flow/internal/export"
	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/Veraticus/the-bills-must-flow/internal/sheets"
	"github.com/spf13/cobra"
)

// newSheetsWriter is replaced in tests.
var newSheetsWriter = func(ctx context.Context, cfg sheets.Config) (sheets.ReportWriter, error) {
	return sheets.NewWriter(ctx, cfg, slog.Default())
}

func exportCmd() *cobra.Command {
	var (
		format string
		output string
		from   string
		to     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records with per-category totals",
		Long: `Export records to an Excel workbook or a Google spreadsheet. Both get a
Summary sheet with totals per flow, category and subcategory, and a Bills sheet
listing every record.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			start, end, err := parseRange(from, to)
			if err != nil {
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

			records, err := store.LoadAll(ctx)
			if err != nil {
				return fmt.Errorf("failed to load records: %w", err)
			}
			report := export.BuildReport(filterRange(records, start, end), tax)

			switch format {
			case "xlsx":
				if output == "" {
					output = fmt.Sprintf("bills-%s.xlsx", time.Now().Format(dateLayout))
				}
				if err := export.WriteXLSX(output, report); err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Wrote %d records to %s", len(report.Records), output)))
				return err

			case "sheets":
				cfg, err := config.LoadSheetsConfig()
				if err != nil {
					return common.NewUserError("Google Sheets is not configured; run 'bills auth sheets' or set sheets.* in the config", err)
				}
				writer, err := newSheetsWriter(ctx, *cfg)
				if err != nil {
					return err
				}
				id, err := writer.Write(ctx, report)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf(
					"Wrote %d records to https://docs.google.com/spreadsheets/d/%s", len(report.Records), id)))
				return err

			default:
				return common.NewUserError(fmt.Sprintf("Unknown export format %q; use xlsx or sheets", format), nil)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "xlsx", "export format (xlsx, sheets)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "workbook path for xlsx (default bills-<today>.xlsx)")
	cmd.Flags().StringVar(&from, "from", "", "first date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last date to include (YYYY-MM-DD)")

	return cmd
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if from != "" {
		if start, err = time.Parse(dateLayout, from); err != nil {
			return start, end, common.NewUserError("--from must look like 2024-01-31", err)
		}
	}
	if to != "" {
		if end, err = time.Parse(dateLayout, to); err != nil {
			return start, end, common.NewUserError("--to must look like 2024-01-31", err)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, common.NewUserError("--to is before --from", nil)
	}
	return start, end, nil
}

// filterRange keeps records within [start, end]; zero bounds are open.
func filterRange(records []model.Record, start, end time.Time) []model.Record {
	if start.IsZero() && end.IsZero() {
		return records
	}
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		day := model.DateOnly(r.OccurredOn)
		if !start.IsZero() && day.Before(start) {
			continue
		}
		if !end.IsZero() && day.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}
