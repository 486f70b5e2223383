package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/the-bills-must-flow/internal/cli"
	"github.com/Veraticus/the-bills-must-flow/internal/common"
	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/Veraticus/the-bills-must-flow/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func recordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"r"},
		Short:   "List, add and delete bill records",
	}

	cmd.AddCommand(listRecordsCmd())
	cmd.AddCommand(addRecordCmd())
	cmd.AddCommand(deleteRecordCmd())

	return cmd
}

func listRecordsCmd() *cobra.Command {
	var (
		limit    int
		category string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, err := store.LoadAll(ctx)
			if err != nil {
				return fmt.Errorf("failed to load records: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				_, err := fmt.Fprintln(out, cli.InfoStyle.Render("No records yet. Use 'bills import' or 'bills records add'."))
				return err
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				cli.HeaderStyle.Render("Date"),
				cli.HeaderStyle.Render("Flow"),
				cli.HeaderStyle.Render("Amount"),
				cli.HeaderStyle.Render("Category"),
				cli.HeaderStyle.Render("Note"),
				cli.HeaderStyle.Render("ID"))

			shown := 0
			for _, r := range records {
				if category != "" && r.Category != category {
					continue
				}
				if limit > 0 && shown == limit {
					break
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.OccurredOn.Format(dateLayout),
					r.Flow,
					cli.FormatAmount(r.Flow, r.Amount),
					model.JoinLabel(r.Category, r.SubCategory),
					r.Note,
					r.ID)
				shown++
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum records to show (0 for all)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "only show records in this primary category")

	return cmd
}

func addRecordCmd() *cobra.Command {
	var (
		date     string
		flow     string
		category string
		note     string
	)

	cmd := &cobra.Command{
		Use:   "add <amount>",
		Short: "Add a record by hand",
		Long: `Add a single record. The category is "Category" or "Category - Sub" and
must already exist for the record's flow.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			amount, err := decimal.NewFromString(args[0])
			if err != nil || amount.IsZero() {
				return common.NewUserError("Amount must be a non-zero number", err)
			}

			occurredOn := time.Now()
			if date != "" {
				if occurredOn, err = time.Parse(dateLayout, date); err != nil {
					return common.NewUserError("Date must look like 2024-01-31", err)
				}
			}

			direction := model.ParseFlow(flow)

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tax, err := initTaxonomy(ctx, store)
			if err != nil {
				return err
			}

			primary, sub := model.SplitLabelWith(category, tax.Exists)
			if primary == "" {
				primary = direction.CatchAll()
			}
			catFlow, ok := tax.FlowOf(primary)
			if !ok || catFlow != direction {
				return common.NewUserError(fmt.Sprintf("No %s category named %q; see 'bills categories list'", direction, primary), nil)
			}
			if sub != nil && !tax.ExistsSub(primary, *sub) {
				return common.NewUserError(fmt.Sprintf("%q has no subcategory %q", primary, *sub), nil)
			}

			record := model.NewManualRecord(amount, occurredOn, direction, primary, sub, strings.TrimSpace(note))
			if err := store.Add(ctx, *record); err != nil {
				return fmt.Errorf("failed to add record: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added %s %s to %s (%s)",
				direction, record.Amount.StringFixed(2), model.JoinLabel(record.Category, record.SubCategory), record.ID)))
			return err
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "date of the record (default today)")
	cmd.Flags().StringVarP(&flow, "flow", "f", string(model.FlowExpense), "支出 (expense) or 收入 (income)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "category, optionally \"Category - Sub\" (default catch-all)")
	cmd.Flags().StringVar(&note, "note", "", "free-text note")

	return cmd
}

func deleteRecordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteByID(ctx, args[0]); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return common.NewUserError("No record with ID "+args[0], err)
				}
				return fmt.Errorf("failed to delete record: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted record "+args[0]))
			return err
		},
	}
}
