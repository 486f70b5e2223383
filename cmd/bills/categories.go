package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-bills-must-flow/internal/cli"
	"github.com/Veraticus/the-bills-must-flow/internal/common"
	"github.com/Veraticus/the-bills-must-flow/internal/model"
	"github.com/Veraticus/the-bills-must-flow/internal/taxonomy"
	"github.com/spf13/cobra"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "Manage the category tree",
		Long: `List, add and delete primary categories and subcategories. Deleting a
category also deletes every record filed under it. Built-in categories cannot be
deleted.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(addSubCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())
	cmd.AddCommand(deleteSubCategoryCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the category tree",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tax, err := initTaxonomy(ctx, store)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), formatTree(tax.Categories()))
			return err
		},
	}
}

// formatTree renders the categories grouped by flow, marking user-defined ones.
func formatTree(categories []model.Category) string {
	var b strings.Builder
	for _, flow := range []model.FlowDirection{model.FlowExpense, model.FlowIncome} {
		b.WriteString(cli.FormatTitle(string(flow)) + "\n")
		for _, cat := range categories {
			if cat.Flow != flow {
				continue
			}
			line := fmt.Sprintf("  %s %s", cat.Emoji, cat.Name)
			if cat.Custom {
				line += cli.SubtleStyle.Render(" (custom)")
			}
			b.WriteString(line + "\n")
			for _, sub := range cat.Subcategories {
				subLine := "      " + sub.Name
				if sub.Custom {
					subLine += cli.SubtleStyle.Render(" (custom)")
				}
				b.WriteString(subLine + "\n")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func addCategoryCmd() *cobra.Command {
	var income bool

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a primary category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := strings.TrimSpace(args[0])

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tax, err := initTaxonomy(ctx, store)
			if err != nil {
				return err
			}
			if tax.Exists(name) {
				return common.NewUserError(fmt.Sprintf("Category %q already exists", name), nil)
			}

			if err := tax.RegisterPrimary(ctx, name, income); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Added category "+name))
			return err
		},
	}

	cmd.Flags().BoolVar(&income, "income", false, "create an income category instead of an expense category")

	return cmd
}

func addSubCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-sub <parent> <name>",
		Short: "Add a subcategory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			parent, name := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			tax, err := initTaxonomy(ctx, store)
			if err != nil {
				return err
			}
			if !tax.Exists(parent) {
				return common.NewUserError(fmt.Sprintf("No category named %q", parent), nil)
			}
			if tax.ExistsSub(parent, name) {
				return common.NewUserError(fmt.Sprintf("%q already has subcategory %q", parent, name), nil)
			}

			if err := tax.RegisterSub(ctx, parent, name); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added %s", model.JoinLabel(parent, &name))))
			return err
		},
	}
}

func deleteCategoryCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a category and its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := args[0]

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
				return err
			}
			affected := countRecords(records, func(r model.Record) bool { return r.Category == name })

			if !force && affected > 0 {
				ok, err := cli.NewCLIPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).Confirm(ctx,
					fmt.Sprintf("Deleting %q also deletes %d records. Continue?", name, affected))
				if err != nil {
					return err
				}
				if !ok {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Cancelled"))
					return err
				}
			}

			removed, err := tax.DeletePrimary(ctx, name)
			if err != nil {
				return categoryError(err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted %s and %d records", name, removed)))
			return err
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not ask for confirmation")

	return cmd
}

func deleteSubCategoryCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete-sub <parent> <name>",
		Short: "Delete a subcategory and its records",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			parent, name := args[0], args[1]

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
				return err
			}
			affected := countRecords(records, func(r model.Record) bool {
				return r.Category == parent && r.SubCategoryName() == name
			})

			if !force && affected > 0 {
				ok, err := cli.NewCLIPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).Confirm(ctx,
					fmt.Sprintf("Deleting %q also deletes %d records. Continue?", model.JoinLabel(parent, &name), affected))
				if err != nil {
					return err
				}
				if !ok {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Cancelled"))
					return err
				}
			}

			removed, err := tax.DeleteSub(ctx, parent, name)
			if err != nil {
				return categoryError(err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted %s and %d records", model.JoinLabel(parent, &name), removed)))
			return err
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not ask for confirmation")

	return cmd
}

func countRecords(records []model.Record, match func(model.Record) bool) int {
	n := 0
	for _, r := range records {
		if match(r) {
			n++
		}
	}
	return n
}

func categoryError(err error) error {
	switch {
	case errors.Is(err, taxonomy.ErrProtected):
		return common.NewUserError("Built-in categories cannot be deleted", err)
	case errors.Is(err, taxonomy.ErrUnknownCategory):
		return common.NewUserError("No such category", err)
	default:
		return err
	}
}
