package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-bills-must-flow/internal/cli"
	"github.com/Veraticus/the-bills-must-flow/internal/common"
	"github.com/Veraticus/the-bills-must-flow/internal/storage"
	"github.com/spf13/cobra"
)

func hintsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hints",
		Short: "Manage personal hints sent to the classifier",
		Long: `Hints are short sentences about your habits, such as "coffee shops are
work meetings", that are sent with every classification request.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List hints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			hints, err := store.ListHints(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(hints) == 0 {
				_, err := fmt.Fprintln(out, cli.InfoStyle.Render("No hints yet. Use 'bills hints add'."))
				return err
			}
			for i, hint := range hints {
				if _, err := fmt.Fprintf(out, "%2d. %s\n", i+1, hint); err != nil {
					return err
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <hint>",
		Short: "Add a hint",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			hint := strings.TrimSpace(strings.Join(args, " "))
			if hint == "" {
				return common.NewUserError("Hint cannot be empty", nil)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			added, err := store.AddHint(ctx, hint)
			if err != nil {
				return err
			}
			msg := cli.FormatSuccess("Added hint")
			if !added {
				msg = cli.FormatInfo("Hint already exists")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <hint>",
		Short: "Remove a hint",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			hint := strings.TrimSpace(strings.Join(args, " "))
			if err := store.RemoveHint(ctx, hint); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return common.NewUserError("No such hint", err)
				}
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Removed hint"))
			return err
		},
	})

	return cmd
}
