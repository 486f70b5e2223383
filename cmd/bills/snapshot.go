package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/Veraticus/the-bills-must-flow/internal/cli"
	"github.com/Veraticus/the-bills-must-flow/internal/common"
	"github.com/Veraticus/the-bills-must-flow/internal/storage"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snapshot",
		Aliases: []string{"snap"},
		Short:   "Manage database snapshots",
		Long: `Snapshots are copies of the bills database kept next to it. One is taken
automatically before every import; the five most recent automatic snapshots are kept.`,
	}

	cmd.AddCommand(createSnapshotCmd())
	cmd.AddCommand(listSnapshotsCmd())
	cmd.AddCommand(restoreSnapshotCmd())
	cmd.AddCommand(deleteSnapshotCmd())

	return cmd
}

// openSnapshots opens the database and its snapshot directory.
func openSnapshots(cmd *cobra.Command) (*storage.SQLiteStorage, *storage.Snapshots, error) {
	store, err := initStorage(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	snaps, err := storage.NewSnapshots(store)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, snaps, nil
}

func createSnapshotCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create [id]",
		Short: "Snapshot the database now",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, snaps, err := openSnapshots(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var id string
			if len(args) == 1 {
				id = args[0]
			}

			snap, err := snaps.Create(cmd.Context(), id, description)
			if err != nil {
				return snapshotError(err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"Created snapshot %s (%d records, %s)", snap.ID, snap.Records, humanize.Bytes(uint64(snap.Size)))))
			return err
		},
	}

	cmd.Flags().StringVarP(&description, "message", "m", "", "description to store with the snapshot")
	return cmd
}

func listSnapshotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, snaps, err := openSnapshots(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			list, err := snaps.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				_, err := fmt.Fprintln(out, cli.InfoStyle.Render("No snapshots yet."))
				return err
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				cli.HeaderStyle.Render("ID"),
				cli.HeaderStyle.Render("Created"),
				cli.HeaderStyle.Render("Records"),
				cli.HeaderStyle.Render("Size"),
				cli.HeaderStyle.Render("Description"))
			for _, s := range list {
				desc := s.Description
				if s.Auto {
					desc = cli.SubtleStyle.Render(desc)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					s.ID, humanize.Time(s.CreatedAt), s.Records, humanize.Bytes(uint64(s.Size)), desc)
			}
			return w.Flush()
		},
	}
}

func restoreSnapshotCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace the database with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, snaps, err := openSnapshots(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			snap, err := snaps.Get(ctx, args[0])
			if err != nil {
				return snapshotError(err)
			}

			out := cmd.OutOrStdout()
			if !force {
				ok, err := cli.NewCLIPrompter(cmd.InOrStdin(), out).Confirm(ctx, fmt.Sprintf(
					"Replace the database with %s from %s (%d records)?",
					snap.ID, snap.CreatedAt.Format("2006-01-02 15:04"), snap.Records))
				if err != nil {
					return err
				}
				if !ok {
					_, err := fmt.Fprintln(out, cli.FormatInfo("Cancelled"))
					return err
				}
			}

			if err := snaps.Restore(ctx, snap.ID); err != nil {
				return snapshotError(err)
			}

			_, err = fmt.Fprintln(out, cli.FormatSuccess("Restored snapshot "+snap.ID))
			return err
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not ask for confirmation")
	return cmd
}

func deleteSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, snaps, err := openSnapshots(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := snaps.Delete(cmd.Context(), args[0]); err != nil {
				return snapshotError(err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted snapshot "+args[0]))
			return err
		},
	}
}

func snapshotError(err error) error {
	switch {
	case errors.Is(err, storage.ErrSnapshotNotFound):
		return common.NewUserError("No such snapshot; see 'bills snapshot list'", err)
	case errors.Is(err, storage.ErrSnapshotExists):
		return common.NewUserError("A snapshot with that id already exists", err)
	case errors.Is(err, storage.ErrInvalidSnapshotID):
		return common.NewUserError("Snapshot ids cannot contain path separators", err)
	case errors.Is(err, storage.ErrSnapshotCorrupted):
		return common.NewUserError("The snapshot is damaged and was not restored", err)
	default:
		return err
	}
}
