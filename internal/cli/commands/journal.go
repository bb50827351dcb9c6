package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/cascade/internal/cli/ui"
)

func newJournalCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect recorded notifications",
		Long:  "Read notifications recorded by 'cascade demo --journal' or 'cascade serve --journal'.",
	}

	cmd.AddCommand(newJournalListCommand(opts))
	cmd.AddCommand(newJournalItemCommand(opts))

	return cmd
}

func newJournalListCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("limit must be positive, got %d", limit)
			}

			ctx := cmd.Context()
			store, err := openJournal(ctx, opts.cfg.Journal)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(ctx, limit)
			if err != nil {
				return err
			}
			total, err := store.Count(ctx)
			if err != nil {
				return err
			}

			noColor := opts.cfg.Output.NoColor
			ui.Header(cmd.OutOrStdout(), fmt.Sprintf("Journal: showing %d of %d entries", len(entries), total), noColor)
			renderEntries(cmd.OutOrStdout(), entries, noColor)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries")

	return cmd
}

func newJournalItemCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "item <item-id>",
		Short: "List every entry that originated at one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openJournal(ctx, opts.cfg.Journal)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.ForItem(ctx, args[0])
			if err != nil {
				return err
			}

			noColor := opts.cfg.Output.NoColor
			ui.Header(cmd.OutOrStdout(), fmt.Sprintf("Journal: %d entries for %s", len(entries), args[0]), noColor)
			renderEntries(cmd.OutOrStdout(), entries, noColor)
			return nil
		},
	}
}
