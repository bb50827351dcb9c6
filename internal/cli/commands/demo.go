package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/cascade/internal/cli/ui"
	"github.com/conduit-lang/cascade/internal/feed"
	"github.com/conduit-lang/cascade/internal/journal"
	"github.com/conduit-lang/cascade/internal/kanban"
)

type demoFlags struct {
	step    bool
	journal bool
	before  bool
}

func newDemoCommand(opts *rootOptions) *cobra.Command {
	var flags demoFlags

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the scripted scenario against a sample board",
		Long: `Seed a sample kanban board, run the scripted mutations against it and
print every notification the board receives, in delivery order.

Examples:
  cascade demo
  cascade demo --step
  cascade demo --journal --no-before`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), cmd.OutOrStdout(), opts, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.step, "step", false, "confirm each step before applying it")
	cmd.Flags().BoolVar(&flags.journal, "journal", false, "record notifications to the configured journal")
	cmd.Flags().BoolVar(&flags.before, "before", true, "include before_updated notifications")

	return cmd
}

func runDemo(ctx context.Context, out io.Writer, opts *rootOptions, flags demoFlags) error {
	noColor := opts.cfg.Output.NoColor

	board, err := kanban.Seed(opts.logger)
	if err != nil {
		return err
	}

	var (
		rows    []stepNotification
		current string
	)
	handlers := []feed.Handler{func(n feed.Notification) {
		rows = append(rows, stepNotification{step: current, Notification: n})
	}}

	var recorder *journal.Recorder
	if flags.journal || opts.cfg.Journal.Enabled {
		store, err := openJournal(ctx, opts.cfg.Journal)
		if err != nil {
			return err
		}
		defer store.Close()
		recorder = journal.NewRecorder(ctx, store, opts.logger)
		handlers = append(handlers, recorder.Record)
	}

	var subOpts []feed.Option
	if !flags.before {
		subOpts = append(subOpts, feed.WithoutBefore())
	}
	sub := feed.Subscribe(board, fanOut(handlers...), subOpts...)
	defer sub.Close()

	applied := 0
	for _, step := range kanban.Scenario() {
		if flags.step {
			ok, err := opts.confirm(fmt.Sprintf("Apply %q?", step.Name))
			if err != nil {
				return fmt.Errorf("prompt failed: %w", err)
			}
			if !ok {
				break
			}
		}
		current = step.Name
		if err := kanban.Run(board, []kanban.Step{step}); err != nil {
			return err
		}
		applied++
	}

	opts.logger.Debug("demo finished",
		zap.Int("steps", applied),
		zap.Uint64("delivered", sub.Delivered()))

	ui.Header(out, fmt.Sprintf("%s: %d steps, %d notifications", board.Title(), applied, len(rows)), noColor)
	renderNotifications(out, rows, noColor)

	if recorder != nil {
		if err := recorder.Err(); err != nil {
			return fmt.Errorf("journal stored %d of %d notifications: %w", recorder.Written(), len(rows), err)
		}
		fmt.Fprintln(out)
		ui.WriteSuccess(out, fmt.Sprintf("Recorded %d notifications to %s", recorder.Written(), opts.cfg.Journal.Driver), noColor)
	}
	return nil
}
