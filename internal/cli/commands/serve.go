package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/cascade/internal/feed"
	"github.com/conduit-lang/cascade/internal/journal"
	"github.com/conduit-lang/cascade/internal/kanban"
	"github.com/conduit-lang/cascade/internal/stream"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		address  string
		interval time.Duration
		record   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Stream a replaying demo board to websocket viewers",
		Long: `Start the viewer stream and replay the demo scenario one step per interval.
Viewers connect to ws://<address>/events and receive every board notification.
When stream.secret is set, viewers must present a token from 'cascade token'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg.Stream
			if cmd.Flags().Changed("address") {
				cfg.Address = address
			}
			if cmd.Flags().Changed("interval") {
				cfg.Interval = interval
			}
			if cfg.Interval <= 0 {
				return fmt.Errorf("interval must be positive, got %s", cfg.Interval)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := stream.NewServer(ctx, cfg, opts.logger)
			server.Start()

			handlers := []feed.Handler{stream.NewPublisher(server.Hub).Publish}
			if record || opts.cfg.Journal.Enabled {
				store, err := openJournal(ctx, opts.cfg.Journal)
				if err != nil {
					server.Shutdown()
					return err
				}
				defer store.Close()
				handlers = append(handlers, journal.NewRecorder(ctx, store, opts.logger).Record)
			}

			rp := newReplayer(kanban.Scenario(), fanOut(handlers...), opts.logger)
			done := make(chan struct{})
			go func() {
				defer close(done)
				rp.run(ctx, cfg.Interval)
			}()

			infoColor := color.New(color.FgCyan)
			if opts.cfg.Output.NoColor {
				infoColor.DisableColor()
			}
			infoColor.Fprintf(cmd.OutOrStdout(), "Streaming on ws://%s/events (step every %s)\n", cfg.Address, cfg.Interval)

			err := server.ListenAndServe(ctx)
			stop()
			<-done
			rp.close()
			return err
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "listen address (overrides stream.address)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "delay between steps (overrides stream.interval)")
	cmd.Flags().BoolVar(&record, "journal", false, "also record notifications to the configured journal")

	return cmd
}

// replayer applies one scenario step per tick to a board, reseeding a fresh
// board once every step has run. It is driven from a single goroutine.
type replayer struct {
	steps   []kanban.Step
	handler feed.Handler
	logger  *zap.Logger

	board  *kanban.Board
	sub    *feed.Subscription
	next   int
	rounds int
}

func newReplayer(steps []kanban.Step, handler feed.Handler, logger *zap.Logger) *replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &replayer{steps: steps, handler: handler, logger: logger}
}

// tick seeds a board when none is running, otherwise applies the next step
func (r *replayer) tick() error {
	if r.board == nil || r.next >= len(r.steps) {
		return r.reseed()
	}

	step := r.steps[r.next]
	r.next++
	r.logger.Debug("replaying step", zap.String("step", step.Name), zap.Int("round", r.rounds))
	return kanban.Run(r.board, []kanban.Step{step})
}

func (r *replayer) reseed() error {
	r.close()

	board, err := kanban.Seed(r.logger)
	if err != nil {
		return err
	}
	r.board = board
	r.sub = feed.Subscribe(board, r.handler)
	r.next = 0
	r.rounds++
	return nil
}

func (r *replayer) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := r.tick(); err != nil {
		r.logger.Warn("replay failed", zap.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.tick(); err != nil {
				r.logger.Warn("replay failed", zap.Error(err))
			}
		}
	}
}

func (r *replayer) close() {
	if r.sub != nil {
		r.sub.Close()
		r.sub = nil
	}
	r.board = nil
}
