package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/cascade/internal/cli/ui"
	"github.com/conduit-lang/cascade/internal/config"
	"github.com/conduit-lang/cascade/internal/logging"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// rootOptions is shared by every subcommand. cfg and logger are populated
// before any subcommand runs.
type rootOptions struct {
	configPath string
	noColor    bool

	cfg    *config.Config
	logger *zap.Logger

	confirm confirmFunc
	input   inputFunc
}

func (o *rootOptions) load() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.noColor {
		cfg.Output.NoColor = true
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}

	o.cfg = cfg
	o.logger = logger
	return nil
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	return newRootCommand(&rootOptions{
		confirm: surveyConfirm,
		input:   surveyInput,
	})
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cascade",
		Short: "Hierarchical change-event forwarding for item trees",
		Long: color.CyanString(`Cascade - change events that travel up the tree

Items declare which kinds of events they forward. When an item is placed
under a parent, the parent hears everything its subtree reports.

Features:
  • Ranked collections with add, remove, reorder and activation events
  • Single-valued references with attach/detach on replace
  • Origin-first event paths
  • Journal to SQLite or PostgreSQL
  • Live websocket stream for viewers`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ./cascade.yml)")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newDescribeCommand(opts))
	rootCmd.AddCommand(newDemoCommand(opts))
	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newTokenCommand(opts))
	rootCmd.AddCommand(newJournalCommand(opts))

	return rootCmd
}

// hintError carries suggestions that Execute renders under the message
type hintError struct {
	context     string
	problem     string
	suggestions []string
	help        []string
}

func (e *hintError) Error() string {
	return fmt.Sprintf("%s: %s", e.context, e.problem)
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		var hint *hintError
		if errors.As(err, &hint) {
			ui.WriteError(os.Stderr, ui.ErrorOptions{
				Context:      hint.context,
				Problem:      hint.problem,
				Suggestions:  hint.suggestions,
				HelpCommands: hint.help,
			})
		} else {
			color.Red("Error: %v", err)
		}
		os.Exit(1)
	}
}
