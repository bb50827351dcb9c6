package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/cascade/internal/cli/ui"
	"github.com/conduit-lang/cascade/internal/stream"
)

// ErrNoSecret is returned when a token is requested without a signing secret
var ErrNoSecret = errors.New("stream.secret is not set")

func newTokenCommand(opts *rootOptions) *cobra.Command {
	var (
		viewer string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a viewer token for the stream",
		Long: `Issue a signed viewer token for 'cascade serve'. Pass it as ?token=... or
as an "Authorization: Bearer" header. Prompts for the viewer when --viewer is omitted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg.Stream
			if cfg.Secret == "" {
				return &hintError{
					context: "token",
					problem: ErrNoSecret.Error(),
					help:    []string{"Set it with: CASCADE_STREAM_SECRET=... cascade token"},
				}
			}
			if cmd.Flags().Changed("ttl") {
				cfg.TokenTTL = ttl
			}

			if viewer == "" {
				v, err := opts.input("Viewer name:", "The name the stream reports back to this viewer")
				if err != nil {
					return fmt.Errorf("prompt failed: %w", err)
				}
				viewer = v
			}

			token, expires, err := stream.NewTokenAuth(cfg.Secret, cfg.TokenTTL).Issue(viewer)
			if err != nil {
				return err
			}

			kv := ui.NewKeyValueTable(cmd.OutOrStdout(), opts.cfg.Output.NoColor)
			kv.AddRow("Viewer", viewer)
			kv.AddRow("Expires", expires.Format(time.RFC3339))
			kv.AddRow("Token", token)
			kv.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&viewer, "viewer", "", "viewer name embedded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (overrides stream.token_ttl)")

	return cmd
}
