package commands

import (
	"github.com/spf13/cobra"

	"github.com/conduit-lang/cascade/internal/cli/ui"
	"github.com/conduit-lang/cascade/internal/events"
	"github.com/conduit-lang/cascade/internal/item"
	"github.com/conduit-lang/cascade/internal/kanban"
	"github.com/conduit-lang/cascade/internal/registry"
)

func newDescribeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe [kind]",
		Short: "List the slots each item kind declares",
		Long: `Print the reference and collection slots declared by the sample kinds.
A slot is where a child attaches; its kind decides which events the parent forwards.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := kanban.Catalog()

			entries := catalog.Entries()
			if len(args) == 1 {
				slots, err := lookupKind(catalog, args[0])
				if err != nil {
					return err
				}
				entries = []registry.Entry[events.Kind, []item.Slot]{{Key: events.Kind(args[0]), Value: slots}}
			}

			table := ui.NewTable(cmd.OutOrStdout(), []string{"Kind", "Slot", "Holds", "Type"}, &ui.TableOptions{
				NoColor: opts.cfg.Output.NoColor,
			})
			for _, e := range entries {
				if len(e.Value) == 0 {
					table.AddRow(e.Key.String(), "-", "-", "-")
					continue
				}
				for _, slot := range e.Value {
					table.AddRow(e.Key.String(), slot.Name, slot.Kind.String(), slot.Type.String())
				}
			}
			table.Render()
			return nil
		},
	}
}

func lookupKind(catalog *registry.Registry[events.Kind, []item.Slot], name string) ([]item.Slot, error) {
	if slots, ok := catalog.Get(events.Kind(name)); ok {
		return slots, nil
	}

	known := make([]string, 0, catalog.Len())
	for _, k := range catalog.Keys() {
		known = append(known, k.String())
	}
	return nil, &hintError{
		context:     "unknown kind",
		problem:     name,
		suggestions: ui.Suggest(name, known, 3),
		help:        []string{"List kinds: cascade describe"},
	}
}
