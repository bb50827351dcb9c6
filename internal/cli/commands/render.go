package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/conduit-lang/cascade/internal/cli/ui"
	"github.com/conduit-lang/cascade/internal/config"
	"github.com/conduit-lang/cascade/internal/feed"
	"github.com/conduit-lang/cascade/internal/journal"
)

const cellWidth = 48

// stepNotification is a notification tagged with the scenario step that caused it
type stepNotification struct {
	step string
	feed.Notification
}

func renderNotifications(w io.Writer, rows []stepNotification, noColor bool) {
	table := ui.NewTable(w, []string{"Seq", "Step", "Type", "Kind", "Item", "Change", "Path"}, &ui.TableOptions{
		NoColor:  noColor,
		MaxWidth: cellWidth,
	})
	for _, r := range rows {
		table.AddRow(
			strconv.FormatUint(r.Seq, 10),
			r.step,
			string(r.Type),
			r.Kind.String(),
			r.Item,
			notificationChange(r.Notification),
			strings.Join(r.Path, journal.PathSeparator),
		)
	}
	table.Render()
}

func notificationChange(n feed.Notification) string {
	switch n.Type {
	case feed.BeforeUpdated, feed.Updated:
		return fmt.Sprintf("%s: %s → %s", n.Field, formatValue(n.Old), formatValue(n.New))
	case feed.PositionChanged:
		return fmt.Sprintf("index %d → %d", n.OldIndex, n.NewIndex)
	default:
		return fmt.Sprintf("index %d", n.Index)
	}
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "∅"
	case string:
		return strconv.Quote(v)
	default:
		return fmt.Sprint(v)
	}
}

func renderEntries(w io.Writer, entries []*journal.Entry, noColor bool) {
	table := ui.NewTable(w, []string{"ID", "Seq", "Recorded", "Type", "Item", "Change", "Path"}, &ui.TableOptions{
		NoColor:  noColor,
		MaxWidth: cellWidth,
	})
	for _, e := range entries {
		table.AddRow(
			strconv.FormatInt(e.ID, 10),
			strconv.FormatUint(e.Seq, 10),
			e.RecordedAt.Local().Format(time.DateTime),
			e.Type,
			e.Item,
			entryChange(e),
			e.Path,
		)
	}
	table.Render()
}

func entryChange(e *journal.Entry) string {
	switch feed.Type(e.Type) {
	case feed.BeforeUpdated, feed.Updated:
		return fmt.Sprintf("%s: %s → %s", e.Field, storedValue(e.Old), storedValue(e.New))
	case feed.PositionChanged:
		return fmt.Sprintf("index %d → %d", e.OldIndex, e.NewIndex)
	default:
		return fmt.Sprintf("index %d", e.Index)
	}
}

func storedValue(s string) string {
	if s == "" {
		return "∅"
	}
	return s
}

// openJournal opens the configured store and makes sure its table exists
func openJournal(ctx context.Context, cfg config.JournalConfig) (*journal.Store, error) {
	store, err := journal.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// fanOut delivers each notification to every handler in order
func fanOut(handlers ...feed.Handler) feed.Handler {
	return func(n feed.Notification) {
		for _, h := range handlers {
			h(n)
		}
	}
}
