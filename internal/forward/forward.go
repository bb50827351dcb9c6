// Package forward implements the per-kind relays that carry events up an item tree.
//
// A forwarder belongs to one holder and one kind. It links to any number of
// upstream sources of that kind and re-raises their events as its own, with
// the holder appended to the event path. Forwarders are sources themselves,
// so an ancestor links to a descendant's forwarder exactly like it links to a
// collection or an item.
package forward

import (
	"go.uber.org/zap"

	"github.com/conduit-lang/cascade/internal/events"
	"github.com/conduit-lang/cascade/internal/signal"
)

// PropertySource exposes the field mutation events of an item
type PropertySource interface {
	BeforeUpdated() *signal.Signal[events.FieldEvent]
	Updated() *signal.Signal[events.FieldEvent]
}

// CollectionSource exposes the events of a collection of items
type CollectionSource interface {
	ItemAdded() *signal.Signal[events.ItemEvent]
	ItemRemoved() *signal.Signal[events.ItemEvent]
	BeforeItemUpdated() *signal.Signal[events.FieldEvent]
	ItemUpdated() *signal.Signal[events.FieldEvent]
	PositionChanged() *signal.Signal[events.PositionEvent]
	ActiveChildChanged() *signal.Signal[events.ItemEvent]
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
