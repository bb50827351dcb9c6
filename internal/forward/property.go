package forward

import (
	"go.uber.org/zap"

	"github.com/conduit-lang/cascade/internal/events"
	"github.com/conduit-lang/cascade/internal/signal"
)

type propertyLink struct {
	before  signal.Handle
	updated signal.Handle
}

// PropertyForwarder relays field events from every linked item (or item
// forwarder) of one kind to the holder's listeners
type PropertyForwarder struct {
	holder events.Node
	kind   events.Kind
	logger *zap.Logger

	beforeUpdated signal.Signal[events.FieldEvent]
	updated       signal.Signal[events.FieldEvent]

	links map[PropertySource]propertyLink

	// relays counts the forwarders linked to this one
	relays int
}

// NewPropertyForwarder creates a forwarder for kind owned by holder
func NewPropertyForwarder(holder events.Node, kind events.Kind, logger *zap.Logger) *PropertyForwarder {
	return &PropertyForwarder{
		holder: holder,
		kind:   kind,
		logger: loggerOrNop(logger),
		links:  make(map[PropertySource]propertyLink),
	}
}

// Holder returns the node stamped into forwarded paths
func (f *PropertyForwarder) Holder() events.Node { return f.holder }

// Kind returns the kind of source this forwarder relays
func (f *PropertyForwarder) Kind() events.Kind { return f.kind }

// BeforeUpdated is raised before a linked source commits a field change
func (f *PropertyForwarder) BeforeUpdated() *signal.Signal[events.FieldEvent] {
	return &f.beforeUpdated
}

// Updated is raised after a linked source committed a field change
func (f *PropertyForwarder) Updated() *signal.Signal[events.FieldEvent] {
	return &f.updated
}

// Link subscribes the forwarder to src.
// It returns false when src is already linked or is the forwarder itself.
func (f *PropertyForwarder) Link(src PropertySource) bool {
	if src == nil || src == PropertySource(f) {
		return false
	}
	if _, ok := f.links[src]; ok {
		return false
	}
	f.links[src] = propertyLink{
		before:  src.BeforeUpdated().Connect(f.relayBefore),
		updated: src.Updated().Connect(f.relayUpdated),
	}
	if up, ok := src.(*PropertyForwarder); ok {
		up.relays++
	}
	f.logger.Debug("property forwarder linked",
		zap.String("holder", events.Label(f.holder)),
		zap.Stringer("kind", f.kind),
		zap.Int("links", len(f.links)))
	return true
}

// Unlink removes the subscription to src. Unknown sources are ignored.
func (f *PropertyForwarder) Unlink(src PropertySource) bool {
	l, ok := f.links[src]
	if !ok {
		return false
	}
	src.BeforeUpdated().Disconnect(l.before)
	src.Updated().Disconnect(l.updated)
	delete(f.links, src)
	if up, ok := src.(*PropertyForwarder); ok {
		up.relays--
	}
	f.logger.Debug("property forwarder unlinked",
		zap.String("holder", events.Label(f.holder)),
		zap.Stringer("kind", f.kind),
		zap.Int("links", len(f.links)))
	return true
}

// Linked reports whether src is linked
func (f *PropertyForwarder) Linked(src PropertySource) bool {
	_, ok := f.links[src]
	return ok
}

// LinkCount returns the number of linked sources
func (f *PropertyForwarder) LinkCount() int {
	return len(f.links)
}

// ListenerCount returns the number of listeners on the forwarder's own signals
func (f *PropertyForwarder) ListenerCount() int {
	return f.beforeUpdated.Len() + f.updated.Len()
}

// Idle reports whether the forwarder has neither sources nor listeners
func (f *PropertyForwarder) Idle() bool {
	return f.LinkCount() == 0 && f.ListenerCount() == 0
}

// Orphaned reports whether the forwarder has no sources and nothing but other
// forwarders listens to it
func (f *PropertyForwarder) Orphaned() bool {
	return f.LinkCount() == 0 && f.ListenerCount() == f.relays*2
}

func (f *PropertyForwarder) relayBefore(e events.FieldEvent) {
	f.beforeUpdated.Emit(e.Stack(f.holder))
}

func (f *PropertyForwarder) relayUpdated(e events.FieldEvent) {
	f.updated.Emit(e.Stack(f.holder))
}
