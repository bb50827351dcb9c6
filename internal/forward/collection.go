package forward

import (
	"go.uber.org/zap"

	"github.com/conduit-lang/cascade/internal/events"
	"github.com/conduit-lang/cascade/internal/signal"
)

type collectionLink struct {
	added    signal.Handle
	removed  signal.Handle
	before   signal.Handle
	updated  signal.Handle
	position signal.Handle
	active   signal.Handle
}

// CollectionForwarder relays the events of every linked collection (or
// collection forwarder) of one member kind to the holder's listeners
type CollectionForwarder struct {
	holder events.Node
	kind   events.Kind
	logger *zap.Logger

	itemAdded          signal.Signal[events.ItemEvent]
	itemRemoved        signal.Signal[events.ItemEvent]
	beforeItemUpdated  signal.Signal[events.FieldEvent]
	itemUpdated        signal.Signal[events.FieldEvent]
	positionChanged    signal.Signal[events.PositionEvent]
	activeChildChanged signal.Signal[events.ItemEvent]

	links map[CollectionSource]collectionLink

	// relays counts the forwarders linked to this one
	relays int
}

// NewCollectionForwarder creates a forwarder for member kind owned by holder
func NewCollectionForwarder(holder events.Node, kind events.Kind, logger *zap.Logger) *CollectionForwarder {
	return &CollectionForwarder{
		holder: holder,
		kind:   kind,
		logger: loggerOrNop(logger),
		links:  make(map[CollectionSource]collectionLink),
	}
}

// Holder returns the node stamped into forwarded paths
func (f *CollectionForwarder) Holder() events.Node { return f.holder }

// Kind returns the member kind this forwarder relays
func (f *CollectionForwarder) Kind() events.Kind { return f.kind }

// ItemAdded is raised when a member joins a linked collection
func (f *CollectionForwarder) ItemAdded() *signal.Signal[events.ItemEvent] {
	return &f.itemAdded
}

// ItemRemoved is raised when a member leaves a linked collection
func (f *CollectionForwarder) ItemRemoved() *signal.Signal[events.ItemEvent] {
	return &f.itemRemoved
}

// BeforeItemUpdated is raised before a member commits a field change
func (f *CollectionForwarder) BeforeItemUpdated() *signal.Signal[events.FieldEvent] {
	return &f.beforeItemUpdated
}

// ItemUpdated is raised after a member committed a field change
func (f *CollectionForwarder) ItemUpdated() *signal.Signal[events.FieldEvent] {
	return &f.itemUpdated
}

// PositionChanged is raised when a member moved after a rank change
func (f *CollectionForwarder) PositionChanged() *signal.Signal[events.PositionEvent] {
	return &f.positionChanged
}

// ActiveChildChanged is raised when a linked collection activates a member
func (f *CollectionForwarder) ActiveChildChanged() *signal.Signal[events.ItemEvent] {
	return &f.activeChildChanged
}

// Link subscribes the forwarder to every event of src.
// It returns false when src is already linked or is the forwarder itself.
func (f *CollectionForwarder) Link(src CollectionSource) bool {
	if src == nil || src == CollectionSource(f) {
		return false
	}
	if _, ok := f.links[src]; ok {
		return false
	}
	f.links[src] = collectionLink{
		added:    src.ItemAdded().Connect(f.relayAdded),
		removed:  src.ItemRemoved().Connect(f.relayRemoved),
		before:   src.BeforeItemUpdated().Connect(f.relayBefore),
		updated:  src.ItemUpdated().Connect(f.relayUpdated),
		position: src.PositionChanged().Connect(f.relayPosition),
		active:   src.ActiveChildChanged().Connect(f.relayActive),
	}
	if up, ok := src.(*CollectionForwarder); ok {
		up.relays++
	}
	f.logger.Debug("collection forwarder linked",
		zap.String("holder", events.Label(f.holder)),
		zap.Stringer("kind", f.kind),
		zap.Int("links", len(f.links)))
	return true
}

// Unlink removes every subscription to src. Unknown sources are ignored.
func (f *CollectionForwarder) Unlink(src CollectionSource) bool {
	l, ok := f.links[src]
	if !ok {
		return false
	}
	src.ItemAdded().Disconnect(l.added)
	src.ItemRemoved().Disconnect(l.removed)
	src.BeforeItemUpdated().Disconnect(l.before)
	src.ItemUpdated().Disconnect(l.updated)
	src.PositionChanged().Disconnect(l.position)
	src.ActiveChildChanged().Disconnect(l.active)
	delete(f.links, src)
	if up, ok := src.(*CollectionForwarder); ok {
		up.relays--
	}
	f.logger.Debug("collection forwarder unlinked",
		zap.String("holder", events.Label(f.holder)),
		zap.Stringer("kind", f.kind),
		zap.Int("links", len(f.links)))
	return true
}

// Linked reports whether src is linked
func (f *CollectionForwarder) Linked(src CollectionSource) bool {
	_, ok := f.links[src]
	return ok
}

// LinkCount returns the number of linked sources
func (f *CollectionForwarder) LinkCount() int {
	return len(f.links)
}

// ListenerCount returns the number of listeners across all of the forwarder's signals
func (f *CollectionForwarder) ListenerCount() int {
	return f.itemAdded.Len() +
		f.itemRemoved.Len() +
		f.beforeItemUpdated.Len() +
		f.itemUpdated.Len() +
		f.positionChanged.Len() +
		f.activeChildChanged.Len()
}

// Idle reports whether the forwarder has neither sources nor listeners
func (f *CollectionForwarder) Idle() bool {
	return f.LinkCount() == 0 && f.ListenerCount() == 0
}

// Orphaned reports whether the forwarder has no sources and nothing but other
// forwarders listens to it
func (f *CollectionForwarder) Orphaned() bool {
	return f.LinkCount() == 0 && f.ListenerCount() == f.relays*6
}

func (f *CollectionForwarder) relayAdded(e events.ItemEvent) {
	f.itemAdded.Emit(e.Stack(f.holder))
}

func (f *CollectionForwarder) relayRemoved(e events.ItemEvent) {
	f.itemRemoved.Emit(e.Stack(f.holder))
}

func (f *CollectionForwarder) relayBefore(e events.FieldEvent) {
	f.beforeItemUpdated.Emit(e.Stack(f.holder))
}

func (f *CollectionForwarder) relayUpdated(e events.FieldEvent) {
	f.itemUpdated.Emit(e.Stack(f.holder))
}

func (f *CollectionForwarder) relayPosition(e events.PositionEvent) {
	f.positionChanged.Emit(e.Stack(f.holder))
}

func (f *CollectionForwarder) relayActive(e events.ItemEvent) {
	f.activeChildChanged.Emit(e.Stack(f.holder))
}
