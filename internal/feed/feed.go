// Package feed flattens every event that reaches a root item into a single
// stream of Notifications, for adapters that do not care which forwarder an
// event arrived on.
package feed

import (
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/cascade/internal/events"
	"github.com/conduit-lang/cascade/internal/forward"
	"github.com/conduit-lang/cascade/internal/item"
	"github.com/conduit-lang/cascade/internal/registry"
	"github.com/conduit-lang/cascade/internal/signal"
)

// Type identifies which event a Notification was built from
type Type string

// Notification types, one per forwarded event
const (
	// ItemAdded reports a member appended to a collection
	ItemAdded Type = "item_added"

	// ItemRemoved reports a member removed from a collection
	ItemRemoved Type = "item_removed"

	// BeforeUpdated reports a field change that is about to be committed
	BeforeUpdated Type = "before_updated"

	// Updated reports a committed field change
	Updated Type = "updated"

	// PositionChanged reports a member that moved within its collection
	PositionChanged Type = "position_changed"

	// ActiveChanged reports a new active member of a collection
	ActiveChanged Type = "active_changed"
)

// Notification is a flattened, serializable view of one delivered event
type Notification struct {
	Seq      uint64      `json:"seq"`
	At       time.Time   `json:"at"`
	Type     Type        `json:"type"`
	Kind     events.Kind `json:"kind"`
	ItemID   string      `json:"item_id"`
	ItemKind events.Kind `json:"item_kind"`
	Item     string      `json:"item"`
	Field    string      `json:"field,omitempty"`
	Old      any         `json:"old,omitempty"`
	New      any         `json:"new,omitempty"`
	Index    int         `json:"index"`
	OldIndex int         `json:"old_index"`
	NewIndex int         `json:"new_index"`
	Path     []string    `json:"path"`
}

// Handler receives notifications in delivery order
type Handler func(Notification)

// Option configures a subscription
type Option func(*Subscription)

// WithoutBefore drops before-update notifications
func WithoutBefore() Option {
	return func(s *Subscription) { s.skipBefore = true }
}

// WithClock overrides the time source used to stamp notifications
func WithClock(now func() time.Time) Option {
	return func(s *Subscription) {
		if now != nil {
			s.now = now
		}
	}
}

type disconnector func()

// Subscription listens on every forwarder of a root and on the root's own
// update signals. Forwarders registered on the root later are picked up
// automatically.
type Subscription struct {
	root       *item.Item
	fn         Handler
	now        func() time.Time
	skipBefore bool
	seq        uint64
	logger     *zap.Logger

	hooked map[any]bool
	undo   []disconnector
	closed bool
}

// Subscribe starts delivering notifications for root to fn
func Subscribe(root item.Entity, fn Handler, opts ...Option) *Subscription {
	base := root.Base()
	s := &Subscription{
		root:   base,
		fn:     fn,
		now:    time.Now,
		logger: base.Logger(),
		hooked: make(map[any]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.hookOwn(base)
	for _, e := range base.Collections().Entries() {
		s.hookCollection(e.Value)
	}
	for _, e := range base.Properties().Entries() {
		s.hookProperty(e.Value)
	}

	colls := base.Collections().Inserted()
	h1 := colls.Connect(func(e registry.Entry[events.Kind, *forward.CollectionForwarder]) {
		s.hookCollection(e.Value)
	})
	props := base.Properties().Inserted()
	h2 := props.Connect(func(e registry.Entry[events.Kind, *forward.PropertyForwarder]) {
		s.hookProperty(e.Value)
	})
	s.undo = append(s.undo,
		func() { colls.Disconnect(h1) },
		func() { props.Disconnect(h2) })

	s.logger.Debug("feed subscribed",
		zap.String("root", events.Label(base.Node())),
		zap.Int("collections", base.Collections().Len()),
		zap.Int("properties", base.Properties().Len()))
	return s
}

// Close stops delivery and releases every listener. Close is idempotent.
func (s *Subscription) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for i := len(s.undo) - 1; i >= 0; i-- {
		s.undo[i]()
	}
	s.undo = nil
	s.hooked = nil
	s.logger.Debug("feed closed", zap.String("root", events.Label(s.root.Node())))
}

// Delivered returns the number of notifications handed to the handler
func (s *Subscription) Delivered() uint64 { return s.seq }

func (s *Subscription) hookOwn(it *item.Item) {
	kind := it.Kind()
	if !s.skipBefore {
		s.undo = append(s.undo, connect(it.BeforeUpdated(), func(e events.FieldEvent) {
			s.deliver(fromField(BeforeUpdated, kind, e))
		}))
	}
	s.undo = append(s.undo, connect(it.Updated(), func(e events.FieldEvent) {
		s.deliver(fromField(Updated, kind, e))
	}))
}

func (s *Subscription) hookProperty(f *forward.PropertyForwarder) {
	if s.hooked[f] {
		return
	}
	s.hooked[f] = true
	kind := f.Kind()
	if !s.skipBefore {
		s.undo = append(s.undo, connect(f.BeforeUpdated(), func(e events.FieldEvent) {
			s.deliver(fromField(BeforeUpdated, kind, e))
		}))
	}
	s.undo = append(s.undo, connect(f.Updated(), func(e events.FieldEvent) {
		s.deliver(fromField(Updated, kind, e))
	}))
}

func (s *Subscription) hookCollection(f *forward.CollectionForwarder) {
	if s.hooked[f] {
		return
	}
	s.hooked[f] = true
	kind := f.Kind()
	s.undo = append(s.undo,
		connect(f.ItemAdded(), func(e events.ItemEvent) {
			s.deliver(fromItem(ItemAdded, kind, e))
		}),
		connect(f.ItemRemoved(), func(e events.ItemEvent) {
			s.deliver(fromItem(ItemRemoved, kind, e))
		}),
		connect(f.ItemUpdated(), func(e events.FieldEvent) {
			s.deliver(fromField(Updated, kind, e))
		}),
		connect(f.PositionChanged(), func(e events.PositionEvent) {
			s.deliver(fromPosition(kind, e))
		}),
		connect(f.ActiveChildChanged(), func(e events.ItemEvent) {
			s.deliver(fromItem(ActiveChanged, kind, e))
		}),
	)
	if !s.skipBefore {
		s.undo = append(s.undo, connect(f.BeforeItemUpdated(), func(e events.FieldEvent) {
			s.deliver(fromField(BeforeUpdated, kind, e))
		}))
	}
}

func (s *Subscription) deliver(n Notification) {
	if s.closed {
		return
	}
	s.seq++
	n.Seq = s.seq
	n.At = s.now()
	s.fn(n)
}

func connect[E any](sig *signal.Signal[E], fn signal.Handler[E]) disconnector {
	h := sig.Connect(fn)
	return func() { sig.Disconnect(h) }
}
