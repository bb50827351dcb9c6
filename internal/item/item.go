// Package item implements hierarchy nodes that cascade their change events to
// every attached ancestor.
//
// Concrete item types embed *Item and declare their child slots at construction
// time through NewCollection, NewReference, DeclareCollectionEvents and
// DeclarePropertyEvents. There is no reflective discovery: the slots an item
// declares, plus whatever its children expose, are what it forwards.
//
//	type Column struct {
//		*item.Item
//		Cards *item.Collection[*Card]
//	}
//
//	func NewColumn() *Column {
//		c := &Column{}
//		c.Item = item.New(c, KindColumn)
//		c.Cards = item.NewCollection[*Card](c, "cards", KindCard)
//		return c
//	}
//
// The tree is single-threaded and synchronous: every event has reached every
// attached ancestor by the time the mutating call returns. The attach graph
// must stay acyclic.
package item

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conduit-lang/cascade/internal/events"
	"github.com/conduit-lang/cascade/internal/forward"
	"github.com/conduit-lang/cascade/internal/registry"
	"github.com/conduit-lang/cascade/internal/signal"
)

// RankField is the field name reported for rank changes
const RankField = "rank"

// Entity is implemented by every concrete item type through its embedded *Item
type Entity interface {
	events.Node
	Base() *Item
}

// PropertyRegistry holds one property forwarder per referenced kind
type PropertyRegistry = registry.Registry[events.Kind, *forward.PropertyForwarder]

// CollectionRegistry holds one collection forwarder per member kind
type CollectionRegistry = registry.Registry[events.Kind, *forward.CollectionForwarder]

// SlotType distinguishes reference slots from collection slots
type SlotType int

const (
	// PropertySlot is a singular child reference
	PropertySlot SlotType = iota
	// CollectionSlot is an ordered child collection
	CollectionSlot
)

// String returns the slot type name
func (t SlotType) String() string {
	if t == CollectionSlot {
		return "collection"
	}
	return "property"
}

// Slot is one entry of an item's capability table
type Slot struct {
	Name string
	Kind events.Kind
	Type SlotType
}

// Option configures an Item
type Option func(*Item)

// WithLogger sets the logger used for attach/detach diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(it *Item) {
		if logger != nil {
			it.logger = logger
		}
	}
}

// WithID overrides the generated identity
func WithID(id uuid.UUID) Option {
	return func(it *Item) { it.id = id }
}

// WithRank sets the initial rank without raising any event
func WithRank(rank int) Option {
	return func(it *Item) { it.rank = rank }
}

// Item is the embeddable base of every hierarchy node
type Item struct {
	id     uuid.UUID
	kind   events.Kind
	self   events.Node
	rank   int
	logger *zap.Logger

	// parent is a non-owning back-reference; ownership runs from the
	// collection or reference slot down to the member.
	parent     events.Node
	collection any

	properties  *PropertyRegistry
	collections *CollectionRegistry

	slots               []Slot
	declaredProperties  map[events.Kind]bool
	declaredCollections map[events.Kind]bool

	beforeUpdated signal.Signal[events.FieldEvent]
	updated       signal.Signal[events.FieldEvent]
	rankChanged   signal.Signal[events.FieldEvent]

	attached map[*Item]*attachment

	// referenced counts the reference slots that link a held item directly
	// into one of this item's property forwarders
	referenced map[referenceKey]int
}

// New creates the base of a concrete item. self is the concrete value that
// embeds the returned Item; it is what events report as their origin and
// what forwarders stamp into paths. A nil self makes the Item its own node.
func New(self events.Node, kind events.Kind, opts ...Option) *Item {
	it := &Item{
		id:                  uuid.New(),
		kind:                kind,
		self:                self,
		logger:              zap.NewNop(),
		properties:          registry.New[events.Kind, *forward.PropertyForwarder](),
		collections:         registry.New[events.Kind, *forward.CollectionForwarder](),
		declaredProperties:  make(map[events.Kind]bool),
		declaredCollections: make(map[events.Kind]bool),
		attached:            make(map[*Item]*attachment),
		referenced:          make(map[referenceKey]int),
	}
	if it.self == nil {
		it.self = it
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// ID returns the item identity
func (it *Item) ID() uuid.UUID { return it.id }

// Kind returns the declared runtime kind
func (it *Item) Kind() events.Kind { return it.kind }

// Base returns the item itself; concrete types inherit it through embedding
func (it *Item) Base() *Item { return it }

// Node returns the concrete value this item reports as
func (it *Item) Node() events.Node { return it.self }

// Logger returns the item's logger
func (it *Item) Logger() *zap.Logger { return it.logger }

// Rank returns the ordering key used by the owning collection
func (it *Item) Rank() int { return it.rank }

// Parent returns the current owner, or nil when the item is detached
func (it *Item) Parent() events.Node { return it.parent }

// InCollection reports whether the item is a member of a collection
func (it *Item) InCollection() bool { return it.collection != nil }

// BeforeUpdated is raised before a field change is committed
func (it *Item) BeforeUpdated() *signal.Signal[events.FieldEvent] { return &it.beforeUpdated }

// Updated is raised after a field change was committed
func (it *Item) Updated() *signal.Signal[events.FieldEvent] { return &it.updated }

// RankChanged is raised after a rank change was committed, before Updated
func (it *Item) RankChanged() *signal.Signal[events.FieldEvent] { return &it.rankChanged }

// Properties returns the property forwarder registry
func (it *Item) Properties() *PropertyRegistry { return it.properties }

// Collections returns the collection forwarder registry
func (it *Item) Collections() *CollectionRegistry { return it.collections }

// Slots returns the declared capability table in declaration order
func (it *Item) Slots() []Slot {
	out := make([]Slot, len(it.slots))
	copy(out, it.slots)
	return out
}

// PropertyEvents returns the forwarder for referenced items of kind, if any
func (it *Item) PropertyEvents(kind events.Kind) (*forward.PropertyForwarder, bool) {
	return it.properties.Get(kind)
}

// CollectionEvents returns the forwarder for collections of kind, if any
func (it *Item) CollectionEvents(kind events.Kind) (*forward.CollectionForwarder, bool) {
	return it.collections.Get(kind)
}

// DeclarePropertyEvents ensures a property forwarder for kind exists and is
// kept for the item's lifetime, so listeners can subscribe before any item of
// that kind appears below this one
func (it *Item) DeclarePropertyEvents(kind events.Kind) *forward.PropertyForwarder {
	it.declaredProperties[kind] = true
	return it.propertyForwarder(kind)
}

// DeclareCollectionEvents ensures a collection forwarder for kind exists and
// is kept for the item's lifetime
func (it *Item) DeclareCollectionEvents(kind events.Kind) *forward.CollectionForwarder {
	it.declaredCollections[kind] = true
	return it.collectionForwarder(kind)
}

func (it *Item) declareSlot(slot Slot) {
	it.slots = append(it.slots, slot)
}
