package item

import (
	"go.uber.org/zap"

	"github.com/conduit-lang/cascade/internal/events"
	"github.com/conduit-lang/cascade/internal/signal"
)

type memberLink struct {
	before  signal.Handle
	updated signal.Handle
	rank    signal.Handle
}

// Collection is an ordered set of items of one kind, owned by a single item.
//
// Members are kept in ascending rank order as long as every rank change goes
// through SetRank: a rank change relocates that one member, it does not
// re-sort the sequence. Members of equal rank keep their relative order.
type Collection[T Entity] struct {
	owner *Item
	name  string
	kind  events.Kind

	items   []T
	members map[*Item]memberLink
	active  *Item

	itemAdded          signal.Signal[events.ItemEvent]
	itemRemoved        signal.Signal[events.ItemEvent]
	beforeItemUpdated  signal.Signal[events.FieldEvent]
	itemUpdated        signal.Signal[events.FieldEvent]
	positionChanged    signal.Signal[events.PositionEvent]
	activeChildChanged signal.Signal[events.ItemEvent]
}

// NewCollection declares a collection slot on owner for members of kind and
// links it into the owner's collection forwarder for that kind
func NewCollection[T Entity](owner Entity, name string, kind events.Kind) *Collection[T] {
	o := owner.Base()
	c := &Collection[T]{
		owner:   o,
		name:    name,
		kind:    kind,
		members: make(map[*Item]memberLink),
	}
	o.declareSlot(Slot{Name: name, Kind: kind, Type: CollectionSlot})
	o.DeclareCollectionEvents(kind).Link(c)
	return c
}

// Name returns the slot name
func (c *Collection[T]) Name() string { return c.name }

// Kind returns the member kind
func (c *Collection[T]) Kind() events.Kind { return c.kind }

// Owner returns the owning node
func (c *Collection[T]) Owner() events.Node { return c.owner.self }

// ItemAdded is raised after a member joined
func (c *Collection[T]) ItemAdded() *signal.Signal[events.ItemEvent] { return &c.itemAdded }

// ItemRemoved is raised after a member left
func (c *Collection[T]) ItemRemoved() *signal.Signal[events.ItemEvent] { return &c.itemRemoved }

// BeforeItemUpdated is raised before a member commits a field change
func (c *Collection[T]) BeforeItemUpdated() *signal.Signal[events.FieldEvent] {
	return &c.beforeItemUpdated
}

// ItemUpdated is raised after a member committed a field change other than its rank
func (c *Collection[T]) ItemUpdated() *signal.Signal[events.FieldEvent] { return &c.itemUpdated }

// PositionChanged is raised after a member was relocated by a rank change
func (c *Collection[T]) PositionChanged() *signal.Signal[events.PositionEvent] {
	return &c.positionChanged
}

// ActiveChildChanged is raised when Activate selects a different member
func (c *Collection[T]) ActiveChildChanged() *signal.Signal[events.ItemEvent] {
	return &c.activeChildChanged
}

// Append adds value at its rank position, after any members of equal rank.
// The owner attaches the new member before ItemAdded is raised.
func (c *Collection[T]) Append(value T) error {
	if isNil(value) {
		return ErrNilItem
	}
	b := value.Base()
	if b == c.owner {
		return ErrOwnMember
	}
	if b.collection != nil {
		return ErrAlreadyMember
	}

	b.parent = c.owner.self
	b.collection = c
	c.owner.Attach(value)
	c.members[b] = memberLink{
		before:  b.beforeUpdated.Connect(c.onMemberBeforeUpdated),
		updated: b.updated.Connect(c.onMemberUpdated),
		rank:    b.rankChanged.Connect(func(e events.FieldEvent) { c.reorder(value, e) }),
	}

	index := c.insertionIndex(b.rank)
	c.insertAt(index, value)

	c.owner.logger.Debug("collection member added",
		zap.String("owner", events.Label(c.owner.self)),
		zap.String("collection", c.name),
		zap.String("item", events.Label(b.self)),
		zap.Int("index", index))
	c.itemAdded.Emit(events.ItemEvent{Item: value, Index: index})
	return nil
}

// Remove takes value out of the collection. The owner detaches it before the
// element is removed and before ItemRemoved is raised.
func (c *Collection[T]) Remove(value T) error {
	if isNil(value) {
		return ErrNilItem
	}
	b := value.Base()
	link, ok := c.members[b]
	if !ok {
		return ErrNotMember
	}

	b.beforeUpdated.Disconnect(link.before)
	b.updated.Disconnect(link.updated)
	b.rankChanged.Disconnect(link.rank)
	delete(c.members, b)
	c.owner.Detach(value)

	b.collection = nil
	if b.parent == c.owner.self && !c.owner.Attached(value) {
		b.parent = nil
	}
	if c.active == b {
		c.active = nil
	}

	index := c.indexOf(b)
	c.removeAt(index)

	c.owner.logger.Debug("collection member removed",
		zap.String("owner", events.Label(c.owner.self)),
		zap.String("collection", c.name),
		zap.String("item", events.Label(b.self)),
		zap.Int("index", index))
	c.itemRemoved.Emit(events.ItemEvent{Item: value, Index: index})
	return nil
}

// Activate marks value as the active member and raises ActiveChildChanged.
// Activating the current active member is a no-op.
func (c *Collection[T]) Activate(value T) error {
	if isNil(value) {
		return ErrNilItem
	}
	b := value.Base()
	if _, ok := c.members[b]; !ok {
		return ErrNotMember
	}
	if c.active == b {
		return nil
	}
	c.active = b
	c.activeChildChanged.Emit(events.ItemEvent{Item: value, Index: c.indexOf(b)})
	return nil
}

// Active returns the active member, if one is set
func (c *Collection[T]) Active() (T, bool) {
	if c.active == nil {
		var zero T
		return zero, false
	}
	return c.items[c.indexOf(c.active)], true
}

// Len returns the number of members
func (c *Collection[T]) Len() int { return len(c.items) }

// At returns the member at index i
func (c *Collection[T]) At(i int) T { return c.items[i] }

// Items returns a copy of the members in order
func (c *Collection[T]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// IndexOf returns the position of value, or -1 when it is not a member
func (c *Collection[T]) IndexOf(value T) int {
	if isNil(value) {
		return -1
	}
	return c.indexOf(value.Base())
}

// Contains reports whether value is a member
func (c *Collection[T]) Contains(value T) bool {
	return c.IndexOf(value) >= 0
}

func (c *Collection[T]) onMemberBeforeUpdated(e events.FieldEvent) {
	c.beforeItemUpdated.Emit(e)
}

func (c *Collection[T]) onMemberUpdated(e events.FieldEvent) {
	// Rank changes surface as PositionChanged through reorder.
	if e.Field.Name == RankField {
		return
	}
	c.itemUpdated.Emit(e)
}

// reorder relocates one member after its rank changed. It assumes the rest
// of the sequence is already ordered.
func (c *Collection[T]) reorder(value T, e events.FieldEvent) {
	b := value.Base()
	oldIndex := c.indexOf(b)
	if oldIndex < 0 {
		return
	}
	c.removeAt(oldIndex)
	newIndex := c.insertionIndex(b.rank)
	c.insertAt(newIndex, value)

	oldRank, _ := e.Field.Old.(int)
	c.positionChanged.Emit(events.PositionEvent{
		Item:     value,
		OldIndex: oldIndex,
		NewIndex: newIndex,
		OldRank:  oldRank,
		NewRank:  b.rank,
	})
}

// insertionIndex returns the index of the first member whose rank is
// strictly greater than rank, or Len() when there is none
func (c *Collection[T]) insertionIndex(rank int) int {
	for i, v := range c.items {
		if v.Base().rank > rank {
			return i
		}
	}
	return len(c.items)
}

func (c *Collection[T]) indexOf(b *Item) int {
	for i, v := range c.items {
		if v.Base() == b {
			return i
		}
	}
	return -1
}

func (c *Collection[T]) insertAt(i int, value T) {
	var zero T
	c.items = append(c.items, zero)
	copy(c.items[i+1:], c.items[i:])
	c.items[i] = value
}

func (c *Collection[T]) removeAt(i int) {
	copy(c.items[i:], c.items[i+1:])
	var zero T
	c.items[len(c.items)-1] = zero
	c.items = c.items[:len(c.items)-1]
}
