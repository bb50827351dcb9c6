package item

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/cascade/internal/events"
)

const (
	kindBoard  events.Kind = "board"
	kindColumn events.Kind = "column"
	kindCard   events.Kind = "card"
	kindPerson events.Kind = "person"
)

type testPerson struct {
	*Item
	name string
}

func newPerson(name string) *testPerson {
	p := &testPerson{name: name}
	p.Item = New(p, kindPerson)
	return p
}

func (p *testPerson) SetName(name string) bool { return SetField(p.Item, &p.name, name, "name") }

type testCard struct {
	*Item
	title    string
	Assignee *Reference[*testPerson]
}

func newCard(title string, rank int) *testCard {
	c := &testCard{title: title}
	c.Item = New(c, kindCard, WithRank(rank))
	c.Assignee = NewReference[*testPerson](c, "assignee", kindPerson)
	return c
}

func (c *testCard) SetTitle(title string) bool { return SetField(c.Item, &c.title, title, "title") }

type testColumn struct {
	*Item
	name  string
	Cards *Collection[*testCard]
}

func newColumn(name string) *testColumn {
	c := &testColumn{name: name}
	c.Item = New(c, kindColumn)
	c.Cards = NewCollection[*testCard](c, "cards", kindCard)
	return c
}

func (c *testColumn) SetName(name string) bool { return SetField(c.Item, &c.name, name, "name") }

type testBoard struct {
	*Item
	Columns *Collection[*testColumn]
	Owner   *Reference[*testPerson]
}

func newBoard() *testBoard {
	b := &testBoard{}
	b.Item = New(b, kindBoard)
	b.Columns = NewCollection[*testColumn](b, "columns", kindColumn)
	b.Owner = NewReference[*testPerson](b, "owner", kindPerson)
	return b
}

// testShelf holds cards in a collection and can also point at them
type testShelf struct {
	*Item
	Cards  *Collection[*testCard]
	Pinned *Reference[*testCard]
	Spare  *Reference[*testCard]
}

func newShelf() *testShelf {
	s := &testShelf{}
	s.Item = New(s, "shelf")
	s.Cards = NewCollection[*testCard](s, "cards", kindCard)
	s.Pinned = NewReference[*testCard](s, "pinned", kindCard)
	s.Spare = NewReference[*testCard](s, "spare", kindCard)
	return s
}

func TestNew_Defaults(t *testing.T) {
	id := uuid.New()
	c := &testCard{}
	c.Item = New(c, kindCard, WithID(id), WithRank(7), WithLogger(nil))

	assert.Equal(t, id, c.ID())
	assert.Equal(t, kindCard, c.Kind())
	assert.Equal(t, 7, c.Rank())
	assert.Same(t, c, c.Node())
	assert.NotNil(t, c.Logger())
	assert.Nil(t, c.Parent())
	assert.False(t, c.InCollection())
}

func TestNew_NilSelf(t *testing.T) {
	it := New(nil, "plain")
	assert.Same(t, it, it.Node())
	assert.Same(t, it, it.Base())
}

func TestSlots_DeclarationOrder(t *testing.T) {
	b := newBoard()

	assert.Equal(t, []Slot{
		{Name: "columns", Kind: kindColumn, Type: CollectionSlot},
		{Name: "owner", Kind: kindPerson, Type: PropertySlot},
	}, b.Slots())
	assert.Equal(t, "collection", CollectionSlot.String())
	assert.Equal(t, "property", PropertySlot.String())

	_, ok := b.CollectionEvents(kindColumn)
	assert.True(t, ok)
	_, ok = b.PropertyEvents(kindPerson)
	assert.True(t, ok)
}

func TestSetField_BeforeCommitAfter(t *testing.T) {
	p := newPerson("ada")

	var seen []string
	p.BeforeUpdated().Connect(func(e events.FieldEvent) {
		seen = append(seen, "before:"+p.name)
		assert.Equal(t, "name", e.Field.Name)
		assert.Equal(t, "ada", e.Field.Old)
		assert.Equal(t, "grace", e.Field.New)
	})
	p.Updated().Connect(func(e events.FieldEvent) {
		seen = append(seen, "after:"+p.name)
		assert.Same(t, p, e.Item)
	})

	require.True(t, p.SetName("grace"))
	assert.Equal(t, []string{"before:ada", "after:grace"}, seen)
}

func TestSetField_SameValueIsNoop(t *testing.T) {
	p := newPerson("ada")
	calls := 0
	p.BeforeUpdated().Connect(func(events.FieldEvent) { calls++ })
	p.Updated().Connect(func(events.FieldEvent) { calls++ })

	assert.False(t, p.SetName("ada"))
	assert.Zero(t, calls)
}

func TestSetRank_EventOrder(t *testing.T) {
	c := newCard("a", 1)

	var seen []string
	c.BeforeUpdated().Connect(func(events.FieldEvent) { seen = append(seen, "before") })
	c.RankChanged().Connect(func(e events.FieldEvent) {
		seen = append(seen, "rank")
		assert.Equal(t, 2, c.Rank())
		assert.Equal(t, RankField, e.Field.Name)
	})
	c.Updated().Connect(func(events.FieldEvent) { seen = append(seen, "after") })

	require.True(t, c.SetRank(2))
	assert.False(t, c.SetRank(2))
	assert.Equal(t, []string{"before", "rank", "after"}, seen)
}

func TestAttach_Idempotent(t *testing.T) {
	owner := newColumn("todo")
	child := newCard("a", 1)

	require.True(t, owner.Attach(child))
	assert.False(t, owner.Attach(child))
	assert.Equal(t, 1, owner.AttachedCount())
	assert.True(t, owner.Attached(child))

	f := owner.Properties().MustGet(kindPerson)
	assert.Equal(t, 1, f.LinkCount())

	p := newPerson("ada")
	child.Assignee.Set(p)

	calls := 0
	f.Updated().Connect(func(events.FieldEvent) { calls++ })
	p.SetName("grace")
	assert.Equal(t, 1, calls)

	// The second Attach took a hold; releasing it keeps the wiring.
	assert.Equal(t, 2, owner.Holds(child))
	assert.False(t, owner.Detach(child))
	assert.True(t, owner.Attached(child))
	p.SetName("hopper")
	assert.Equal(t, 2, calls)

	assert.True(t, owner.Detach(child))
	assert.Zero(t, owner.Holds(child))
	p.SetName("lovelace")
	assert.Equal(t, 2, calls)
}

func TestAttach_Self(t *testing.T) {
	c := newColumn("todo")
	assert.False(t, c.Attach(c))
	assert.False(t, c.Detach(c))
}

func TestDetach_NotAttachedIsNoop(t *testing.T) {
	owner := newColumn("todo")
	assert.False(t, owner.Detach(newCard("a", 1)))
	assert.Zero(t, owner.AttachedCount())
}

func TestAttach_LateBinding(t *testing.T) {
	root := newBoard()
	col := newColumn("todo")
	require.NoError(t, root.Columns.Append(col))

	_, ok := root.CollectionEvents("tag")
	require.False(t, ok)

	// A kind introduced below the column after attach time reaches the root.
	tags := NewCollection[*testCard](col, "tags", "tag")
	f, ok := root.CollectionEvents("tag")
	require.True(t, ok)

	var added []events.ItemEvent
	f.ItemAdded().Connect(func(e events.ItemEvent) { added = append(added, e) })

	card := newCard("tagged", 0)
	require.NoError(t, tags.Append(card))
	require.Len(t, added, 1)
	assert.Equal(t, []events.Node{col, root}, added[0].Path.Holders())
}

func TestDetach_PrunesLazyForwarders(t *testing.T) {
	owner := newColumn("todo")
	child := newCard("a", 1)
	before := owner.Properties().Keys()

	owner.Attach(child)
	assert.Contains(t, owner.Properties().Keys(), kindPerson)

	owner.Detach(child)
	assert.Equal(t, before, owner.Properties().Keys())

	// Declared forwarders on the child survive.
	_, ok := child.PropertyEvents(kindPerson)
	assert.True(t, ok)
}

func TestDetach_KeepsSubscribedForwarder(t *testing.T) {
	owner := newColumn("todo")
	child := newCard("a", 1)

	owner.Attach(child)
	f := owner.Properties().MustGet(kindPerson)
	f.Updated().Connect(func(events.FieldEvent) {})

	owner.Detach(child)
	got, ok := owner.PropertyEvents(kindPerson)
	require.True(t, ok)
	assert.Same(t, f, got)
}
