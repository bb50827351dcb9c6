package kanban

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/cascade/internal/events"
	"github.com/conduit-lang/cascade/internal/item"
)

func cardTitles(c *Column) []string {
	var out []string
	for _, card := range c.Cards.Items() {
		out = append(out, card.Title())
	}
	return out
}

func columnNames(b *Board) []string {
	var out []string
	for _, col := range b.Columns.Items() {
		out = append(out, col.Name())
	}
	return out
}

func TestSeed(t *testing.T) {
	b, err := Seed(nil)
	require.NoError(t, err)

	assert.Equal(t, "Roadmap", b.Title())
	assert.Equal(t, []string{"Todo", "Doing", "Done"}, columnNames(b))
	require.True(t, b.Owner.IsSet())
	assert.Equal(t, "Ada", b.Owner.Get().Name())

	todo, err := b.Column("Todo")
	require.NoError(t, err)
	assert.Equal(t, []string{"Write docs", "Fix login bug", "Design schema"}, cardTitles(todo))
	assert.Same(t, b, todo.Parent())
}

func TestBoard_Lookups(t *testing.T) {
	b, err := Seed(nil)
	require.NoError(t, err)

	_, err = b.Column("Backlog")
	assert.ErrorIs(t, err, ErrColumnNotFound)

	_, _, err = b.FindCard("nope")
	assert.ErrorIs(t, err, ErrCardNotFound)

	card, col, err := b.FindCard("Review PR")
	require.NoError(t, err)
	assert.Equal(t, "Doing", col.Name())
	assert.Equal(t, "Review PR", card.Title())
}

func TestBoard_MoveCard(t *testing.T) {
	b, err := Seed(nil)
	require.NoError(t, err)

	var got []events.ItemEvent
	f, ok := b.CollectionEvents(KindCard)
	require.True(t, ok)
	f.ItemRemoved().Connect(func(e events.ItemEvent) { got = append(got, e) })
	f.ItemAdded().Connect(func(e events.ItemEvent) { got = append(got, e) })

	require.NoError(t, b.MoveCard("Fix login bug", "Doing"))

	todo, _ := b.Column("Todo")
	doing, _ := b.Column("Doing")
	assert.Equal(t, []string{"Write docs", "Design schema"}, cardTitles(todo))
	assert.Equal(t, []string{"Review PR", "Fix login bug"}, cardTitles(doing))

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, []events.Node{todo, b}, got[0].Path.Holders())
	assert.Equal(t, 1, got[1].Index)
	assert.Equal(t, []events.Node{doing, b}, got[1].Path.Holders())

	assert.NoError(t, b.MoveCard("Fix login bug", "Doing"))
	assert.ErrorIs(t, b.MoveCard("Fix login bug", "Backlog"), ErrColumnNotFound)
}

func TestBoard_AssigneeReachesBoard(t *testing.T) {
	b, err := Seed(nil)
	require.NoError(t, err)

	card, _, err := b.FindCard("Review PR")
	require.NoError(t, err)
	grace := NewPerson("Grace")
	card.Assignee.Set(grace)

	var origins []events.Node
	b.Properties().MustGet(KindPerson).Updated().Connect(func(e events.FieldEvent) {
		origins = append(origins, e.Item)
	})

	grace.SetName("Grace Hopper")
	b.Owner.Get().SetName("Ada Lovelace")

	require.Len(t, origins, 2)
	assert.Same(t, grace, origins[0])
	assert.Same(t, b.Owner.Get(), origins[1])
}

func TestScenario_RunsOnSeed(t *testing.T) {
	b, err := Seed(nil)
	require.NoError(t, err)

	require.NoError(t, Run(b, Scenario()))

	assert.Equal(t, []string{"Todo", "Doing", "Review", "Done"}, columnNames(b))
	todo, _ := b.Column("Todo")
	doing, _ := b.Column("Doing")
	done, _ := b.Column("Done")
	assert.Equal(t, []string{"Design schema", "Write the docs"}, cardTitles(todo))
	assert.Equal(t, []string{"Fix login bug"}, cardTitles(doing))
	assert.Equal(t, []string{"Review PR"}, cardTitles(done))
	assert.Equal(t, "Linus", b.Owner.Get().Name())

	active, ok := b.Columns.Active()
	require.True(t, ok)
	assert.Same(t, doing, active)

	card, _, err := b.FindCard("Fix login bug")
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", card.Assignee.Get().Name())
}

func TestRun_StopsAtFirstError(t *testing.T) {
	b, err := Seed(nil)
	require.NoError(t, err)

	calls := 0
	steps := []Step{
		{Name: "broken", Apply: func(b *Board) error { return b.MoveCard("missing", "Done") }},
		{Name: "never", Apply: func(*Board) error { calls++; return nil }},
	}
	err = Run(b, steps)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCardNotFound)
	assert.Contains(t, err.Error(), `step "broken" failed`)
	assert.Zero(t, calls)
}

func TestCatalog(t *testing.T) {
	c := Catalog()
	assert.Equal(t, []events.Kind{KindBoard, KindColumn, KindCard, KindPerson}, c.Keys())
	assert.Equal(t, []item.Slot{
		{Name: "columns", Kind: KindColumn, Type: item.CollectionSlot},
		{Name: "owner", Kind: KindPerson, Type: item.PropertySlot},
	}, c.MustGet(KindBoard))
	assert.Empty(t, c.MustGet(KindPerson))
}
