package kanban

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/cascade/internal/events"
	"github.com/conduit-lang/cascade/internal/item"
	"github.com/conduit-lang/cascade/internal/registry"
)

// Step is one named mutation of the demo scenario
type Step struct {
	Name  string
	Apply func(*Board) error
}

type seedColumn struct {
	name  string
	cards []string
}

var seedColumns = []seedColumn{
	{name: "Todo", cards: []string{"Write docs", "Fix login bug", "Design schema"}},
	{name: "Doing", cards: []string{"Review PR"}},
	{name: "Done", cards: []string{"Set up CI"}},
}

// Seed builds the sample board used by the demo. Columns and cards are ranked
// 1..n in the order listed.
func Seed(logger *zap.Logger) (*Board, error) {
	opt := item.WithLogger(logger)

	board := NewBoard("Roadmap", opt)
	board.Owner.Set(NewPerson("Ada", opt))

	for i, sc := range seedColumns {
		col := NewColumn(sc.name, i+1, opt)
		for j, title := range sc.cards {
			if err := col.Cards.Append(NewCard(title, j+1, opt)); err != nil {
				return nil, fmt.Errorf("failed to seed card %q: %w", title, err)
			}
		}
		if err := board.Columns.Append(col); err != nil {
			return nil, fmt.Errorf("failed to seed column %q: %w", sc.name, err)
		}
	}
	return board, nil
}

// Scenario returns the scripted mutations run against a seeded board
func Scenario() []Step {
	return []Step{
		{Name: "rename card", Apply: func(b *Board) error {
			card, _, err := b.FindCard("Write docs")
			if err != nil {
				return err
			}
			card.SetTitle("Write the docs")
			return nil
		}},
		{Name: "assign card", Apply: func(b *Board) error {
			card, _, err := b.FindCard("Fix login bug")
			if err != nil {
				return err
			}
			card.Assignee.Set(NewPerson("Grace", item.WithLogger(b.Logger())))
			return nil
		}},
		{Name: "rename assignee", Apply: func(b *Board) error {
			card, _, err := b.FindCard("Fix login bug")
			if err != nil {
				return err
			}
			if !card.Assignee.IsSet() {
				return fmt.Errorf("card %q has no assignee", card.Title())
			}
			card.Assignee.Get().SetName("Grace Hopper")
			return nil
		}},
		{Name: "reprioritise card", Apply: func(b *Board) error {
			card, _, err := b.FindCard("Design schema")
			if err != nil {
				return err
			}
			card.SetRank(0)
			return nil
		}},
		{Name: "start card", Apply: func(b *Board) error {
			return b.MoveCard("Fix login bug", "Doing")
		}},
		{Name: "activate column", Apply: func(b *Board) error {
			col, err := b.Column("Doing")
			if err != nil {
				return err
			}
			return b.Columns.Activate(col)
		}},
		{Name: "finish card", Apply: func(b *Board) error {
			if err := b.MoveCard("Review PR", "Done"); err != nil {
				return err
			}
			card, _, err := b.FindCard("Review PR")
			if err != nil {
				return err
			}
			card.SetDone(true)
			return nil
		}},
		{Name: "add column", Apply: func(b *Board) error {
			return b.Columns.Append(NewColumn("Review", 3, item.WithLogger(b.Logger())))
		}},
		{Name: "move done column last", Apply: func(b *Board) error {
			col, err := b.Column("Done")
			if err != nil {
				return err
			}
			col.SetRank(4)
			return nil
		}},
		{Name: "archive card", Apply: func(b *Board) error {
			card, col, err := b.FindCard("Set up CI")
			if err != nil {
				return err
			}
			return col.Cards.Remove(card)
		}},
		{Name: "hand over board", Apply: func(b *Board) error {
			b.Owner.Set(NewPerson("Linus", item.WithLogger(b.Logger())))
			return nil
		}},
	}
}

// Run applies every step in order, stopping at the first error
func Run(b *Board, steps []Step) error {
	for _, step := range steps {
		if err := step.Apply(b); err != nil {
			return fmt.Errorf("step %q failed: %w", step.Name, err)
		}
	}
	return nil
}

// Catalog returns the declared slots of every kanban kind, keyed by kind
func Catalog() *registry.Registry[events.Kind, []item.Slot] {
	r := registry.New[events.Kind, []item.Slot]()
	// Kinds are distinct, Insert cannot fail.
	_ = r.Insert(KindBoard, NewBoard("").Slots())
	_ = r.Insert(KindColumn, NewColumn("", 0).Slots())
	_ = r.Insert(KindCard, NewCard("", 0).Slots())
	_ = r.Insert(KindPerson, NewPerson("").Slots())
	return r
}
