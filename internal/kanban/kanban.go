// Package kanban is a small board model built on item. It is used by the CLI
// demo and the stream server, and as an example of how concrete item types
// declare their slots.
package kanban

import (
	"errors"
	"fmt"

	"github.com/conduit-lang/cascade/internal/events"
	"github.com/conduit-lang/cascade/internal/item"
)

// Runtime kinds of the kanban item types
const (
	// KindBoard is the root of a kanban tree
	KindBoard events.Kind = "board"

	// KindColumn is an ordered list of cards on a board
	KindColumn events.Kind = "column"

	// KindCard is a single piece of work
	KindCard events.Kind = "card"

	// KindPerson is a board owner or card assignee
	KindPerson events.Kind = "person"
)

var (
	// ErrColumnNotFound is returned when a board has no column with the given name
	ErrColumnNotFound = errors.New("kanban: column not found")

	// ErrCardNotFound is returned when no column on the board holds the card
	ErrCardNotFound = errors.New("kanban: card not found")
)

// Person can own a board or be assigned to a card
type Person struct {
	*item.Item
	name string
}

// NewPerson creates a new Person
func NewPerson(name string, opts ...item.Option) *Person {
	p := &Person{name: name}
	p.Item = item.New(p, KindPerson, opts...)
	return p
}

// Name returns the person's display name
func (p *Person) Name() string { return p.name }

// SetName renames the person
func (p *Person) SetName(name string) bool {
	return item.SetField(p.Item, &p.name, name, "name")
}

// Card is a unit of work held by a column
type Card struct {
	*item.Item
	title    string
	done     bool
	Assignee *item.Reference[*Person]
}

// NewCard creates a new Card with the given rank
func NewCard(title string, rank int, opts ...item.Option) *Card {
	c := &Card{title: title}
	c.Item = item.New(c, KindCard, append([]item.Option{item.WithRank(rank)}, opts...)...)
	c.Assignee = item.NewReference[*Person](c, "assignee", KindPerson)
	return c
}

// Title returns the card title
func (c *Card) Title() string { return c.title }

// Done reports whether the card is complete
func (c *Card) Done() bool { return c.done }

// SetTitle renames the card
func (c *Card) SetTitle(title string) bool {
	return item.SetField(c.Item, &c.title, title, "title")
}

// SetDone marks the card complete or open
func (c *Card) SetDone(done bool) bool {
	return item.SetField(c.Item, &c.done, done, "done")
}

// Column is an ordered list of cards
type Column struct {
	*item.Item
	name  string
	Cards *item.Collection[*Card]
}

// NewColumn creates a new Column with the given rank
func NewColumn(name string, rank int, opts ...item.Option) *Column {
	c := &Column{name: name}
	c.Item = item.New(c, KindColumn, append([]item.Option{item.WithRank(rank)}, opts...)...)
	c.Cards = item.NewCollection[*Card](c, "cards", KindCard)
	return c
}

// Name returns the column name
func (c *Column) Name() string { return c.name }

// SetName renames the column
func (c *Column) SetName(name string) bool {
	return item.SetField(c.Item, &c.name, name, "name")
}

// Card returns the first card with the given title
func (c *Column) Card(title string) (*Card, bool) {
	for _, card := range c.Cards.Items() {
		if card.title == title {
			return card, true
		}
	}
	return nil, false
}

// Board is the root of a kanban tree
type Board struct {
	*item.Item
	title   string
	Columns *item.Collection[*Column]
	Owner   *item.Reference[*Person]
}

// NewBoard creates a new Board
func NewBoard(title string, opts ...item.Option) *Board {
	b := &Board{title: title}
	b.Item = item.New(b, KindBoard, opts...)
	b.Columns = item.NewCollection[*Column](b, "columns", KindColumn)
	b.Owner = item.NewReference[*Person](b, "owner", KindPerson)
	// Cards and assignees are visible at the board before any column exists.
	b.DeclareCollectionEvents(KindCard)
	return b
}

// Title returns the board title
func (b *Board) Title() string { return b.title }

// SetTitle renames the board
func (b *Board) SetTitle(title string) bool {
	return item.SetField(b.Item, &b.title, title, "title")
}

// Column returns the column with the given name
func (b *Board) Column(name string) (*Column, error) {
	for _, c := range b.Columns.Items() {
		if c.name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// FindCard returns the first card with the given title and its column
func (b *Board) FindCard(title string) (*Card, *Column, error) {
	for _, col := range b.Columns.Items() {
		if card, ok := col.Card(title); ok {
			return card, col, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrCardNotFound, title)
}

// MoveCard moves the card with the given title into the named column,
// keeping its rank
func (b *Board) MoveCard(title, column string) error {
	card, from, err := b.FindCard(title)
	if err != nil {
		return err
	}
	to, err := b.Column(column)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if err := from.Cards.Remove(card); err != nil {
		return fmt.Errorf("failed to move card %q: %w", title, err)
	}
	if err := to.Cards.Append(card); err != nil {
		return fmt.Errorf("failed to move card %q: %w", title, err)
	}
	return nil
}
