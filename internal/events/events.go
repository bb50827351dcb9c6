// Package events defines the payloads that travel through an item tree.
//
// Every payload is an immutable value carrying its origin data plus a Path of
// the holders it was forwarded through. Forwarding never mutates a payload in
// place: Stack returns a copy whose path has one more entry, so two
// propagation chains can never observe each other's path.
package events

import (
	"github.com/google/uuid"
)

// Kind is the explicit runtime type identity of an item.
// Concrete item types declare their kind at construction.
type Kind string

// String returns the kind name
func (k Kind) String() string { return string(k) }

// Node is anything that can appear as an event origin or path holder
type Node interface {
	ID() uuid.UUID
	Kind() Kind
}

// Label renders a node as "kind:shortid", or "<nil>" for a nil node
func Label(n Node) string {
	if n == nil {
		return "<nil>"
	}
	id := n.ID().String()
	return n.Kind().String() + ":" + id[:8]
}

// Field describes a field mutation.
// For BeforeUpdated, New holds the pending value; for Updated, the committed one.
type Field struct {
	Name string
	Old  any
	New  any
}

// ItemEvent reports a collection membership change or an active child change
type ItemEvent struct {
	Item  Node
	Index int
	Path  Path
}

// Stack returns a copy of the event with holder appended to its path
func (e ItemEvent) Stack(holder Node) ItemEvent {
	e.Path = e.Path.Stack(holder)
	return e
}

// FieldEvent reports a field mutation, before or after it is committed
type FieldEvent struct {
	Item  Node
	Field Field
	Path  Path
}

// Stack returns a copy of the event with holder appended to its path
func (e FieldEvent) Stack(holder Node) FieldEvent {
	e.Path = e.Path.Stack(holder)
	return e
}

// PositionEvent reports an item moved inside its collection after a rank change
type PositionEvent struct {
	Item     Node
	OldIndex int
	NewIndex int
	OldRank  int
	NewRank  int
	Path     Path
}

// Stack returns a copy of the event with holder appended to its path
func (e PositionEvent) Stack(holder Node) PositionEvent {
	e.Path = e.Path.Stack(holder)
	return e
}
