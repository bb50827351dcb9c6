package item

import "errors"

var (
	// ErrNilItem is returned when a nil item is passed to a collection
	ErrNilItem = errors.New("item: nil item")

	// ErrAlreadyMember is returned when appending an item that already
	// belongs to a collection
	ErrAlreadyMember = errors.New("item: already a member of a collection")

	// ErrNotMember is returned when an item is not in the collection
	ErrNotMember = errors.New("item: not a member of this collection")

	// ErrOwnMember is returned when an item is appended to its own collection
	ErrOwnMember = errors.New("item: cannot contain itself")
)
