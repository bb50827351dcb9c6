package item

import (
	"github.com/conduit-lang/cascade/internal/events"
)

// SetField assigns value to *field, raising BeforeUpdated before the write and
// Updated after it. Writing the current value is a no-op that raises nothing.
// It reports whether the field changed.
//
// SetField is for plain values. Child item references go through Reference so
// that the child is detached and attached around the write.
func SetField[T comparable](it *Item, field *T, value T, name string) bool {
	old := *field
	if old == value {
		return false
	}
	change := events.Field{Name: name, Old: old, New: value}
	it.beforeUpdated.Emit(events.FieldEvent{Item: it.self, Field: change})
	*field = value
	it.updated.Emit(events.FieldEvent{Item: it.self, Field: change})
	return true
}

// SetRank changes the ordering key. The owning collection relocates the item
// on RankChanged, which is raised between BeforeUpdated and Updated.
func (it *Item) SetRank(rank int) bool {
	if it.rank == rank {
		return false
	}
	change := events.Field{Name: RankField, Old: it.rank, New: rank}
	it.beforeUpdated.Emit(events.FieldEvent{Item: it.self, Field: change})
	it.rank = rank
	it.rankChanged.Emit(events.FieldEvent{Item: it.self, Field: change})
	it.updated.Emit(events.FieldEvent{Item: it.self, Field: change})
	return true
}
