package feed

import (
	"github.com/conduit-lang/cascade/internal/events"
	"github.com/conduit-lang/cascade/internal/item"
)

func base(t Type, kind events.Kind, origin events.Node, path events.Path) Notification {
	n := Notification{
		Type:     t,
		Kind:     kind,
		Item:     events.Label(origin),
		Path:     path.Labels(),
		Index:    -1,
		OldIndex: -1,
		NewIndex: -1,
	}
	if origin != nil {
		n.ItemID = origin.ID().String()
		n.ItemKind = origin.Kind()
	}
	return n
}

func fromField(t Type, kind events.Kind, e events.FieldEvent) Notification {
	n := base(t, kind, e.Item, e.Path)
	n.Field = e.Field.Name
	n.Old = value(e.Field.Old)
	n.New = value(e.Field.New)
	return n
}

func fromItem(t Type, kind events.Kind, e events.ItemEvent) Notification {
	n := base(t, kind, e.Item, e.Path)
	n.Index = e.Index
	return n
}

func fromPosition(kind events.Kind, e events.PositionEvent) Notification {
	n := base(PositionChanged, kind, e.Item, e.Path)
	n.Field = item.RankField
	n.Old = e.OldRank
	n.New = e.NewRank
	n.OldIndex = e.OldIndex
	n.NewIndex = e.NewIndex
	return n
}

// value replaces item references with their labels so notifications never
// hold on to tree nodes
func value(v any) any {
	if node, ok := v.(events.Node); ok {
		return events.Label(node)
	}
	return v
}
