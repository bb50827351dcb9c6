package item

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/conduit-lang/cascade/internal/events"
)

// Reference is a singular child-reference slot of an owner item.
// The referenced item is attached to the owner while it is held.
type Reference[T Entity] struct {
	owner *Item
	name  string
	kind  events.Kind
	value T
	set   bool
}

// NewReference declares a reference slot on owner for items of kind
func NewReference[T Entity](owner Entity, name string, kind events.Kind) *Reference[T] {
	o := owner.Base()
	o.declareSlot(Slot{Name: name, Kind: kind, Type: PropertySlot})
	o.DeclarePropertyEvents(kind)
	return &Reference[T]{owner: o, name: name, kind: kind}
}

// Name returns the slot name reported in field events
func (r *Reference[T]) Name() string { return r.name }

// Kind returns the kind of item the slot holds
func (r *Reference[T]) Kind() events.Kind { return r.kind }

// Get returns the referenced item, or the zero value when unset
func (r *Reference[T]) Get() T { return r.value }

// IsSet reports whether the slot holds an item
func (r *Reference[T]) IsSet() bool { return r.set }

// Set replaces the referenced item. A nil value clears the slot.
// The owner raises BeforeUpdated, detaches the old item, commits, attaches the
// new item and raises Updated. Setting the current item is a no-op.
func (r *Reference[T]) Set(value T) bool {
	if isNil(value) {
		return r.Clear()
	}
	if r.set && r.value.Base() == value.Base() {
		return false
	}
	return r.replace(value, true)
}

// Clear empties the slot. Clearing an empty slot is a no-op.
func (r *Reference[T]) Clear() bool {
	if !r.set {
		return false
	}
	var zero T
	return r.replace(zero, false)
}

func (r *Reference[T]) replace(value T, set bool) bool {
	o := r.owner
	change := events.Field{Name: r.name, Old: r.current(), New: nodeOrNil(value, set)}
	o.beforeUpdated.Emit(events.FieldEvent{Item: o.self, Field: change})

	if r.set {
		r.unbind(r.value)
	}
	r.value, r.set = value, set
	if set {
		r.bind(value)
	}

	o.updated.Emit(events.FieldEvent{Item: o.self, Field: change})
	return true
}

type referenceKey struct {
	kind events.Kind
	item *Item
}

func (r *Reference[T]) bind(value T) {
	o, b := r.owner, value.Base()
	o.Attach(value)
	key := referenceKey{kind: r.kind, item: b}
	o.referenced[key]++
	if o.referenced[key] == 1 {
		o.propertyForwarder(r.kind).Link(b)
	}
	if b.parent == nil {
		b.parent = o.self
	}
	o.logger.Debug("reference bound",
		zap.String("owner", events.Label(o.self)),
		zap.String("slot", r.name),
		zap.String("item", events.Label(b.self)))
}

func (r *Reference[T]) unbind(value T) {
	o, b := r.owner, value.Base()
	key := referenceKey{kind: r.kind, item: b}
	if o.referenced[key]--; o.referenced[key] == 0 {
		delete(o.referenced, key)
		if f, ok := o.properties.Get(r.kind); ok {
			f.Unlink(b)
		}
	}
	o.Detach(value)
	if b.parent == o.self && !o.Attached(value) {
		b.parent = nil
	}
	o.logger.Debug("reference unbound",
		zap.String("owner", events.Label(o.self)),
		zap.String("slot", r.name),
		zap.String("item", events.Label(b.self)))
}

func (r *Reference[T]) current() events.Node {
	return nodeOrNil(r.value, r.set)
}

func nodeOrNil[T Entity](value T, set bool) events.Node {
	if !set {
		return nil
	}
	return value
}

// isNil reports whether v is a nil interface or a typed nil pointer
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
