package item

import (
	"go.uber.org/zap"

	"github.com/conduit-lang/cascade/internal/events"
	"github.com/conduit-lang/cascade/internal/forward"
	"github.com/conduit-lang/cascade/internal/registry"
	"github.com/conduit-lang/cascade/internal/signal"
)

// attachment records what Attach subscribed on a child so Detach can undo it.
// holds counts the slots of the owner that currently hold the child.
type attachment struct {
	child *Item
	holds int

	collectionsInserted signal.Handle
	propertiesInserted  signal.Handle
	collectionsDeleted  signal.Handle
	propertiesDeleted   signal.Handle
}

// Attach wires every forwarder the child exposes into this item's registries
// and keeps watching the child for kinds registered or pruned later. Attaching
// a child that is already attached only takes another hold on it; Attach
// reports whether anything was wired.
func (it *Item) Attach(child Entity) bool {
	c := child.Base()
	if c == it {
		return false
	}
	if a, ok := it.attached[c]; ok {
		a.holds++
		return false
	}

	for _, e := range c.collections.Entries() {
		it.collectionForwarder(e.Key).Link(e.Value)
	}
	for _, e := range c.properties.Entries() {
		it.propertyForwarder(e.Key).Link(e.Value)
	}

	it.attached[c] = &attachment{
		child: c,
		holds: 1,
		collectionsInserted: c.collections.Inserted().Connect(
			func(e registry.Entry[events.Kind, *forward.CollectionForwarder]) {
				it.collectionForwarder(e.Key).Link(e.Value)
			}),
		propertiesInserted: c.properties.Inserted().Connect(
			func(e registry.Entry[events.Kind, *forward.PropertyForwarder]) {
				it.propertyForwarder(e.Key).Link(e.Value)
			}),
		collectionsDeleted: c.collections.Deleted().Connect(
			func(e registry.Entry[events.Kind, *forward.CollectionForwarder]) {
				it.retractCollection(e.Key, e.Value)
			}),
		propertiesDeleted: c.properties.Deleted().Connect(
			func(e registry.Entry[events.Kind, *forward.PropertyForwarder]) {
				it.retractProperty(e.Key, e.Value)
			}),
	}

	it.logger.Debug("attached child",
		zap.String("owner", events.Label(it.self)),
		zap.String("child", events.Label(c.self)),
		zap.Int("collections", c.collections.Len()),
		zap.Int("properties", c.properties.Len()))
	return true
}

// Detach releases one hold on child. The wiring is undone when the last hold
// goes: forwarder slots that Attach created lazily and that are left without
// sources or outside listeners are pruned, and the pruning travels up to every
// ancestor that created a slot for them. Detaching a child that is not
// attached is a no-op; Detach reports whether anything was unwired.
func (it *Item) Detach(child Entity) bool {
	c := child.Base()
	a, ok := it.attached[c]
	if !ok {
		return false
	}
	if a.holds > 1 {
		a.holds--
		it.logger.Debug("released hold on child",
			zap.String("owner", events.Label(it.self)),
			zap.String("child", events.Label(c.self)),
			zap.Int("holds", a.holds))
		return false
	}

	c.collections.Inserted().Disconnect(a.collectionsInserted)
	c.properties.Inserted().Disconnect(a.propertiesInserted)
	c.collections.Deleted().Disconnect(a.collectionsDeleted)
	c.properties.Deleted().Disconnect(a.propertiesDeleted)
	delete(it.attached, c)

	for _, e := range c.collections.Entries() {
		it.retractCollection(e.Key, e.Value)
	}
	for _, e := range c.properties.Entries() {
		it.retractProperty(e.Key, e.Value)
	}

	it.logger.Debug("detached child",
		zap.String("owner", events.Label(it.self)),
		zap.String("child", events.Label(c.self)))
	return true
}

// Holds returns the number of slots holding child, zero when it is not attached
func (it *Item) Holds(child Entity) int {
	if a, ok := it.attached[child.Base()]; ok {
		return a.holds
	}
	return 0
}

// Attached reports whether child is currently attached to this item
func (it *Item) Attached(child Entity) bool {
	_, ok := it.attached[child.Base()]
	return ok
}

// AttachedCount returns the number of attached children
func (it *Item) AttachedCount() int {
	return len(it.attached)
}

func (it *Item) collectionForwarder(kind events.Kind) *forward.CollectionForwarder {
	f, _ := it.collections.GetOrInsert(kind, func() *forward.CollectionForwarder {
		return forward.NewCollectionForwarder(it.self, kind, it.logger)
	})
	return f
}

func (it *Item) propertyForwarder(kind events.Kind) *forward.PropertyForwarder {
	f, _ := it.properties.GetOrInsert(kind, func() *forward.PropertyForwarder {
		return forward.NewPropertyForwarder(it.self, kind, it.logger)
	})
	return f
}

func (it *Item) retractCollection(kind events.Kind, src *forward.CollectionForwarder) {
	if f, ok := it.collections.Get(kind); ok {
		f.Unlink(src)
		it.pruneCollectionForwarder(kind)
	}
}

func (it *Item) retractProperty(kind events.Kind, src *forward.PropertyForwarder) {
	if f, ok := it.properties.Get(kind); ok {
		f.Unlink(src)
		it.prunePropertyForwarder(kind)
	}
}

// pruneCollectionForwarder drops a lazily created slot once nothing feeds it
// and only ancestor forwarders listen. Deleting it raises Deleted, which makes
// those ancestors retract their own slots.
func (it *Item) pruneCollectionForwarder(kind events.Kind) {
	if it.declaredCollections[kind] {
		return
	}
	if f, ok := it.collections.Get(kind); ok && f.Orphaned() {
		it.collections.Delete(kind)
		it.logger.Debug("pruned collection forwarder",
			zap.String("holder", events.Label(it.self)),
			zap.Stringer("kind", kind))
	}
}

func (it *Item) prunePropertyForwarder(kind events.Kind) {
	if it.declaredProperties[kind] {
		return
	}
	if f, ok := it.properties.Get(kind); ok && f.Orphaned() {
		it.properties.Delete(kind)
		it.logger.Debug("pruned property forwarder",
			zap.String("holder", events.Label(it.self)),
			zap.Stringer("kind", kind))
	}
}
