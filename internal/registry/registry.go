// Package registry provides an insertion-ordered map that announces new and
// removed keys.
//
// Items use it to hold one forwarder per runtime kind. The Inserted signal fires
// synchronously the moment a key is first registered, which is what lets an
// ancestor discover structure introduced below it after it attached. Deleted
// lets the same ancestor retract its own slot when that structure goes away.
package registry

import (
	"fmt"

	"github.com/conduit-lang/cascade/internal/signal"
)

// Entry is a single key/value pair of a Registry
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// NotFoundError is raised by MustGet when the key is not registered
type NotFoundError struct{ Key any }

// Error implements the error interface
func (e NotFoundError) Error() string {
	return fmt.Sprintf("registry: key %v not found", e.Key)
}

// DuplicateKeyError is returned by Insert when the key is already registered
type DuplicateKeyError struct{ Key any }

// Error implements the error interface
func (e DuplicateKeyError) Error() string {
	return fmt.Sprintf("registry: duplicate key %v", e.Key)
}

// Registry is an insertion-ordered map from K to V
type Registry[K comparable, V any] struct {
	keys     []K
	values   map[K]V
	inserted signal.Signal[Entry[K, V]]
	deleted  signal.Signal[Entry[K, V]]
}

// New creates an empty registry
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		values: make(map[K]V),
	}
}

// Get returns the value for key. ok is false when the key is absent.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	v, ok := r.values[key]
	return v, ok
}

// MustGet returns the value for key or panics with NotFoundError
func (r *Registry[K, V]) MustGet(key K) V {
	v, ok := r.values[key]
	if !ok {
		panic(NotFoundError{Key: key})
	}
	return v
}

// Contains reports whether key is registered
func (r *Registry[K, V]) Contains(key K) bool {
	_, ok := r.values[key]
	return ok
}

// Insert registers a new key and raises Inserted.
// It returns DuplicateKeyError if the key already exists.
func (r *Registry[K, V]) Insert(key K, value V) error {
	if _, exists := r.values[key]; exists {
		return DuplicateKeyError{Key: key}
	}
	r.keys = append(r.keys, key)
	r.values[key] = value
	r.inserted.Emit(Entry[K, V]{Key: key, Value: value})
	return nil
}

// GetOrInsert returns the value for key, creating it with create when absent.
// created reports whether a new entry was inserted.
func (r *Registry[K, V]) GetOrInsert(key K, create func() V) (value V, created bool) {
	if v, ok := r.values[key]; ok {
		return v, false
	}
	v := create()
	// Insert cannot fail here: the key was absent and create must not register it.
	if err := r.Insert(key, v); err != nil {
		return r.values[key], false
	}
	return v, true
}

// Delete removes key and raises Deleted.
// It returns false when the key was not registered.
func (r *Registry[K, V]) Delete(key K) bool {
	v, ok := r.values[key]
	if !ok {
		return false
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i:i], r.keys[i+1:]...)
			break
		}
	}
	r.deleted.Emit(Entry[K, V]{Key: key, Value: v})
	return true
}

// Len returns the number of registered keys
func (r *Registry[K, V]) Len() int {
	return len(r.keys)
}

// Keys returns the registered keys in insertion order
func (r *Registry[K, V]) Keys() []K {
	out := make([]K, len(r.keys))
	copy(out, r.keys)
	return out
}

// Entries returns a snapshot of all entries in insertion order
func (r *Registry[K, V]) Entries() []Entry[K, V] {
	out := make([]Entry[K, V], 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, Entry[K, V]{Key: k, Value: r.values[k]})
	}
	return out
}

// Inserted is raised once for every newly registered key
func (r *Registry[K, V]) Inserted() *signal.Signal[Entry[K, V]] {
	return &r.inserted
}

// Deleted is raised once for every removed key, after it is gone
func (r *Registry[K, V]) Deleted() *signal.Signal[Entry[K, V]] {
	return &r.deleted
}
