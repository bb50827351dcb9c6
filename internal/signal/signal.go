// Package signal provides a synchronous, single-threaded observer list.
//
// A Signal keeps its listeners in connection order and hands out a Handle per
// connection. Emit snapshots the listener list before dispatching, so a
// listener connected or disconnected while a pass is running does not change
// that pass. Signals are not safe for concurrent use.
package signal

// Handle identifies one connection on a Signal
type Handle uint64

// Handler receives emitted values
type Handler[E any] func(E)

type listener[E any] struct {
	handle Handle
	fn     Handler[E]
}

// Signal is an ordered list of listeners for one event kind.
// The zero value is ready to use.
type Signal[E any] struct {
	seq       Handle
	listeners []listener[E]
}

// Connect appends fn to the listener list and returns its handle
func (s *Signal[E]) Connect(fn Handler[E]) Handle {
	s.seq++
	s.listeners = append(s.listeners, listener[E]{handle: s.seq, fn: fn})
	return s.seq
}

// Disconnect removes the listener registered under h.
// It returns false (and does nothing) when h is unknown.
func (s *Signal[E]) Disconnect(h Handle) bool {
	for i, l := range s.listeners {
		if l.handle == h {
			// Copy instead of shifting in place: a running Emit may hold the old slice.
			next := make([]listener[E], 0, len(s.listeners)-1)
			next = append(next, s.listeners[:i]...)
			next = append(next, s.listeners[i+1:]...)
			s.listeners = next
			return true
		}
	}
	return false
}

// Emit calls every listener connected when Emit started, in connection order
func (s *Signal[E]) Emit(e E) {
	if len(s.listeners) == 0 {
		return
	}
	snapshot := s.listeners
	for _, l := range snapshot {
		l.fn(e)
	}
}

// Len returns the number of connected listeners
func (s *Signal[E]) Len() int {
	return len(s.listeners)
}

// Connected reports whether h is currently connected
func (s *Signal[E]) Connected(h Handle) bool {
	for _, l := range s.listeners {
		if l.handle == h {
			return true
		}
	}
	return false
}
