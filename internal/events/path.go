package events

import "strings"

// Path is the invoke history of an event: the holders it was forwarded
// through, origin-first. At(0) is the first forwarding holder (closest to the
// item that changed) and the last entry is the holder closest to the
// subscriber. The zero value is an empty path.
type Path struct {
	holders []Node
}

// Stack returns a new path with holder appended. The receiver is not modified.
func (p Path) Stack(holder Node) Path {
	next := make([]Node, len(p.holders), len(p.holders)+1)
	copy(next, p.holders)
	return Path{holders: append(next, holder)}
}

// Len returns the number of holders
func (p Path) Len() int {
	return len(p.holders)
}

// At returns the i-th holder, origin-first
func (p Path) At(i int) Node {
	return p.holders[i]
}

// Last returns the holder closest to the subscriber, or nil for an empty path
func (p Path) Last() Node {
	if len(p.holders) == 0 {
		return nil
	}
	return p.holders[len(p.holders)-1]
}

// Holders returns a copy of the holders, origin-first
func (p Path) Holders() []Node {
	out := make([]Node, len(p.holders))
	copy(out, p.holders)
	return out
}

// Labels returns the holder labels, origin-first
func (p Path) Labels() []string {
	out := make([]string, len(p.holders))
	for i, h := range p.holders {
		out[i] = Label(h)
	}
	return out
}

// String renders the path as "kind:id > kind:id"
func (p Path) String() string {
	return strings.Join(p.Labels(), " > ")
}
