// Package element provides identity for every part of an instrument model.
//
// Ids come from an explicit Sequence created once at program start and
// passed to every constructor, so separate models (or tests) never share
// a counter.
package element

import (
	"fmt"
	"sync"
)

// defaultNamePrefix is used when an Element is created without a name.
const defaultNamePrefix = "element"

// Sequence hands out element ids.
//
// Sequence is safe for concurrent use.
type Sequence struct {
	mu   sync.Mutex
	next int
}

// NewSequence returns a Sequence whose first id is 0.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next id and advances the counter.
func (s *Sequence) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	return id
}

// Element is the identity shared by nodes and devices.
// The zero value has id 0 and no name; use New.
type Element struct {
	id   int
	name string
}

// New takes the next id from seq. An empty name defaults to "element<id>".
func New(seq *Sequence, name string) Element {
	id := seq.Next()
	if name == "" {
		name = fmt.Sprintf("%s%d", defaultNamePrefix, id)
	}
	return Element{id: id, name: name}
}

// ID returns the element's id.
func (e Element) ID() int { return e.id }

// Name returns the element's name.
func (e Element) Name() string { return e.name }

// String implements fmt.Stringer.
func (e Element) String() string { return e.name }
