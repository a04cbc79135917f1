package device

import "github.com/nerrad567/conectsim/internal/node"

// SlotKind tells what a slot holds.
type SlotKind int

const (
	SlotEmpty SlotKind = iota
	SlotObject
	SlotLabel
)

// unknownLabel is reported for empty slots.
const unknownLabel = "Unknown"

// Named is anything with a name that can sit in a slot.
type Named interface {
	Name() string
}

// Slot is the content of one selector position.
type Slot struct {
	kind  SlotKind
	obj   Named
	label string
}

// Empty returns an empty slot.
func Empty() Slot { return Slot{} }

// Holding returns a slot holding obj. A nil obj gives an empty slot.
func Holding(obj Named) Slot {
	if obj == nil {
		return Slot{}
	}
	return Slot{kind: SlotObject, obj: obj}
}

// Label returns a slot that only carries a name.
func Label(s string) Slot { return Slot{kind: SlotLabel, label: s} }

// Kind returns what the slot holds.
func (s Slot) Kind() SlotKind { return s.kind }

// Object returns the held object, or nil.
func (s Slot) Object() Named { return s.obj }

// Node returns the held object when it is a chain node.
func (s Slot) Node() node.Node {
	if n, ok := s.obj.(node.Node); ok {
		return n
	}
	return nil
}

// Name returns the occupant's name or the label.
func (s Slot) Name() (string, bool) {
	switch s.kind {
	case SlotObject:
		return s.obj.Name(), true
	case SlotLabel:
		return s.label, true
	default:
		return "", false
	}
}

// String returns the slot's name, or "Unknown" when empty.
func (s Slot) String() string {
	if name, ok := s.Name(); ok {
		return name
	}
	return unknownLabel
}
