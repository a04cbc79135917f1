package device

import (
	"fmt"

	"github.com/nerrad567/conectsim/internal/element"
	"github.com/nerrad567/conectsim/internal/node"
)

// Occupant is a chain node that can be installed in a Switch.
type Occupant interface {
	node.Node
	Name() string
}

// Switch selects which of its occupants feeds it. Occupants are upstream
// of the switch: the active one's outgoing edge points at the switch and
// the inactive ones are left unconnected.
//
// Rebinding is the side effect of every MoveTo and of replacing the active
// slot, and can be invoked on its own with Rebind.
type Switch struct {
	*Carrousel
}

// NewSwitch returns a Switch with capacity empty slots.
func NewSwitch(seq *element.Sequence, name string, capacity int) (*Switch, error) {
	c, err := NewCarrousel(seq, name, capacity)
	if err != nil {
		return nil, err
	}
	s := &Switch{Carrousel: c}
	c.onMove = func(int) error { return s.Rebind() }
	return s, nil
}

// ConnectToPos installs n at pos as an input of the switch. The arity
// check happens before anything changes.
func (s *Switch) ConnectToPos(n Occupant, pos int) error {
	return s.PutInPos(Holding(n), pos)
}

// PutInPos stores slot at pos and rebinds when pos is active. A node
// occupant must be able to feed the switch, whatever the position; on any
// failure the slot keeps its previous content.
func (s *Switch) PutInPos(slot Slot, pos int) error {
	if err := s.checkRange(pos); err != nil {
		return err
	}
	if n := slot.Node(); n != nil {
		if err := node.Compatible(n, s); err != nil {
			return err
		}
	}
	old := s.slots[pos]
	s.slots[pos] = slot
	if pos != s.pos {
		return nil
	}
	if err := s.Rebind(); err != nil {
		s.slots[pos] = old
		return err
	}
	return nil
}

// Rebind connects the active occupant to the switch. When the active
// slot holds no node the switch is left without an upstream.
func (s *Switch) Rebind() error {
	occ := s.Current()
	if occ == nil {
		if prev := s.Previous(); prev != nil {
			node.Unlink(prev)
		}
		return nil
	}
	if err := node.Connect(occ, s); err != nil {
		return fmt.Errorf("rebinding %s to %s: %w", s.Name(), node.NameOf(occ), err)
	}
	return nil
}

// Transform passes tokens through. The active occupant has already
// transformed them on its way in.
func (s *Switch) Transform(tok node.Token) (node.Token, error) {
	return tok, nil
}

// Trace continues through the active occupant's own lineage.
func (s *Switch) Trace() []node.Node {
	if occ := s.Current(); occ != nil {
		return node.Trace(occ)
	}
	return []node.Node{s}
}
