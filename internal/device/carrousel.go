package device

import (
	"fmt"

	"github.com/agnivade/levenshtein"

	"github.com/nerrad567/conectsim/internal/element"
	"github.com/nerrad567/conectsim/internal/node"
	"github.com/nerrad567/conectsim/internal/signal"
)

// Carrousel is a device with a fixed number of slots and one active
// position. As a node it behaves like whatever occupies the active slot.
type Carrousel struct {
	Connectable
	slots   []Slot
	pos     int
	changed *signal.Signal[int]
	moved   *signal.Signal[int]

	// onMove runs on every MoveTo, after the position is updated and
	// before any signal fires. When it fails the previous position is
	// restored.
	onMove func(pos int) error
}

// NewCarrousel returns a Carrousel with capacity empty slots at position 0.
func NewCarrousel(seq *element.Sequence, name string, capacity int) (*Carrousel, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %s has capacity %d", ErrInvalidCapacity, name, capacity)
	}
	c := &Carrousel{
		Connectable: NewConnectable(seq, name, 1, 1),
		slots:       make([]Slot, capacity),
	}
	c.changed = signal.New[int](c.Name() + ".changed")
	c.moved = signal.New[int](c.Name() + ".moved")
	return c, nil
}

// Changed fires with the new position when MoveTo changes it.
func (c *Carrousel) Changed() *signal.Signal[int] { return c.changed }

// Moved fires with the requested position on every MoveTo.
func (c *Carrousel) Moved() *signal.Signal[int] { return c.moved }

// SetLogger sets the logger of both signals.
func (c *Carrousel) SetLogger(logger signal.Logger) {
	c.changed.SetLogger(logger)
	c.moved.SetLogger(logger)
}

// Capacity returns the number of slots.
func (c *Carrousel) Capacity() int { return len(c.slots) }

// Position returns the active position.
func (c *Carrousel) Position() int { return c.pos }

// Slot returns the content of pos.
func (c *Carrousel) Slot(pos int) (Slot, error) {
	if err := c.checkRange(pos); err != nil {
		return Slot{}, err
	}
	return c.slots[pos], nil
}

// CurrentSlot returns the content of the active position.
func (c *Carrousel) CurrentSlot() Slot { return c.slots[c.pos] }

// Current returns the node in the active slot, or nil.
func (c *Carrousel) Current() node.Node { return c.slots[c.pos].Node() }

// Labels returns the name of every slot, "Unknown" for empty ones.
func (c *Carrousel) Labels() []string {
	out := make([]string, len(c.slots))
	for i, s := range c.slots {
		out[i] = s.String()
	}
	return out
}

// PutInPos stores slot at pos, replacing what was there.
func (c *Carrousel) PutInPos(slot Slot, pos int) error {
	if err := c.checkRange(pos); err != nil {
		return err
	}
	c.slots[pos] = slot
	return nil
}

// MoveTo makes pos the active position. Changed fires only when the
// position differs from the previous one; Moved fires every time.
func (c *Carrousel) MoveTo(pos int) error {
	if err := c.checkRange(pos); err != nil {
		return err
	}
	prev := c.pos
	changed := pos != prev
	c.pos = pos

	if c.onMove != nil {
		if err := c.onMove(pos); err != nil {
			c.pos = prev
			return err
		}
	}

	// Observer failures are logged by the signal; they do not undo the move.
	if changed {
		_ = c.changed.Emit(pos)
	}
	_ = c.moved.Emit(pos)
	return nil
}

// Select moves to the first slot whose occupant or label is name.
func (c *Carrousel) Select(name string) error {
	for i, s := range c.slots {
		if n, ok := s.Name(); ok && n == name {
			return c.MoveTo(i)
		}
	}
	if near := c.closestLabel(name); near != "" {
		return fmt.Errorf("%w: no slot named %q in %s (did you mean %q?)", ErrNotFound, name, c.Name(), near)
	}
	return fmt.Errorf("%w: no slot named %q in %s", ErrNotFound, name, c.Name())
}

// closestLabel returns the slot name nearest to name by edit distance,
// or "" when no slot is named. Ties go to the lowest position.
func (c *Carrousel) closestLabel(name string) string {
	best, bestDist := "", -1
	for _, s := range c.slots {
		n, ok := s.Name()
		if !ok {
			continue
		}
		if d := levenshtein.ComputeDistance(name, n); bestDist < 0 || d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

// ConfigInfo reports the selector's own state.
func (c *Carrousel) ConfigInfo() Info {
	return Info{
		"name":     c.Name(),
		"position": c.pos,
		"label":    c.CurrentSlot().String(),
	}
}

// Configure moves to an integer position or selects a slot by name.
func (c *Carrousel) Configure(value any) error {
	if pos, ok := IntValue(value); ok {
		return c.MoveTo(pos)
	}
	if name, ok := value.(string); ok {
		return c.Select(name)
	}
	return fmt.Errorf("%w: %s cannot use %v (%T)", ErrInvalidValue, c.Name(), value, value)
}

// Transform delegates to the active occupant. Empty and label slots
// pass the token through.
func (c *Carrousel) Transform(tok node.Token) (node.Token, error) {
	if cur := c.Current(); cur != nil {
		return cur.Transform(tok)
	}
	return tok, nil
}

func (c *Carrousel) checkRange(pos int) error {
	if pos < 0 || pos >= len(c.slots) {
		return fmt.Errorf("%w: %d not in [0, %d) for %s", ErrOutOfRange, pos, len(c.slots), c.Name())
	}
	return nil
}

// Wheel is a Carrousel that rotates one slot at a time.
type Wheel struct {
	*Carrousel
}

// NewWheel returns a Wheel with capacity empty slots.
func NewWheel(seq *element.Sequence, name string, capacity int) (*Wheel, error) {
	c, err := NewCarrousel(seq, name, capacity)
	if err != nil {
		return nil, err
	}
	return &Wheel{Carrousel: c}, nil
}

// Turn advances to the next slot, wrapping to 0 after the last one.
func (w *Wheel) Turn() error {
	return w.MoveTo((w.pos + 1) % len(w.slots))
}
