package optics

import (
	"fmt"
	"strings"

	"github.com/nerrad567/conectsim/internal/device"
	"github.com/nerrad567/conectsim/internal/element"
	"github.com/nerrad567/conectsim/internal/node"
	"github.com/nerrad567/conectsim/internal/signal"
)

// Cover positions. The position is 2*left + right, with 1 meaning that
// hemi-cover is open.
const (
	CoverSet   = 0
	CoverRight = 1
	CoverLeft  = 2
	CoverUnset = 3
)

var coverLabels = [...]string{"SET", "RIGHT", "LEFT", "UNSET"}

// HemiCover is one half of the instrument cover.
type HemiCover struct {
	device.Base
	open    bool
	changed *signal.Signal[int]
	opened  *signal.Signal[int]
	closed  *signal.Signal[int]
}

func newHemiCover(seq *element.Sequence, name string) *HemiCover {
	h := &HemiCover{Base: device.NewBase(seq, name)}
	h.changed = signal.New[int](h.Name() + ".changed")
	h.opened = signal.New[int](h.Name() + ".opened")
	h.closed = signal.New[int](h.Name() + ".closed")
	return h
}

// Changed fires with 1 (open) or 0 (closed) on every transition.
func (h *HemiCover) Changed() *signal.Signal[int] { return h.changed }

// Opened fires when the hemi-cover opens.
func (h *HemiCover) Opened() *signal.Signal[int] { return h.opened }

// Closed fires when the hemi-cover closes.
func (h *HemiCover) Closed() *signal.Signal[int] { return h.closed }

// SetLogger sets the logger of every signal.
func (h *HemiCover) SetLogger(logger signal.Logger) {
	h.changed.SetLogger(logger)
	h.opened.SetLogger(logger)
	h.closed.SetLogger(logger)
}

// IsOpen reports the hemi-cover state.
func (h *HemiCover) IsOpen() bool { return h.open }

// Position returns 1 when open, 0 when closed.
func (h *HemiCover) Position() int {
	if h.open {
		return 1
	}
	return 0
}

func (h *HemiCover) set(open bool) {
	if h.open == open {
		return
	}
	h.open = open
	pos := h.Position()
	_ = h.changed.Emit(pos)
	if open {
		_ = h.opened.Emit(pos)
	} else {
		_ = h.closed.Emit(pos)
	}
}

// ConfigInfo reports the hemi-cover position.
func (h *HemiCover) ConfigInfo() device.Info {
	return device.Info{"name": h.Name(), "position": h.Position()}
}

// Configure opens (1, "open") or closes (0, "closed") the hemi-cover.
func (h *HemiCover) Configure(value any) error {
	if pos, ok := device.IntValue(value); ok && (pos == 0 || pos == 1) {
		h.set(pos == 1)
		return nil
	}
	if s, ok := value.(string); ok {
		switch strings.ToLower(s) {
		case "open":
			h.set(true)
			return nil
		case "closed", "close":
			h.set(false)
			return nil
		}
	}
	return fmt.Errorf("%w: %s cannot use %v", device.ErrInvalidValue, h.Name(), value)
}

// Cover is the two-part instrument entrance cover. As a node it lets
// through the fraction of light matching the open halves.
type Cover struct {
	device.Connectable
	left    *HemiCover
	right   *HemiCover
	changed *signal.Signal[int]
}

// NewCover returns a closed cover with "left" and "right" hemi-covers.
func NewCover(seq *element.Sequence, name string) (*Cover, error) {
	c := &Cover{
		Connectable: device.NewConnectable(seq, name, 1, 1),
		left:        newHemiCover(seq, "left"),
		right:       newHemiCover(seq, "right"),
	}
	c.changed = signal.New[int](c.Name() + ".changed")
	if err := device.Attach(c, c.left, c.right); err != nil {
		return nil, err
	}
	return c, nil
}

// Left returns the left hemi-cover.
func (c *Cover) Left() *HemiCover { return c.left }

// Right returns the right hemi-cover.
func (c *Cover) Right() *HemiCover { return c.right }

// Changed fires with the new combined position.
func (c *Cover) Changed() *signal.Signal[int] { return c.changed }

// SetLogger sets the logger of the cover signal.
func (c *Cover) SetLogger(logger signal.Logger) { c.changed.SetLogger(logger) }

// Position returns the combined position.
func (c *Cover) Position() int { return 2*c.left.Position() + c.right.Position() }

// Label returns the name of the current position.
func (c *Cover) Label() string { return coverLabels[c.Position()] }

// Set moves both halves to pos.
func (c *Cover) Set(pos int) error {
	if pos < CoverSet || pos > CoverUnset {
		return fmt.Errorf("%w: cover position %d not in [0, 3]", device.ErrOutOfRange, pos)
	}
	before := c.Position()
	c.left.set(pos&2 != 0)
	c.right.set(pos&1 != 0)
	if pos != before {
		_ = c.changed.Emit(pos)
	}
	return nil
}

// Open opens both halves.
func (c *Cover) Open() error { return c.Set(CoverUnset) }

// Close closes both halves.
func (c *Cover) Close() error { return c.Set(CoverSet) }

// Flip swaps the state of each half.
func (c *Cover) Flip() error { return c.Set(CoverUnset - c.Position()) }

// ConfigInfo reports the combined position.
func (c *Cover) ConfigInfo() device.Info {
	return device.Info{"name": c.Name(), "position": c.Position(), "label": c.Label()}
}

// Configure accepts a position, a position label, "open" or "closed".
func (c *Cover) Configure(value any) error {
	if pos, ok := device.IntValue(value); ok {
		return c.Set(pos)
	}
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%w: %s cannot use %v (%T)", device.ErrInvalidValue, c.Name(), value, value)
	}
	switch strings.ToLower(s) {
	case "open":
		return c.Open()
	case "closed", "close":
		return c.Close()
	}
	for pos, label := range coverLabels {
		if strings.EqualFold(label, s) {
			return c.Set(pos)
		}
	}
	return fmt.Errorf("%w: cover position %q", device.ErrNotFound, s)
}

// Transform passes the open fraction of the light.
func (c *Cover) Transform(tok node.Token) (node.Token, error) {
	l, err := asLight(tok)
	if err != nil {
		return nil, err
	}
	open := float64(c.left.Position()+c.right.Position()) / 2
	return l.Scale(open), nil
}
