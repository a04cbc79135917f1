package optics

import (
	"strings"

	"github.com/nerrad567/conectsim/internal/device"
	"github.com/nerrad567/conectsim/internal/element"
)

// Shutter positions.
const (
	ShutterClosed = 0
	ShutterOpen   = 1
	ShutterFilter = 2
)

// Shutter is a three position wheel: a stop, an open aperture and an
// order-sorting filter. It starts open.
type Shutter struct {
	*device.Wheel
}

// NewShutter returns an open shutter. filter may be nil for a clear filter.
func NewShutter(seq *element.Sequence, name string, filter *Curve) (*Shutter, error) {
	w, err := device.NewWheel(seq, name, 3)
	if err != nil {
		return nil, err
	}
	s := &Shutter{Wheel: w}
	slots := []device.Slot{
		ShutterClosed: device.Holding(NewStop(seq, "shutter closed")),
		ShutterOpen:   device.Holding(NewOpen(seq, "shutter open")),
		ShutterFilter: device.Holding(NewOptical(seq, "filter", filter)),
	}
	for pos, slot := range slots {
		if err := s.PutInPos(slot, pos); err != nil {
			return nil, err
		}
	}
	if err := s.MoveTo(ShutterOpen); err != nil {
		return nil, err
	}
	return s, nil
}

// Open moves to the open aperture.
func (s *Shutter) Open() error { return s.MoveTo(ShutterOpen) }

// Close moves to the stop.
func (s *Shutter) Close() error { return s.MoveTo(ShutterClosed) }

// IsOpen reports whether light can pass.
func (s *Shutter) IsOpen() bool { return s.Position() != ShutterClosed }

// Configure accepts "open", "closed", "filter", a slot name or a position.
func (s *Shutter) Configure(value any) error {
	if word, ok := value.(string); ok {
		switch strings.ToLower(word) {
		case "open":
			return s.MoveTo(ShutterOpen)
		case "closed", "close", "stop":
			return s.MoveTo(ShutterClosed)
		case "filter":
			return s.MoveTo(ShutterFilter)
		}
	}
	return s.Wheel.Configure(value)
}

// NewLampUnit returns a selector holding lamps in order. A nil lamp
// leaves its slot empty. Position 0 is active.
func NewLampUnit(seq *element.Sequence, name string, lamps ...*Lamp) (*device.Carrousel, error) {
	c, err := device.NewCarrousel(seq, name, max(len(lamps), 1))
	if err != nil {
		return nil, err
	}
	for pos, l := range lamps {
		if l == nil {
			continue
		}
		if err := c.PutInPos(device.Holding(l), pos); err != nil {
			return nil, err
		}
	}
	return c, nil
}
