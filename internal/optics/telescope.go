package optics

import (
	"math"

	"github.com/nerrad567/conectsim/internal/device"
	"github.com/nerrad567/conectsim/internal/element"
	"github.com/nerrad567/conectsim/internal/node"
)

// Telescope collects light over its aperture.
type Telescope struct {
	device.Connectable
	diameter     float64
	transmission *Curve
}

// NewTelescope returns a telescope with the given primary diameter in metres.
func NewTelescope(seq *element.Sequence, name string, diameter float64, transmission *Curve) *Telescope {
	return &Telescope{
		Connectable:  device.NewConnectable(seq, name, 1, 1),
		diameter:     diameter,
		transmission: transmission,
	}
}

// Diameter returns the primary diameter.
func (t *Telescope) Diameter() float64 { return t.diameter }

// Area returns the collecting area.
func (t *Telescope) Area() float64 { return math.Pi * t.diameter * t.diameter / 4 }

// ConfigInfo reports the aperture.
func (t *Telescope) ConfigInfo() device.Info {
	return device.Info{"name": t.Name(), "diameter": t.diameter}
}

// Transform scales light by the collecting area and transmission.
func (t *Telescope) Transform(tok node.Token) (node.Token, error) {
	l, err := asLight(tok)
	if err != nil {
		return nil, err
	}
	return l.Apply(t.transmission).Scale(t.Area()), nil
}
