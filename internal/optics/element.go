package optics

import (
	"github.com/nerrad567/conectsim/internal/element"
	"github.com/nerrad567/conectsim/internal/node"
)

// Optical is a pass-through element with an optional transmission curve.
// Open entries, filters and the collimator/camera optics are Opticals.
type Optical struct {
	element.Element
	node.Port
	transmission *Curve
}

// NewOptical returns an element that multiplies light by transmission.
func NewOptical(seq *element.Sequence, name string, transmission *Curve) *Optical {
	return &Optical{
		Element:      element.New(seq, name),
		Port:         node.NewPort(1, 1),
		transmission: transmission,
	}
}

// NewOpen returns an element that leaves light unchanged.
func NewOpen(seq *element.Sequence, name string) *Optical {
	return NewOptical(seq, name, nil)
}

// Transmission returns the element's curve, nil for a perfect element.
func (o *Optical) Transmission() *Curve { return o.transmission }

// Transform applies the transmission curve.
func (o *Optical) Transform(tok node.Token) (node.Token, error) {
	l, err := asLight(tok)
	if err != nil {
		return nil, err
	}
	return l.Apply(o.transmission), nil
}

// Stop blocks the beam. It is a source of darkness, so a trace through a
// closed stop starts there.
type Stop struct {
	element.Element
	node.Port
}

// NewStop returns a Stop.
func NewStop(seq *element.Sequence, name string) *Stop {
	return &Stop{Element: element.New(seq, name), Port: node.NewPort(0, 1)}
}

// Create returns darkness.
func (s *Stop) Create() (node.Token, error) { return Dark(), nil }

// Transform discards the incoming light.
func (s *Stop) Transform(node.Token) (node.Token, error) { return s.Create() }

// Lamp is a calibration source with a flat spectrum over a grid.
type Lamp struct {
	element.Element
	node.Port
	grid  []float64
	level float64
}

// NewLamp returns a lamp emitting level at every grid point.
func NewLamp(seq *element.Sequence, name string, grid []float64, level float64) *Lamp {
	return &Lamp{
		Element: element.New(seq, name),
		Port:    node.NewPort(0, 1),
		grid:    grid,
		level:   level,
	}
}

// Level returns the lamp's flux level.
func (l *Lamp) Level() float64 { return l.level }

// Create returns the lamp spectrum.
func (l *Lamp) Create() (node.Token, error) { return Uniform(l.grid, l.level), nil }

// Transform ignores its input; a lamp only emits.
func (l *Lamp) Transform(node.Token) (node.Token, error) { return l.Create() }

// Sky is the astronomical source in front of the telescope.
type Sky struct {
	element.Element
	node.Port
	grid       []float64
	level      float64
	extinction *Curve
}

// NewSky returns a sky emitting level over grid, attenuated by extinction.
func NewSky(seq *element.Sequence, name string, grid []float64, level float64, extinction *Curve) *Sky {
	return &Sky{
		Element:    element.New(seq, name),
		Port:       node.NewPort(0, 1),
		grid:       grid,
		level:      level,
		extinction: extinction,
	}
}

// Create returns the sky spectrum.
func (s *Sky) Create() (node.Token, error) {
	return Uniform(s.grid, s.level).Apply(s.extinction), nil
}

// Transform ignores its input.
func (s *Sky) Transform(node.Token) (node.Token, error) { return s.Create() }

// Grating is a volume phase holographic grating.
type Grating struct {
	Optical
	resolution float64
}

// NewGrating returns a grating with the given transmission and resolving power.
func NewGrating(seq *element.Sequence, name string, transmission *Curve, resolution float64) *Grating {
	return &Grating{Optical: *NewOptical(seq, name, transmission), resolution: resolution}
}

// Resolution returns the resolving power.
func (g *Grating) Resolution() float64 { return g.resolution }

// FiberBundle is a set of fibres feeding the pseudo-slit.
type FiberBundle struct {
	Optical
	Fibers int
	Size   float64
	FWHM   float64
}

// NewFiberBundle returns a bundle with the given transmission.
func NewFiberBundle(seq *element.Sequence, name string, transmission *Curve, fibers int, size, fwhm float64) *FiberBundle {
	return &FiberBundle{
		Optical: *NewOptical(seq, name, transmission),
		Fibers:  fibers,
		Size:    size,
		FWHM:    fwhm,
	}
}
