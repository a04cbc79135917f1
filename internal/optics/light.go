package optics

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nerrad567/conectsim/internal/node"
)

// ErrInvalidCurve is returned when curve samples are malformed.
var ErrInvalidCurve = errors.New("optics: invalid curve")

// Light is the token carried by an instrument chain: a flux sampled on a
// wavelength grid. An empty Light is darkness.
type Light struct {
	Wavelength []float64
	Flux       []float64
}

// Dark returns a Light with no samples.
func Dark() Light { return Light{} }

// Uniform returns a Light with the same flux at every grid point.
func Uniform(grid []float64, level float64) Light {
	l := Light{
		Wavelength: append([]float64(nil), grid...),
		Flux:       make([]float64, len(grid)),
	}
	for i := range l.Flux {
		l.Flux[i] = level
	}
	return l
}

// IsDark reports whether the light carries no flux.
func (l Light) IsDark() bool {
	for _, f := range l.Flux {
		if f != 0 {
			return false
		}
	}
	return true
}

// Total returns the summed flux.
func (l Light) Total() float64 {
	var sum float64
	for _, f := range l.Flux {
		sum += f
	}
	return sum
}

// Scale returns a copy with every flux sample multiplied by factor.
func (l Light) Scale(factor float64) Light {
	out := Light{
		Wavelength: l.Wavelength,
		Flux:       make([]float64, len(l.Flux)),
	}
	for i, f := range l.Flux {
		out.Flux[i] = f * factor
	}
	return out
}

// Apply returns a copy multiplied by c at each wavelength. A nil curve
// leaves the flux unchanged.
func (l Light) Apply(c *Curve) Light {
	if c == nil {
		return l
	}
	out := Light{
		Wavelength: l.Wavelength,
		Flux:       make([]float64, len(l.Flux)),
	}
	for i, f := range l.Flux {
		out.Flux[i] = f * c.At(l.Wavelength[i])
	}
	return out
}

// Curve is a sampled response, such as a transmission or a quantum
// efficiency, linearly interpolated between samples and zero outside them.
type Curve struct {
	wavelength []float64
	value      []float64
}

// NewCurve validates the samples. Wavelengths must be strictly increasing.
func NewCurve(wavelength, value []float64) (*Curve, error) {
	if len(wavelength) == 0 || len(wavelength) != len(value) {
		return nil, fmt.Errorf("%w: %d wavelengths for %d values", ErrInvalidCurve, len(wavelength), len(value))
	}
	for i := 1; i < len(wavelength); i++ {
		if wavelength[i] <= wavelength[i-1] {
			return nil, fmt.Errorf("%w: wavelengths not increasing at index %d", ErrInvalidCurve, i)
		}
	}
	return &Curve{
		wavelength: append([]float64(nil), wavelength...),
		value:      append([]float64(nil), value...),
	}, nil
}

// Flat returns a curve with the same value everywhere in [lo, hi].
func Flat(lo, hi, value float64) *Curve {
	return &Curve{wavelength: []float64{lo, hi}, value: []float64{value, value}}
}

// At returns the response at wl.
func (c *Curve) At(wl float64) float64 {
	n := len(c.wavelength)
	if n == 0 || wl < c.wavelength[0] || wl > c.wavelength[n-1] {
		return 0
	}
	i := sort.SearchFloat64s(c.wavelength, wl)
	if c.wavelength[i] == wl {
		return c.value[i]
	}
	x0, x1 := c.wavelength[i-1], c.wavelength[i]
	y0, y1 := c.value[i-1], c.value[i]
	return y0 + (y1-y0)*(wl-x0)/(x1-x0)
}

func asLight(tok node.Token) (Light, error) {
	l, ok := tok.(Light)
	if !ok {
		return Light{}, fmt.Errorf("%w: want optics.Light, got %T", node.ErrUnexpectedToken, tok)
	}
	return l, nil
}
