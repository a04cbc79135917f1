package optics

import (
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/conectsim/internal/device"
	"github.com/nerrad567/conectsim/internal/element"
	"github.com/nerrad567/conectsim/internal/node"
)

var (
	// ErrNotIlluminated is returned when a detector is read before any light reached it.
	ErrNotIlluminated = errors.New("optics: detector not illuminated")

	// ErrInvalidExposure is returned for a negative exposure time.
	ErrInvalidExposure = errors.New("optics: invalid exposure time")
)

// DetectorSpec describes a detector.
type DetectorSpec struct {
	SizeX      int
	SizeY      int
	PixelSize  float64
	Saturation float64
	QE         *Curve
}

// Exposure is the result of integrating the detector input.
type Exposure struct {
	Exptime    float64
	Wavelength []float64
	Counts     []float64
	Saturated  int
}

// Total returns the summed counts.
func (e Exposure) Total() float64 {
	var sum float64
	for _, c := range e.Counts {
		sum += c
	}
	return sum
}

// Detector is the sink of the chain. Every token it receives replaces its
// buffer; Expose integrates the buffer.
type Detector struct {
	device.Connectable
	spec        DetectorSpec
	buffer      Light
	illuminated bool
}

// NewDetector returns a detector with an empty buffer.
func NewDetector(seq *element.Sequence, name string, spec DetectorSpec) *Detector {
	return &Detector{
		Connectable: device.NewConnectable(seq, name, 1, 0),
		spec:        spec,
	}
}

// Spec returns the detector description.
func (d *Detector) Spec() DetectorSpec { return d.spec }

// Buffer returns the last light received.
func (d *Detector) Buffer() (Light, bool) { return d.buffer, d.illuminated }

// Reset clears the buffer.
func (d *Detector) Reset() {
	d.buffer = Light{}
	d.illuminated = false
}

// Transform stores the light in the buffer and returns it.
func (d *Detector) Transform(tok node.Token) (node.Token, error) {
	l, err := asLight(tok)
	if err != nil {
		return nil, err
	}
	d.buffer = l
	d.illuminated = true
	return l, nil
}

// Expose converts the buffered light into counts over exptime seconds.
func (d *Detector) Expose(exptime float64) (Exposure, error) {
	if exptime < 0 {
		return Exposure{}, fmt.Errorf("%w: %g", ErrInvalidExposure, exptime)
	}
	if !d.illuminated {
		return Exposure{}, fmt.Errorf("%w: %s", ErrNotIlluminated, d.Name())
	}

	l := d.buffer.Apply(d.spec.QE)
	exp := Exposure{
		Exptime:    exptime,
		Wavelength: l.Wavelength,
		Counts:     make([]float64, len(l.Flux)),
	}
	for i, f := range l.Flux {
		c := f * exptime
		if d.spec.Saturation > 0 && c > d.spec.Saturation {
			c = d.spec.Saturation
			exp.Saturated++
		}
		exp.Counts[i] = c
	}
	return exp, nil
}

// ConfigInfo reports the detector geometry.
func (d *Detector) ConfigInfo() device.Info {
	return device.Info{
		"name":       d.Name(),
		"size_x":     d.spec.SizeX,
		"size_y":     d.spec.SizeY,
		"pixel_size": d.spec.PixelSize,
	}
}

// DAS is the data acquisition system driving the detector.
type DAS struct {
	device.Base
	detector *Detector
	now      func() time.Time
	meta     device.Info
}

// NewDAS returns a DAS reading from detector.
func NewDAS(seq *element.Sequence, name string, detector *Detector) *DAS {
	return &DAS{
		Base:     device.NewBase(seq, name),
		detector: detector,
		now:      time.Now,
		meta:     device.Info{},
	}
}

// SetClock replaces the time source.
func (d *DAS) SetClock(now func() time.Time) { d.now = now }

// Run exposes the detector and records the exposure metadata.
func (d *DAS) Run(exptime float64) (Exposure, error) {
	start := d.now().UTC()
	exp, err := d.detector.Expose(exptime)
	if err != nil {
		return Exposure{}, err
	}
	d.meta = device.Info{
		"dateobs":  start.Format(time.RFC3339Nano),
		"elapsed":  exptime,
		"darktime": exptime,
	}
	return exp, nil
}

// ConfigInfo reports the metadata of the last run.
func (d *DAS) ConfigInfo() device.Info {
	info := device.Info{"name": d.Name()}
	for k, v := range d.meta {
		info[k] = v
	}
	return info
}
