package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// InstrumentFile is an instrument description: a layout document
// followed by a catalogue document in the same YAML stream.
type InstrumentFile struct {
	Layout    Layout
	Catalogue Catalogue
}

// Layout lists which catalogue entries the instrument mounts, and where.
type Layout struct {
	Name          string                    `yaml:"name"`
	Telescope     string                    `yaml:"telescope"`
	Detector      string                    `yaml:"detector"`
	Optics        string                    `yaml:"optics"`
	ShutterFilter string                    `yaml:"shutter_filter"`
	Wheel         []string                  `yaml:"wheel"`
	Bundles       []string                  `yaml:"bundles"`
	LampUnits     []LampUnitLayout          `yaml:"lamp_units"`
	Grid          GridConfig                `yaml:"grid"`
	Sky           SkyConfig                 `yaml:"sky"`
	Profiles      map[string]map[string]any `yaml:"profiles"`
}

// LampUnitLayout is one calibration lamp selector.
type LampUnitLayout struct {
	Name  string   `yaml:"name"`
	Lamps []string `yaml:"lamps"`
}

// GridConfig is the wavelength sampling, in Angstrom.
type GridConfig struct {
	Start   float64 `yaml:"start"`
	Stop    float64 `yaml:"stop"`
	Samples int     `yaml:"samples"`
}

// Points returns the evenly spaced grid values.
func (g GridConfig) Points() []float64 {
	if g.Samples < 2 {
		return []float64{g.Start}
	}
	step := (g.Stop - g.Start) / float64(g.Samples-1)
	out := make([]float64, g.Samples)
	for i := range out {
		out[i] = g.Start + float64(i)*step
	}
	return out
}

// SkyConfig describes the light entering the telescope.
type SkyConfig struct {
	Level      float64 `yaml:"level"`
	Extinction string  `yaml:"extinction"`
}

// CurveConfig holds sampled response values.
type CurveConfig struct {
	Wavelength []float64 `yaml:"wavelength"`
	Value      []float64 `yaml:"value"`
}

// IsZero reports whether the curve was left out.
func (c CurveConfig) IsZero() bool { return len(c.Wavelength) == 0 && len(c.Value) == 0 }

// Catalogue holds every component the layout may refer to, by key.
type Catalogue struct {
	Telescopes map[string]TelescopeSpec `yaml:"telescopes"`
	Detectors  map[string]DetectorSpec  `yaml:"detectors"`
	Gratings   map[string]GratingSpec   `yaml:"vph"`
	Bundles    map[string]BundleSpec    `yaml:"bundles"`
	Lamps      map[string]LampSpec      `yaml:"lamps"`
	Filters    map[string]CurveConfig   `yaml:"filters"`
}

// TelescopeSpec describes a telescope.
type TelescopeSpec struct {
	Diameter     float64     `yaml:"diameter"`
	Transmission CurveConfig `yaml:"transmission"`
}

// DetectorSpec describes a detector.
type DetectorSpec struct {
	SizeX      int         `yaml:"size_x"`
	SizeY      int         `yaml:"size_y"`
	PixelSize  float64     `yaml:"pixel_size"`
	Saturation float64     `yaml:"saturation"`
	QE         CurveConfig `yaml:"qe"`
}

// GratingSpec describes a VPH grating.
type GratingSpec struct {
	Resolution   float64     `yaml:"resolution"`
	Transmission CurveConfig `yaml:"transmission"`
}

// BundleSpec describes a fibre bundle.
type BundleSpec struct {
	Fibers       int         `yaml:"fibers"`
	Size         float64     `yaml:"size"`
	FWHM         float64     `yaml:"fwhm"`
	Transmission CurveConfig `yaml:"transmission"`
}

// LampSpec describes a calibration lamp.
type LampSpec struct {
	Level float64 `yaml:"level"`
}

// LoadInstrument reads an instrument description file.
func LoadInstrument(path string) (*InstrumentFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening instrument file: %w", err)
	}
	defer f.Close()

	desc, err := DecodeInstrument(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return desc, nil
}

// DecodeInstrument reads the layout and the catalogue documents from r.
func DecodeInstrument(r io.Reader) (*InstrumentFile, error) {
	dec := yaml.NewDecoder(r)
	desc := &InstrumentFile{}

	if err := dec.Decode(&desc.Layout); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("instrument description is empty")
		}
		return nil, fmt.Errorf("parsing layout: %w", err)
	}
	if err := dec.Decode(&desc.Catalogue); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("instrument description has no catalogue document")
		}
		return nil, fmt.Errorf("parsing catalogue: %w", err)
	}

	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return desc, nil
}

// Validate checks the layout for structural errors. Unknown catalogue
// keys are not errors here; the builder decides how to treat them.
func (d *InstrumentFile) Validate() error {
	var errs []string

	l := d.Layout
	if l.Name == "" {
		errs = append(errs, "layout.name is required")
	}
	if l.Telescope == "" {
		errs = append(errs, "layout.telescope is required")
	}
	if l.Detector == "" {
		errs = append(errs, "layout.detector is required")
	}
	if len(l.Wheel) == 0 {
		errs = append(errs, "layout.wheel needs at least one position")
	}
	if l.Grid.Samples < 2 {
		errs = append(errs, "layout.grid.samples must be at least 2")
	}
	if l.Grid.Stop <= l.Grid.Start {
		errs = append(errs, "layout.grid.stop must be greater than layout.grid.start")
	}
	for i, u := range l.LampUnits {
		if u.Name == "" {
			errs = append(errs, fmt.Sprintf("layout.lamp_units[%d].name is required", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("instrument description errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
