package instrument

import (
	"errors"
	"fmt"
	"sort"

	"github.com/agnivade/levenshtein"

	"github.com/nerrad567/conectsim/internal/device"
	"github.com/nerrad567/conectsim/internal/element"
	"github.com/nerrad567/conectsim/internal/infrastructure/config"
	"github.com/nerrad567/conectsim/internal/optics"
)

// Fixed pseudo-slit positions. Bundles follow from pslitOffset.
const (
	PseudoSlitOpen = "pslit open"
	PseudoSlitStop = "pslit stop"
	pslitOffset    = 2

	skyName    = "sky"
	opticsName = "optics"
)

var (
	// ErrUnknownComponent is returned when a required catalogue key is missing.
	ErrUnknownComponent = errors.New("instrument: unknown component")

	// ErrUnknownProfile is returned by Profile for a name the layout lacks.
	ErrUnknownProfile = errors.New("instrument: unknown profile")
)

// builder carries what every component constructor needs.
type builder struct {
	seq    *element.Sequence
	cat    config.Catalogue
	grid   []float64
	logger Logger
}

// Build assembles the instrument described by desc.
//
// A missing telescope or detector is an error. Unknown grating, bundle,
// lamp and filter keys are logged with the closest catalogue key and
// leave their slot empty (or the element clear), so a partly described
// instrument still runs.
func Build(seq *element.Sequence, desc *config.InstrumentFile, logger Logger) (*Instrument, error) {
	if logger == nil {
		logger = nopLogger{}
	}
	b := &builder{seq: seq, cat: desc.Catalogue, grid: desc.Layout.Grid.Points(), logger: logger}
	l := desc.Layout

	telescope, err := b.telescope(l.Telescope)
	if err != nil {
		return nil, err
	}
	detector, err := b.detector(l.Detector)
	if err != nil {
		return nil, err
	}
	extinction, err := b.filter(l.Sky.Extinction)
	if err != nil {
		return nil, err
	}
	parts := Parts{
		Sky:       optics.NewSky(seq, skyName, b.grid, l.Sky.Level, extinction),
		Telescope: telescope,
		Detector:  detector,
	}

	for _, u := range l.LampUnits {
		unit, err := b.lampUnit(u)
		if err != nil {
			return nil, err
		}
		parts.Calibration = append(parts.Calibration, unit)
	}
	if parts.Cover, err = optics.NewCover(seq, CoverName); err != nil {
		return nil, err
	}
	if parts.PseudoSlit, err = b.pseudoSlit(l.Bundles); err != nil {
		return nil, err
	}
	shutterFilter, err := b.filter(l.ShutterFilter)
	if err != nil {
		return nil, err
	}
	if parts.Shutter, err = optics.NewShutter(seq, ShutterName, shutterFilter); err != nil {
		return nil, err
	}
	opticsCurve, err := b.filter(l.Optics)
	if err != nil {
		return nil, err
	}
	parts.Optics = optics.NewOptical(seq, opticsName, opticsCurve)
	if parts.Wheel, err = b.wheel(l.Wheel); err != nil {
		return nil, err
	}

	inst, err := New(seq, l.Name, parts)
	if err != nil {
		return nil, err
	}
	inst.SetLogger(logger)
	return inst, nil
}

// Profile returns the named observing profile of desc.
func Profile(desc *config.InstrumentFile, name string) (map[string]any, error) {
	p, ok := desc.Layout.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q%s", ErrUnknownProfile, name, suggest(name, desc.Layout.Profiles))
	}
	return p, nil
}

func (b *builder) telescope(key string) (*optics.Telescope, error) {
	spec, ok := b.cat.Telescopes[key]
	if !ok {
		return nil, fmt.Errorf("%w: telescope %q%s", ErrUnknownComponent, key, suggest(key, b.cat.Telescopes))
	}
	curve, err := newCurve(spec.Transmission)
	if err != nil {
		return nil, fmt.Errorf("telescope %s: %w", key, err)
	}
	return optics.NewTelescope(b.seq, key, spec.Diameter, curve), nil
}

func (b *builder) detector(key string) (*optics.Detector, error) {
	spec, ok := b.cat.Detectors[key]
	if !ok {
		return nil, fmt.Errorf("%w: detector %q%s", ErrUnknownComponent, key, suggest(key, b.cat.Detectors))
	}
	qe, err := newCurve(spec.QE)
	if err != nil {
		return nil, fmt.Errorf("detector %s: %w", key, err)
	}
	return optics.NewDetector(b.seq, DetectorName, optics.DetectorSpec{
		SizeX:      spec.SizeX,
		SizeY:      spec.SizeY,
		PixelSize:  spec.PixelSize,
		Saturation: spec.Saturation,
		QE:         qe,
	}), nil
}

// filter returns the catalogue curve for key. An empty key is a clear
// element; an unknown one is logged and treated as clear.
func (b *builder) filter(key string) (*optics.Curve, error) {
	if key == "" {
		return nil, nil
	}
	spec, ok := b.cat.Filters[key]
	if !ok {
		b.logger.Error("filter does not exist", "filter", key, "closest", closest(key, b.cat.Filters))
		return nil, nil
	}
	curve, err := newCurve(spec)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", key, err)
	}
	return curve, nil
}

func (b *builder) wheel(keys []string) (*device.Wheel, error) {
	w, err := device.NewWheel(b.seq, WheelName, len(keys))
	if err != nil {
		return nil, err
	}
	for pos, key := range keys {
		spec, ok := b.cat.Gratings[key]
		if !ok {
			b.logger.Error("VPH does not exist", "vph", key, "position", pos, "closest", closest(key, b.cat.Gratings))
			continue
		}
		curve, err := newCurve(spec.Transmission)
		if err != nil {
			return nil, fmt.Errorf("vph %s: %w", key, err)
		}
		if err := w.PutInPos(device.Holding(optics.NewGrating(b.seq, key, curve, spec.Resolution)), pos); err != nil {
			return nil, err
		}
		b.logger.Debug("VPH mounted", "vph", key, "position", pos)
	}
	return w, nil
}

func (b *builder) pseudoSlit(keys []string) (*device.Carrousel, error) {
	ps, err := device.NewCarrousel(b.seq, PseudoSlitName, len(keys)+pslitOffset)
	if err != nil {
		return nil, err
	}
	if err := ps.PutInPos(device.Holding(optics.NewOpen(b.seq, PseudoSlitOpen)), 0); err != nil {
		return nil, err
	}
	if err := ps.PutInPos(device.Holding(optics.NewStop(b.seq, PseudoSlitStop)), 1); err != nil {
		return nil, err
	}
	for i, key := range keys {
		pos := i + pslitOffset
		spec, ok := b.cat.Bundles[key]
		if !ok {
			b.logger.Error("fibre bundle does not exist", "bundle", key, "position", pos, "closest", closest(key, b.cat.Bundles))
			continue
		}
		curve, err := newCurve(spec.Transmission)
		if err != nil {
			return nil, fmt.Errorf("bundle %s: %w", key, err)
		}
		fb := optics.NewFiberBundle(b.seq, key, curve, spec.Fibers, spec.Size, spec.FWHM)
		if err := ps.PutInPos(device.Holding(fb), pos); err != nil {
			return nil, err
		}
		b.logger.Debug("fibre bundle mounted", "bundle", key, "position", pos)
	}
	return ps, nil
}

func (b *builder) lampUnit(u config.LampUnitLayout) (*device.Carrousel, error) {
	lamps := make([]*optics.Lamp, len(u.Lamps))
	for i, key := range u.Lamps {
		spec, ok := b.cat.Lamps[key]
		if !ok {
			b.logger.Error("lamp does not exist", "unit", u.Name, "lamp", key, "closest", closest(key, b.cat.Lamps))
			continue
		}
		lamps[i] = optics.NewLamp(b.seq, key, b.grid, spec.Level)
	}
	return optics.NewLampUnit(b.seq, u.Name, lamps...)
}

func newCurve(c config.CurveConfig) (*optics.Curve, error) {
	if c.IsZero() {
		return nil, nil
	}
	return optics.NewCurve(c.Wavelength, c.Value)
}

// closest returns the key of m nearest to key by edit distance, or ""
// when m is empty. Ties go to the alphabetically first key.
func closest[V any](key string, m map[string]V) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best, bestDist := "", -1
	for _, k := range keys {
		if d := levenshtein.ComputeDistance(key, k); bestDist < 0 || d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}

func suggest[V any](key string, m map[string]V) string {
	if c := closest(key, m); c != "" {
		return fmt.Sprintf(" (did you mean %q?)", c)
	}
	return ""
}
