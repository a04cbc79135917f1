package instrument

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/conectsim/internal/device"
	"github.com/nerrad567/conectsim/internal/element"
	"github.com/nerrad567/conectsim/internal/node"
	"github.com/nerrad567/conectsim/internal/optics"
	"github.com/nerrad567/conectsim/internal/signal"
)

// Names of the instrument's children. Profiles address them by these keys.
const (
	CalibrationName = "cuselector"
	CoverName       = "cover"
	PseudoSlitName  = "pselector"
	ShutterName     = "shutter"
	WheelName       = "wheel"
	DetectorName    = "detector"
	DASName         = "das"

	// CalibrationOff is the open entry the telescope feeds.
	CalibrationOff = "CUOFF"
)

// profileAliases maps the short keys used in observing profiles to
// child names.
var profileAliases = map[string]string{
	"vph":    WheelName,
	"bundle": PseudoSlitName,
	"cu":     CalibrationName,
}

// ErrMissingPart is returned by New when a required component is nil.
var ErrMissingPart = errors.New("instrument: missing part")

// Logger is the logging surface the instrument writes to.
//
// *logging.Logger satisfies it.
type Logger = signal.Logger

// Parts are the components New wires into a light path. Sky and
// Calibration are optional; everything else is required.
type Parts struct {
	Sky         node.Source
	Telescope   *optics.Telescope
	Calibration []device.Occupant
	Cover       *optics.Cover
	PseudoSlit  *device.Carrousel
	Shutter     *optics.Shutter
	Optics      node.Node
	Wheel       *device.Wheel
	Detector    *optics.Detector
}

// Instrument is a spectrograph: a device tree over a single light path
// running from the telescope to the detector.
type Instrument struct {
	device.Base

	telescope  *optics.Telescope
	cuoff      *optics.Optical
	cuselector *device.Switch
	cover      *optics.Cover
	pselector  *device.Carrousel
	shutter    *optics.Shutter
	optics     node.Node
	wheel      *device.Wheel
	detector   *optics.Detector
	das        *optics.DAS

	grating *optics.Grating
	bundle  *optics.FiberBundle

	logger Logger
}

// New assembles an instrument from parts.
//
// The calibration selector gets the open CUOFF entry at position 0,
// followed by parts.Calibration. The chain is
//
//	sky -> telescope -> CUOFF -> cuselector -> cover -> pselector ->
//	shutter -> optics -> wheel -> detector
//
// and the device tree lists cuselector, cover, pselector, shutter, wheel,
// detector and das as children, in that order.
func New(seq *element.Sequence, name string, parts Parts) (*Instrument, error) {
	if err := parts.check(); err != nil {
		return nil, err
	}

	inst := &Instrument{
		Base:      device.NewBase(seq, name),
		telescope: parts.Telescope,
		cover:     parts.Cover,
		pselector: parts.PseudoSlit,
		shutter:   parts.Shutter,
		optics:    parts.Optics,
		wheel:     parts.Wheel,
		detector:  parts.Detector,
		logger:    nopLogger{},
	}

	cu, err := device.NewSwitch(seq, CalibrationName, len(parts.Calibration)+1)
	if err != nil {
		return nil, err
	}
	inst.cuselector = cu
	inst.cuoff = optics.NewOpen(seq, CalibrationOff)
	if err := cu.ConnectToPos(inst.cuoff, 0); err != nil {
		return nil, err
	}
	for i, occ := range parts.Calibration {
		if err := cu.ConnectToPos(occ, i+1); err != nil {
			return nil, fmt.Errorf("calibration position %d: %w", i+1, err)
		}
		if d, ok := occ.(device.Device); ok {
			if err := device.SetParent(d, cu); err != nil {
				return nil, err
			}
		}
	}
	inst.das = optics.NewDAS(seq, DASName, parts.Detector)

	if err := device.Attach(inst,
		inst.cuselector, inst.cover, inst.pselector, inst.shutter,
		inst.wheel, inst.detector, inst.das,
	); err != nil {
		return nil, err
	}

	if err := inst.wire(parts.Sky); err != nil {
		return nil, err
	}

	inst.updateGrating()
	inst.updateBundle()
	inst.wheel.Changed().Connect(func(int) error {
		inst.updateGrating()
		return nil
	})
	inst.pselector.Changed().Connect(func(int) error {
		inst.updateBundle()
		return nil
	})
	return inst, nil
}

func (p Parts) check() error {
	var missing []string
	if p.Telescope == nil {
		missing = append(missing, "telescope")
	}
	if p.Cover == nil {
		missing = append(missing, "cover")
	}
	if p.PseudoSlit == nil {
		missing = append(missing, "pseudo-slit")
	}
	if p.Shutter == nil {
		missing = append(missing, "shutter")
	}
	if p.Optics == nil {
		missing = append(missing, "optics")
	}
	if p.Wheel == nil {
		missing = append(missing, "wheel")
	}
	if p.Detector == nil {
		missing = append(missing, "detector")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingPart, strings.Join(missing, ", "))
	}
	return nil
}

// wire connects the light path.
func (i *Instrument) wire(sky node.Source) error {
	links := [][2]node.Node{
		{i.telescope, i.cuoff},
		{i.cuselector, i.cover},
		{i.cover, i.pselector},
		{i.pselector, i.shutter},
		{i.shutter, i.optics},
		{i.optics, i.wheel},
		{i.wheel, i.detector},
	}
	if sky != nil {
		links = append([][2]node.Node{{sky, i.telescope}}, links...)
	}
	for _, l := range links {
		if err := node.Connect(l[0], l[1]); err != nil {
			return fmt.Errorf("wiring %s: %w", i.Name(), err)
		}
	}
	return nil
}

func (i *Instrument) updateGrating() {
	i.grating, _ = i.wheel.Current().(*optics.Grating)
}

func (i *Instrument) updateBundle() {
	i.bundle, _ = i.pselector.Current().(*optics.FiberBundle)
}

// SetLogger sets the logger of the instrument and of every signal in its
// device tree.
func (i *Instrument) SetLogger(logger Logger) {
	if logger == nil {
		logger = nopLogger{}
	}
	i.logger = logger
	for _, c := range i.Membership().Children() {
		device.SetLogger(c, logger)
	}
}

// Head returns the node that receives the instrument's input light.
func (i *Instrument) Head() node.Node { return i.telescope }

// Trace returns the active light path ending at the detector.
func (i *Instrument) Trace() []node.Node { return node.Trace(i.detector) }

// TracePath returns the names along Trace.
func (i *Instrument) TracePath() []string { return node.Names(i.Trace()) }

// Telescope returns the telescope.
func (i *Instrument) Telescope() *optics.Telescope { return i.telescope }

// Calibration returns the calibration unit selector.
func (i *Instrument) Calibration() *device.Switch { return i.cuselector }

// Cover returns the focal plane cover.
func (i *Instrument) Cover() *optics.Cover { return i.cover }

// PseudoSlit returns the bundle selector feeding the pseudo-slit.
func (i *Instrument) PseudoSlit() *device.Carrousel { return i.pselector }

// Shutter returns the shutter.
func (i *Instrument) Shutter() *optics.Shutter { return i.shutter }

// Optics returns the internal optics node.
func (i *Instrument) Optics() node.Node { return i.optics }

// Wheel returns the grating wheel.
func (i *Instrument) Wheel() *device.Wheel { return i.wheel }

// Detector returns the detector.
func (i *Instrument) Detector() *optics.Detector { return i.detector }

// DAS returns the data acquisition system.
func (i *Instrument) DAS() *optics.DAS { return i.das }

// Grating returns the grating in the wheel's active slot, or nil.
func (i *Instrument) Grating() *optics.Grating { return i.grating }

// Bundle returns the fibre bundle feeding the pseudo-slit, or nil.
func (i *Instrument) Bundle() *optics.FiberBundle { return i.bundle }

// Configure applies an observing profile: a map from child name (or one
// of the vph, bundle and cu shorthands) to that child's value. The
// description key, if present, is only logged.
func (i *Instrument) Configure(value any) error {
	profile, ok := value.(map[string]any)
	if !ok {
		if info, isInfo := value.(device.Info); isInfo {
			profile = info
		} else {
			return i.Base.Configure(value)
		}
	}

	resolved := make(map[string]any, len(profile))
	for k, v := range profile {
		if alias, ok := profileAliases[k]; ok {
			k = alias
		}
		resolved[k] = v
	}
	if desc, ok := resolved["description"]; ok {
		i.logger.Debug("configuring instrument", "instrument", i.Name(), "profile", desc)
	}
	if err := i.Base.Configure(resolved); err != nil {
		return err
	}
	i.logger.Info("light path", "instrument", i.Name(), "trace", strings.Join(i.TracePath(), " -> "))
	return nil
}

// Run takes one exposure of exptime seconds: the detector is cleared,
// one pulse of light runs down the chain, and the DAS reads it out.
func (i *Instrument) Run(exptime float64) (optics.Exposure, error) {
	i.logger.Info("taking image", "instrument", i.Name(), "exptime", exptime)

	i.detector.Reset()
	if _, err := node.Visit(i.detector); err != nil {
		return optics.Exposure{}, fmt.Errorf("illuminating %s: %w", i.Name(), err)
	}
	exp, err := i.das.Run(exptime)
	if err != nil {
		return optics.Exposure{}, err
	}
	i.logger.Debug("image taken", "instrument", i.Name(), "total", exp.Total(), "saturated", exp.Saturated)
	return exp, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
