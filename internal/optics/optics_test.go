package optics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/conectsim/internal/device"
	"github.com/nerrad567/conectsim/internal/element"
	"github.com/nerrad567/conectsim/internal/node"
)

var grid = []float64{4000, 5000, 6000}

func TestCurve_Interpolation(t *testing.T) {
	c, err := NewCurve([]float64{4000, 6000}, []float64{0.2, 0.6})
	require.NoError(t, err)

	assert.InDelta(t, 0.2, c.At(4000), 1e-12)
	assert.InDelta(t, 0.4, c.At(5000), 1e-12)
	assert.InDelta(t, 0.6, c.At(6000), 1e-12)
	assert.Zero(t, c.At(3999))
	assert.Zero(t, c.At(6001))
}

func TestNewCurve_Invalid(t *testing.T) {
	_, err := NewCurve([]float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrInvalidCurve)

	_, err = NewCurve([]float64{2, 1}, []float64{1, 1})
	assert.ErrorIs(t, err, ErrInvalidCurve)

	_, err = NewCurve(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidCurve)
}

func TestLight_Operations(t *testing.T) {
	l := Uniform(grid, 2)

	assert.InDelta(t, 6, l.Total(), 1e-12)
	assert.InDelta(t, 3, l.Scale(0.5).Total(), 1e-12)
	assert.InDelta(t, 6, l.Apply(nil).Total(), 1e-12)
	assert.InDelta(t, 6, l.Total(), 1e-12, "operations copy")
	assert.True(t, Dark().IsDark())
	assert.False(t, l.IsDark())
}

func TestOptical_RejectsForeignToken(t *testing.T) {
	o := NewOpen(element.NewSequence(), "open")
	_, err := o.Transform(42)
	assert.ErrorIs(t, err, node.ErrUnexpectedToken)
}

func TestStopAndLampAreSources(t *testing.T) {
	seq := element.NewSequence()
	assert.True(t, node.IsSource(NewStop(seq, "stop")))
	assert.True(t, node.IsSource(NewLamp(seq, "ThAr", grid, 1)))
	assert.True(t, node.IsSource(NewSky(seq, "sky", grid, 1, nil)))
	assert.False(t, node.IsSource(NewOpen(seq, "open")))

	out, err := NewStop(seq, "stop").Transform(Uniform(grid, 5))
	require.NoError(t, err)
	assert.True(t, out.(Light).IsDark())
}

func TestTelescope_ScalesByArea(t *testing.T) {
	tel := NewTelescope(element.NewSequence(), "GTC", 2, nil)

	out, err := tel.Transform(Uniform(grid, 1))

	require.NoError(t, err)
	assert.InDelta(t, 3*tel.Area(), out.(Light).Total(), 1e-9)
	assert.Equal(t, device.Info{"name": "GTC", "diameter": 2.0}, tel.ConfigInfo())
}

func TestCover_Positions(t *testing.T) {
	c, err := NewCover(element.NewSequence(), "cover")
	require.NoError(t, err)
	var changed []int
	c.Changed().Connect(func(pos int) error { changed = append(changed, pos); return nil })
	opened := 0
	c.Left().Opened().Connect(func(int) error { opened++; return nil })

	assert.Equal(t, CoverSet, c.Position())
	assert.Equal(t, "SET", c.Label())

	require.NoError(t, c.Set(CoverLeft))
	assert.True(t, c.Left().IsOpen())
	assert.False(t, c.Right().IsOpen())
	assert.Equal(t, "LEFT", c.Label())

	require.NoError(t, c.Flip())
	assert.Equal(t, CoverRight, c.Position())

	require.NoError(t, c.Open())
	require.NoError(t, c.Open())
	assert.Equal(t, []int{CoverLeft, CoverRight, CoverUnset}, changed)
	assert.Equal(t, 2, opened)

	assert.ErrorIs(t, c.Set(4), device.ErrOutOfRange)
	assert.Equal(t, CoverUnset, c.Position())
}

func TestCover_ConfigureAndTransform(t *testing.T) {
	c, err := NewCover(element.NewSequence(), "cover")
	require.NoError(t, err)

	out, err := c.Transform(Uniform(grid, 2))
	require.NoError(t, err)
	assert.True(t, out.(Light).IsDark(), "closed cover blocks")

	require.NoError(t, c.Configure("right"))
	out, err = c.Transform(Uniform(grid, 2))
	require.NoError(t, err)
	assert.InDelta(t, 3, out.(Light).Total(), 1e-12)

	require.NoError(t, c.Configure("open"))
	assert.Equal(t, device.Info{"name": "cover", "position": 3, "label": "UNSET"}, c.ConfigInfo())

	require.NoError(t, c.Configure(float64(0)))
	assert.Equal(t, CoverSet, c.Position())
	assert.ErrorIs(t, c.Configure("ajar"), device.ErrNotFound)
	assert.ErrorIs(t, c.Configure(true), device.ErrInvalidValue)

	require.NoError(t, c.Left().Configure("open"))
	assert.Equal(t, CoverLeft, c.Position())
}

func TestShutter(t *testing.T) {
	s, err := NewShutter(element.NewSequence(), "shutter", nil)
	require.NoError(t, err)

	assert.True(t, s.IsOpen())
	assert.Equal(t, "shutter open", s.ConfigInfo()["label"])

	require.NoError(t, s.Configure("closed"))
	assert.Equal(t, ShutterClosed, s.Position())
	assert.True(t, node.IsSource(s.Current()))

	require.NoError(t, s.Configure("FILTER"))
	assert.Equal(t, ShutterFilter, s.Position())

	require.NoError(t, s.Configure(1))
	assert.True(t, s.IsOpen())

	require.NoError(t, s.Configure("shutter closed"))
	assert.False(t, s.IsOpen())

	assert.ErrorIs(t, s.Configure("half"), device.ErrNotFound)
}

func TestLampUnit(t *testing.T) {
	seq := element.NewSequence()
	unit, err := NewLampUnit(seq, "a", NewLamp(seq, "ThAr", grid, 3), NewLamp(seq, "HgNe", grid, 7))
	require.NoError(t, err)

	out, err := unit.Transform(Dark())
	require.NoError(t, err)
	assert.InDelta(t, 9, out.(Light).Total(), 1e-12)

	require.NoError(t, unit.Select("HgNe"))
	out, err = unit.Transform(Dark())
	require.NoError(t, err)
	assert.InDelta(t, 21, out.(Light).Total(), 1e-12)
}

func TestDetector_ExposeAndSaturate(t *testing.T) {
	d := NewDetector(element.NewSequence(), "detector", DetectorSpec{SizeX: 10, SizeY: 10, Saturation: 50})

	_, err := d.Expose(1)
	assert.ErrorIs(t, err, ErrNotIlluminated)

	_, err = d.Transform(Light{Wavelength: grid, Flux: []float64{1, 10, 100}})
	require.NoError(t, err)

	exp, err := d.Expose(2)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 20, 50}, exp.Counts)
	assert.Equal(t, 1, exp.Saturated)
	assert.InDelta(t, 72, exp.Total(), 1e-12)

	_, err = d.Expose(-1)
	assert.ErrorIs(t, err, ErrInvalidExposure)

	d.Reset()
	_, ok := d.Buffer()
	assert.False(t, ok)
}

func TestDetector_IsSink(t *testing.T) {
	seq := element.NewSequence()
	d := NewDetector(seq, "detector", DetectorSpec{})
	err := node.Connect(d, NewOpen(seq, "after"))
	assert.ErrorIs(t, err, node.ErrIncompatibleArity)
}

func TestDAS_RecordsMetadata(t *testing.T) {
	seq := element.NewSequence()
	d := NewDetector(seq, "detector", DetectorSpec{})
	das := NewDAS(seq, "das", d)
	das.SetClock(func() time.Time { return time.Date(2026, 10, 14, 21, 0, 0, 0, time.UTC) })
	_, err := d.Transform(Uniform(grid, 1))
	require.NoError(t, err)

	exp, err := das.Run(30)

	require.NoError(t, err)
	assert.Equal(t, 30.0, exp.Exptime)
	info := das.ConfigInfo()
	assert.Equal(t, "2026-10-14T21:00:00Z", info["dateobs"])
	assert.Equal(t, 30.0, info["elapsed"])
	assert.Equal(t, "das", info["name"])
}
