package device

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/nerrad567/conectsim/internal/element"
	"github.com/nerrad567/conectsim/internal/node"
)

type CarrouselSuite struct {
	suite.Suite
	seq     *element.Sequence
	c       *Carrousel
	changed []int
	moved   []int
}

func (s *CarrouselSuite) SetupTest() {
	s.seq = element.NewSequence()
	c, err := NewCarrousel(s.seq, "wheel", 4)
	require.NoError(s.T(), err)
	s.c = c
	s.changed, s.moved = nil, nil
	c.Changed().Connect(func(pos int) error { s.changed = append(s.changed, pos); return nil })
	c.Moved().Connect(func(pos int) error { s.moved = append(s.moved, pos); return nil })
}

func (s *CarrouselSuite) TestInitialState() {
	s.Equal(4, s.c.Capacity())
	s.Equal(0, s.c.Position())
	s.Nil(s.c.Current())
	s.Equal(Info{"name": "wheel", "position": 0, "label": "Unknown"}, s.c.ConfigInfo())
}

func (s *CarrouselSuite) TestMoveTo_SignalsOnlyOnChange() {
	require.NoError(s.T(), s.c.MoveTo(2))
	require.NoError(s.T(), s.c.MoveTo(2))

	s.Equal([]int{2}, s.changed)
	s.Equal([]int{2, 2}, s.moved)
	s.Equal(2, s.c.Position())
}

func (s *CarrouselSuite) TestMoveTo_OutOfRange() {
	for _, pos := range []int{-1, 4, 10} {
		err := s.c.MoveTo(pos)
		s.ErrorIs(err, ErrOutOfRange, "pos %d", pos)
	}
	s.Equal(0, s.c.Position())
	s.Empty(s.changed)
	s.Empty(s.moved)
}

func (s *CarrouselSuite) TestSelect() {
	vph := newOptic(s.seq, "VPH1")
	require.NoError(s.T(), s.c.PutInPos(Holding(vph), 1))
	require.NoError(s.T(), s.c.PutInPos(Label("open"), 3))

	require.NoError(s.T(), s.c.Select("VPH1"))
	s.Equal(1, s.c.Position())
	s.Equal(node.Node(vph), s.c.Current())

	require.NoError(s.T(), s.c.Select("open"))
	s.Equal(3, s.c.Position())
	s.Nil(s.c.Current())
	s.Equal("open", s.c.ConfigInfo()["label"])
}

func (s *CarrouselSuite) TestSelect_UnknownKeepsPosition() {
	require.NoError(s.T(), s.c.MoveTo(2))

	err := s.c.Select("VPH9")

	s.ErrorIs(err, ErrNotFound)
	s.Equal(2, s.c.Position())
}

func (s *CarrouselSuite) TestPutInPos_OutOfRange() {
	s.ErrorIs(s.c.PutInPos(Label("x"), 4), ErrOutOfRange)
	_, err := s.c.Slot(-1)
	s.ErrorIs(err, ErrOutOfRange)
}

func (s *CarrouselSuite) TestPutInPos_ActiveSlotUpdatesCurrent() {
	o := newOptic(s.seq, "filter")
	require.NoError(s.T(), s.c.PutInPos(Holding(o), 0))
	s.Equal(node.Node(o), s.c.Current())
	s.Equal("filter", s.c.ConfigInfo()["label"])
}

func (s *CarrouselSuite) TestConfigure() {
	require.NoError(s.T(), s.c.PutInPos(Label("LR-U"), 3))

	require.NoError(s.T(), s.c.Configure(1))
	s.Equal(1, s.c.Position())

	require.NoError(s.T(), s.c.Configure(float64(2)))
	s.Equal(2, s.c.Position())

	require.NoError(s.T(), s.c.Configure("LR-U"))
	s.Equal(3, s.c.Position())

	s.ErrorIs(s.c.Configure([]int{1}), ErrInvalidValue)
	s.ErrorIs(s.c.Configure(7), ErrOutOfRange)
}

func (s *CarrouselSuite) TestTransform_DelegatesToCurrent() {
	l := newLamp(s.seq, "ThAr")
	require.NoError(s.T(), s.c.PutInPos(Holding(l), 1))

	out, err := s.c.Transform("light")
	require.NoError(s.T(), err)
	s.Equal("light", out, "empty slot passes through")

	require.NoError(s.T(), s.c.MoveTo(1))
	out, err = s.c.Transform("light")
	require.NoError(s.T(), err)
	s.Equal("ThAr", out)
}

func (s *CarrouselSuite) TestFailingObserverDoesNotBlockMove() {
	s.c.Changed().Connect(func(int) error { return errors.New("broker down") })

	require.NoError(s.T(), s.c.MoveTo(1))
	s.Equal(1, s.c.Position())
	s.Equal([]int{1}, s.changed)
	s.Equal([]int{1}, s.moved)
}

func (s *CarrouselSuite) TestLabels() {
	require.NoError(s.T(), s.c.PutInPos(Label("a"), 1))
	s.Equal([]string{"Unknown", "a", "Unknown", "Unknown"}, s.c.Labels())
}

func TestCarrouselSuite(t *testing.T) {
	suite.Run(t, new(CarrouselSuite))
}

func TestNewCarrousel_InvalidCapacity(t *testing.T) {
	_, err := NewCarrousel(element.NewSequence(), "x", 0)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestWheel_TurnWraps(t *testing.T) {
	w, err := NewWheel(element.NewSequence(), "wheel", 3)
	require.NoError(t, err)
	var changed []int
	w.Changed().Connect(func(pos int) error { changed = append(changed, pos); return nil })

	for range 4 {
		require.NoError(t, w.Turn())
	}

	assert.Equal(t, 1, w.Position())
	assert.Equal(t, []int{1, 2, 0, 1}, changed)
}

func TestWheel_FourSlotFullTurn(t *testing.T) {
	seq := element.NewSequence()
	w, err := NewWheel(seq, "wheel", 4)
	require.NoError(t, err)
	items := make([]*optic, 4)
	for i := range items {
		items[i] = newOptic(seq, fmt.Sprintf("VPH%d", i))
		require.NoError(t, w.PutInPos(Holding(items[i]), i))
	}

	var positions []int
	for range 4 {
		require.NoError(t, w.Turn())
		positions = append(positions, w.Position())
	}

	assert.Equal(t, []int{1, 2, 3, 0}, positions)
	assert.Equal(t, node.Node(items[0]), w.Current())
}

func TestCarrousel_SelectSuggestsClosestLabel(t *testing.T) {
	c, err := NewCarrousel(element.NewSequence(), "wheel", 3)
	require.NoError(t, err)
	require.NoError(t, c.PutInPos(Label("LR-U"), 0))
	require.NoError(t, c.PutInPos(Label("MR-G"), 1))

	err = c.Select("LR-V")

	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), `did you mean "LR-U"?`)

	empty, err := NewCarrousel(element.NewSequence(), "empty", 1)
	require.NoError(t, err)
	err = empty.Select("LR-U")
	require.ErrorIs(t, err, ErrNotFound)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestWheel_SingleSlotTurnIsNoChange(t *testing.T) {
	w, err := NewWheel(element.NewSequence(), "wheel", 1)
	require.NoError(t, err)
	changed, moved := 0, 0
	w.Changed().Connect(func(int) error { changed++; return nil })
	w.Moved().Connect(func(int) error { moved++; return nil })

	require.NoError(t, w.Turn())

	assert.Equal(t, 0, changed)
	assert.Equal(t, 1, moved)
}

func TestCarrousel_InChain(t *testing.T) {
	seq := element.NewSequence()
	c, err := NewCarrousel(seq, "shutter", 2)
	require.NoError(t, err)
	stop := newLamp(seq, "stop")
	open := newOptic(seq, "open")
	require.NoError(t, c.PutInPos(Holding(stop), 0))
	require.NoError(t, c.PutInPos(Holding(open), 1))

	sky := newLamp(seq, "sky")
	after := newOptic(seq, "optics")
	require.NoError(t, node.Connect(sky, c))
	require.NoError(t, node.Connect(c, after))

	assert.Equal(t, []string{"stop", "optics"}, node.Names(node.Trace(after)))

	require.NoError(t, c.MoveTo(1))
	assert.Equal(t, []string{"sky", "open", "optics"}, node.Names(node.Trace(after)))
}
