package signal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	noopLogger
	warnings []string
}

func (l *recordingLogger) Warn(msg string, _ ...any) { l.warnings = append(l.warnings, msg) }

func TestEmit_CallsInSubscriptionOrder(t *testing.T) {
	s := New[int]("changed")
	var got []string

	s.Connect(func(v int) error { got = append(got, "a"); return nil })
	s.Connect(func(v int) error { got = append(got, "b"); return nil })
	s.Connect(func(v int) error { got = append(got, "c"); return nil })

	require.NoError(t, s.Emit(1))
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestEmit_PassesValue(t *testing.T) {
	s := New[string]("label")
	var got string
	s.Connect(func(v string) error { got = v; return nil })

	require.NoError(t, s.Emit("VPH1"))
	assert.Equal(t, "VPH1", got)
}

func TestEmit_NoSubscribers(t *testing.T) {
	s := New[int]("empty")
	assert.NoError(t, s.Emit(3))
	assert.Equal(t, 0, s.Len())
}

func TestDelete_KeepsOtherIDsStable(t *testing.T) {
	s := New[int]("moved")
	var got []string

	a := s.Connect(func(int) error { got = append(got, "a"); return nil })
	b := s.Connect(func(int) error { got = append(got, "b"); return nil })
	c := s.Connect(func(int) error { got = append(got, "c"); return nil })

	require.True(t, s.Delete(a))
	require.NoError(t, s.Emit(0))
	assert.Equal(t, []string{"b", "c"}, got)

	// b and c still address their own subscriptions after a was removed.
	got = nil
	require.True(t, s.Delete(c))
	require.NoError(t, s.Emit(0))
	assert.Equal(t, []string{"b"}, got)

	assert.False(t, s.Delete(a), "deleting twice reports false")
	assert.False(t, s.Delete(ID(99)))
	assert.True(t, s.Delete(b))
	assert.Equal(t, 0, s.Len())
}

func TestEmit_FailingObserverIsIsolated(t *testing.T) {
	s := New[int]("changed")
	logger := &recordingLogger{}
	s.SetLogger(logger)

	boom := errors.New("boom")
	var after bool
	s.Connect(func(int) error { return boom })
	s.Connect(func(int) error { after = true; return nil })

	err := s.Emit(2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrObserver)
	assert.ErrorIs(t, err, boom)
	assert.True(t, after, "later subscribers still run")
	assert.Len(t, logger.warnings, 1)
}

func TestEmit_SubscribeDuringEmit(t *testing.T) {
	s := New[int]("changed")
	calls := 0
	s.Connect(func(int) error {
		s.Connect(func(int) error { calls++; return nil })
		return nil
	})

	require.NoError(t, s.Emit(0))
	assert.Equal(t, 0, calls, "new subscriber not called during the same emit")

	require.NoError(t, s.Emit(0))
	assert.Equal(t, 1, calls)
}

func TestEmit_PanicPropagates(t *testing.T) {
	s := New[int]("changed")
	s.Connect(func(int) error { panic("programming error") })

	assert.Panics(t, func() { _ = s.Emit(0) })
}

func TestSetLogger_NilFallsBackToNoop(t *testing.T) {
	s := New[int]("changed")
	s.SetLogger(nil)
	s.Connect(func(int) error { return errors.New("x") })

	assert.Error(t, s.Emit(0))
}
