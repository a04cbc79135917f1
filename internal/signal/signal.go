// Package signal implements a small in-process publish/subscribe bus.
//
// A Signal carries one typed value to every subscribed callback, in
// subscription order. A callback that returns an error does not stop the
// fan-out: the failure is logged and emission continues with the next
// subscriber. Panics are not recovered.
package signal

import (
	"errors"
	"fmt"
	"sync"
)

// ErrObserver wraps the errors returned by failing callbacks during Emit.
var ErrObserver = errors.New("signal: observer failed")

// Logger defines the logging interface used by a Signal.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ID identifies a subscription. Ids are never reused within a Signal.
type ID uint64

// Callback receives the emitted value.
type Callback[T any] func(T) error

type subscription[T any] struct {
	id ID
	cb Callback[T]
}

// Signal is a list of callbacks sharing one argument type.
type Signal[T any] struct {
	name   string
	mu     sync.Mutex
	subs   []subscription[T]
	nextID ID
	logger Logger
}

// New creates a Signal. The name only appears in log output.
func New[T any](name string) *Signal[T] {
	return &Signal[T]{name: name, logger: noopLogger{}}
}

// Name returns the signal's name.
func (s *Signal[T]) Name() string { return s.name }

// SetLogger sets the logger used to report failing callbacks.
func (s *Signal[T]) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
}

// Connect appends cb to the subscriber list and returns its id.
func (s *Signal[T]) Connect(cb Callback[T]) ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscription[T]{id: id, cb: cb})
	return id
}

// Delete removes the subscription with the given id.
// It reports whether the subscription existed.
func (s *Signal[T]) Delete(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of live subscriptions.
func (s *Signal[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Emit calls every callback with v, in subscription order.
//
// Callbacks subscribed or deleted while Emit runs take effect from the
// next Emit. The returned error joins every callback failure and wraps
// ErrObserver; it is nil when all callbacks succeed.
func (s *Signal[T]) Emit(v T) error {
	s.mu.Lock()
	subs := make([]subscription[T], len(s.subs))
	copy(subs, s.subs)
	logger := s.logger
	s.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.cb(v); err != nil {
			logger.Warn("signal observer failed",
				"signal", s.name,
				"subscription", uint64(sub.id),
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrObserver, s.name, errors.Join(errs...))
}
