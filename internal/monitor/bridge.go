package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/conectsim/internal/device"
	"github.com/nerrad567/conectsim/internal/infrastructure/mqtt"
	"github.com/nerrad567/conectsim/internal/signal"
)

const (
	// EventStateChanged is the WebSocket channel for device transitions.
	EventStateChanged = "device.state_changed"

	// MeasurementPosition is the field name written per transition.
	MeasurementPosition = "position"

	// historyTimeout bounds one history insert.
	historyTimeout = 2 * time.Second

	// queueSize is the number of transitions held for delivery.
	queueSize = 256
)

// Publisher sends JSON documents to a message bus. *mqtt.Client
// satisfies it.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// MetricsWriter records numeric device readings. *influxdb.Client
// satisfies it.
type MetricsWriter interface {
	WriteDeviceMetric(device, measurement string, value float64)
}

// Broadcaster pushes messages to live clients. *api.Hub satisfies it.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Logger is the logging surface of the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// StateChange is the payload published for one transition.
type StateChange struct {
	Device    string      `json:"device"`
	Position  int         `json:"position"`
	State     device.Info `json:"state"`
	Timestamp time.Time   `json:"timestamp"`
}

// Bridge forwards device transitions to its sinks.
//
// The state of a device is captured when its Changed signal fires, but the
// sinks are called from a single delivery goroutine, in order. A slow
// broker or database never blocks the caller that moved the device. When
// the queue is full further transitions are dropped with a warning.
type Bridge struct {
	publisher   Publisher
	metrics     MetricsWriter
	history     StateHistoryRepository
	broadcaster Broadcaster
	logger      Logger
	now         func() time.Time

	mu   sync.Mutex
	subs []subscription

	qmu    sync.Mutex
	queue  chan delivery
	closed bool
	done   chan struct{}
}

// delivery is one queued transition, or a flush marker when change is nil.
type delivery struct {
	change *StateChange
	ack    chan struct{}
}

type subscription struct {
	signal *signal.Signal[int]
	id     signal.ID
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithPublisher publishes each transition retained on the device's state
// topic.
func WithPublisher(p Publisher) Option { return func(b *Bridge) { b.publisher = p } }

// WithMetrics writes each new position.
func WithMetrics(m MetricsWriter) Option { return func(b *Bridge) { b.metrics = m } }

// WithHistory records each transition.
func WithHistory(r StateHistoryRepository) Option { return func(b *Bridge) { b.history = r } }

// WithBroadcaster pushes each transition to live clients.
func WithBroadcaster(h Broadcaster) Option { return func(b *Bridge) { b.broadcaster = h } }

// WithLogger sets the bridge logger.
func WithLogger(l Logger) Option { return func(b *Bridge) { b.logger = l } }

// NewBridge returns a bridge with the given sinks and starts its delivery
// goroutine. Close stops it.
func NewBridge(opts ...Option) *Bridge {
	b := &Bridge{
		logger: nopLogger{},
		now:    time.Now,
		queue:  make(chan delivery, queueSize),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	go b.run()
	return b
}

// Watch subscribes to every observable device under root, root included,
// and returns the number of devices watched.
func (b *Bridge) Watch(root device.Device) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	watched := 0
	_ = device.Walk(root, func(d device.Device) error {
		obs, ok := d.(device.Observable)
		if !ok {
			return nil
		}
		sig := obs.Changed()
		id := sig.Connect(func(pos int) error {
			b.enqueue(obs, pos)
			return nil
		})
		b.subs = append(b.subs, subscription{signal: sig, id: id})
		watched++
		return nil
	})
	return watched
}

// Flush blocks until every transition queued so far has reached the sinks.
// It returns at once after Close.
func (b *Bridge) Flush() {
	ack := make(chan struct{})
	b.qmu.Lock()
	if b.closed {
		b.qmu.Unlock()
		return
	}
	b.queue <- delivery{ack: ack}
	b.qmu.Unlock()
	<-ack
}

// Close disconnects every subscription made by Watch, delivers what is
// still queued and stops the delivery goroutine. It is safe to call more
// than once.
func (b *Bridge) Close() {
	b.mu.Lock()
	for _, s := range b.subs {
		s.signal.Delete(s.id)
	}
	b.subs = nil
	b.mu.Unlock()

	b.qmu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.qmu.Unlock()
	<-b.done
}

// enqueue snapshots d and queues the transition without waiting for the
// sinks.
func (b *Bridge) enqueue(d device.Device, pos int) {
	change := &StateChange{
		Device:    d.Name(),
		Position:  pos,
		State:     d.ConfigInfo(),
		Timestamp: b.now().UTC(),
	}

	b.qmu.Lock()
	defer b.qmu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.queue <- delivery{change: change}:
	default:
		b.logger.Warn("monitor queue full, dropping transition", "device", change.Device, "position", pos)
	}
}

func (b *Bridge) run() {
	defer close(b.done)
	for d := range b.queue {
		if d.change != nil {
			b.forward(*d.change)
		}
		if d.ack != nil {
			close(d.ack)
		}
	}
}

func (b *Bridge) forward(change StateChange) {
	pos := change.Position
	b.logger.Debug("device state changed", "device", change.Device, "position", pos)

	if b.publisher != nil {
		topic := mqtt.Topics{}.CoreDeviceState(change.Device)
		if err := b.publisher.PublishJSON(topic, change, true); err != nil {
			b.logger.Warn("publishing device state failed", "device", change.Device, "error", err)
		}
	}
	if b.metrics != nil {
		b.metrics.WriteDeviceMetric(change.Device, MeasurementPosition, float64(pos))
	}
	if b.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		err := b.history.RecordStateChange(ctx, change.Device, change.State, SourceSignal)
		cancel()
		if err != nil {
			b.logger.Warn("recording device state failed", "device", change.Device, "error", err)
		}
	}
	if b.broadcaster != nil {
		b.broadcaster.Broadcast(EventStateChanged, change)
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
