package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/conectsim/internal/device"
	"github.com/nerrad567/conectsim/internal/infrastructure/config"
	"github.com/nerrad567/conectsim/internal/infrastructure/influxdb"
	"github.com/nerrad567/conectsim/internal/infrastructure/mqtt"
	"github.com/nerrad567/conectsim/internal/instrument"
)

// Exposure limits accepted by Console.Expose.
const (
	MinExptime = 0.0
	MaxExptime = 36000.0
	MaxImages  = 100
)

// Publisher sends JSON documents to a message bus. *mqtt.Client
// satisfies it.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// MetricsWriter records exposure telemetry. *influxdb.Client satisfies it.
type MetricsWriter interface {
	WriteExposure(e influxdb.ExposureMetric)
}

// Console serializes every call into the instrument and the control
// system. The graph is single-threaded; Console is the one place where
// concurrent callers (HTTP handlers, MQTT callbacks) meet it.
type Console struct {
	mu        sync.Mutex
	inst      *instrument.Instrument
	system    *System
	profiles  *config.InstrumentFile
	repo      Repository
	publisher Publisher
	metrics   MetricsWriter
	logger    Logger
}

// Option configures a Console.
type Option func(*Console)

// WithRepository stores every exposure in repo.
func WithRepository(repo Repository) Option {
	return func(c *Console) { c.repo = repo }
}

// WithPublisher publishes every exposure record.
func WithPublisher(p Publisher) Option {
	return func(c *Console) { c.publisher = p }
}

// WithMetrics writes a telemetry point per exposure.
func WithMetrics(m MetricsWriter) Option {
	return func(c *Console) { c.metrics = m }
}

// WithLogger sets the console logger.
func WithLogger(l Logger) Option {
	return func(c *Console) { c.logger = l }
}

// WithProfiles makes the observing profiles of desc available to
// ApplyProfile.
func WithProfiles(desc *config.InstrumentFile) Option {
	return func(c *Console) { c.profiles = desc }
}

// NewConsole returns a console over inst and system.
func NewConsole(inst *instrument.Instrument, system *System, opts ...Option) *Console {
	c := &Console{
		inst:   inst,
		system: system,
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the instrument name.
func (c *Console) Name() string { return c.inst.Name() }

// System returns the control system.
func (c *Console) System() *System { return c.system }

// Instrument returns the instrument. Callers outside the console must not
// mutate it.
func (c *Console) Instrument() *instrument.Instrument { return c.inst }

// ConfigInfo returns the configuration of the whole instrument.
func (c *Console) ConfigInfo() device.Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inst.ConfigInfo()
}

// Trace returns the names of the nodes on the active light path.
func (c *Console) Trace() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inst.TracePath()
}

// Configure applies a profile map to the instrument.
func (c *Console) Configure(profile map[string]any) (device.Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.inst.Configure(profile); err != nil {
		return nil, err
	}
	return c.inst.ConfigInfo(), nil
}

// ApplyProfile applies a named observing profile.
func (c *Console) ApplyProfile(name string) (device.Info, error) {
	if c.profiles == nil {
		return nil, fmt.Errorf("%w: %q", instrument.ErrUnknownProfile, name)
	}
	profile, err := instrument.Profile(c.profiles, name)
	if err != nil {
		return nil, err
	}
	c.logger.Info("applying profile", "profile", name)
	return c.Configure(profile)
}

// DeviceInfo returns the configuration of the named device.
func (c *Console) DeviceInfo(name string) (device.Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, err := c.find(name)
	if err != nil {
		return nil, err
	}
	return d.ConfigInfo(), nil
}

// SetDevice configures the named device with value.
func (c *Console) SetDevice(name string, value any) (device.Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, err := c.find(name)
	if err != nil {
		return nil, err
	}
	if err := d.Configure(value); err != nil {
		return nil, err
	}
	c.logger.Debug("device set", "device", name, "value", value)
	return d.ConfigInfo(), nil
}

// Turn advances the named wheel by one slot.
func (c *Console) Turn(name string) (device.Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, err := c.find(name)
	if err != nil {
		return nil, err
	}
	t, ok := d.(interface{ Turn() error })
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotTurnable, name)
	}
	if err := t.Turn(); err != nil {
		return nil, err
	}
	return d.ConfigInfo(), nil
}

func (c *Console) find(name string) (device.Device, error) {
	d, ok := device.Find(c.inst, name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, name)
	}
	return d, nil
}

// Expose takes count images of exptime seconds, then stores, publishes
// and records each one. Records taken before an error are returned with
// it.
func (c *Console) Expose(ctx context.Context, exptime float64, count int) ([]Exposure, error) {
	if exptime < MinExptime || exptime > MaxExptime {
		return nil, fmt.Errorf("%w: %g not in [%g, %g]", ErrInvalidExposure, exptime, MinExptime, MaxExptime)
	}
	if count < 1 || count > MaxImages {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidCount, count, MaxImages)
	}

	c.mu.Lock()
	records, runErr := c.system.Run(ctx, c.inst, exptime, count)
	c.mu.Unlock()

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	for i := range records {
		if err := c.record(ctx, &records[i]); err != nil {
			errs = append(errs, err)
			break
		}
	}
	return records, errors.Join(errs...)
}

func (c *Console) record(ctx context.Context, e *Exposure) error {
	if c.repo != nil {
		if err := c.repo.Save(ctx, e); err != nil {
			return fmt.Errorf("saving %s: %w", e.Name, err)
		}
	}
	if c.publisher != nil {
		if err := c.publisher.PublishJSON(mqtt.Topics{}.CoreExposure(e.Name), e, false); err != nil {
			c.logger.Warn("publishing exposure failed", "name", e.Name, "error", err)
		}
	}
	if c.metrics != nil {
		c.metrics.WriteExposure(influxdb.ExposureMetric{
			Name:       e.Name,
			Instrument: e.Instrument,
			Exptime:    e.Exptime,
			Total:      e.Total,
			Saturated:  e.Saturated > 0,
		})
	}
	return nil
}

// Exposures lists stored exposures, newest first.
func (c *Console) Exposures(ctx context.Context, limit int) ([]Exposure, error) {
	if c.repo == nil {
		return nil, ErrNoRepository
	}
	return c.repo.List(ctx, limit)
}

// Exposure returns a stored exposure by image name.
func (c *Console) Exposure(ctx context.Context, name string) (*Exposure, error) {
	if c.repo == nil {
		return nil, ErrNoRepository
	}
	return c.repo.Get(ctx, name)
}

// ─── Remote commands ────────────────────────────────────────────────

// Command actions.
const (
	ActionConfigure = "configure"
	ActionProfile   = "profile"
	ActionSet       = "set"
	ActionTurn      = "turn"
	ActionExpose    = "expose"
)

// Command is the JSON payload of a remote instrument command.
//
//	{"action": "set", "device": "wheel", "value": "LR-B"}
//	{"action": "expose", "exptime": 10, "count": 3}
type Command struct {
	Action  string         `json:"action"`
	Device  string         `json:"device,omitempty"`
	Name    string         `json:"name,omitempty"`
	Value   any            `json:"value,omitempty"`
	Profile map[string]any `json:"profile,omitempty"`
	Exptime float64        `json:"exptime,omitempty"`
	Count   int            `json:"count,omitempty"`
}

// Execute runs one command.
func (c *Console) Execute(ctx context.Context, cmd Command) error {
	var err error
	switch cmd.Action {
	case ActionConfigure:
		_, err = c.Configure(cmd.Profile)
	case ActionProfile:
		_, err = c.ApplyProfile(cmd.Name)
	case ActionSet:
		_, err = c.SetDevice(cmd.Device, cmd.Value)
	case ActionTurn:
		_, err = c.Turn(cmd.Device)
	case ActionExpose:
		count := cmd.Count
		if count == 0 {
			count = 1
		}
		_, err = c.Expose(ctx, cmd.Exptime, count)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
	return err
}

// CommandHandler returns a message handler that decodes Command payloads
// and executes them. Failures are logged and returned.
func (c *Console) CommandHandler() func(topic string, payload []byte) error {
	return func(topic string, payload []byte) error {
		var cmd Command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			c.logger.Warn("invalid command payload", "topic", topic, "error", err)
			return fmt.Errorf("decoding command: %w", err)
		}
		if err := c.Execute(context.Background(), cmd); err != nil {
			c.logger.Error("command failed", "topic", topic, "action", cmd.Action, "error", err)
			return err
		}
		c.logger.Info("command executed", "topic", topic, "action", cmd.Action)
		return nil
	}
}
