package control

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/conectsim/internal/device"
	"github.com/nerrad567/conectsim/internal/infrastructure/config"
	"github.com/nerrad567/conectsim/internal/optics"
)

// Metadata sections.
const (
	MetaOB       = "ob"
	MetaPointing = "pointing"
	MetaProposal = "proposal"
	MetaControl  = "control"
)

// Logger is the logging surface of the package. *logging.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Runner is an instrument that System can expose.
type Runner interface {
	Name() string
	ConfigInfo() device.Info
	Run(exptime float64) (optics.Exposure, error)
}

// ObservingBlock groups the exposures of one observation.
type ObservingBlock struct {
	ID             int       `json:"id"`
	Mode           string    `json:"mode"`
	Observer       string    `json:"observer"`
	Object         string    `json:"object"`
	StartTime      time.Time `json:"start_time,omitempty"`
	CompletionTime time.Time `json:"completion_time,omitempty"`
}

// Exposure is the record of one stored image.
type Exposure struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	RunID      string         `json:"run_id"`
	OBID       int            `json:"ob_id"`
	Instrument string         `json:"instrument"`
	Exptime    float64        `json:"exptime"`
	Total      float64        `json:"total_counts"`
	Saturated  int            `json:"saturated"`
	Meta       map[string]any `json:"meta"`
	Header     []Card         `json:"header"`
	CreatedAt  time.Time      `json:"created_at"`
}

// System is the observation control system.
type System struct {
	mu       sync.Mutex
	names    *NameGenerator
	meta     map[string]any
	header   config.HeaderConfig
	elements map[string]any
	current  *ObservingBlock
	obCount  int
	now      func() time.Time
	newRunID func() string
	logger   Logger
}

// NewSystem returns a System with metadata defaults taken from cfg.
func NewSystem(cfg config.ControlConfig, logger Logger) *System {
	if logger == nil {
		logger = nopLogger{}
	}
	origin := cfg.Header.Origin
	if origin == "" {
		origin = "conectsim"
	}
	return &System{
		names: NewNameGenerator(cfg.NameTemplate, cfg.StartIndex),
		meta: map[string]any{
			MetaOB: map[string]any{
				"observer": cfg.Observer,
				"object":   cfg.Object,
				"mode":     cfg.Mode,
				"id":       0,
			},
			MetaPointing: map[string]any{
				"ra":      cfg.Pointing.RA,
				"dec":     cfg.Pointing.Dec,
				"airmass": cfg.Pointing.Airmass,
			},
			MetaProposal: map[string]any{
				"id":    cfg.Proposal.ID,
				"pi_id": cfg.Proposal.PI,
			},
			MetaControl: map[string]any{
				"name":  origin,
				"runid": "",
				"date":  "",
			},
		},
		header:   cfg.Header,
		elements: make(map[string]any),
		now:      time.Now,
		newRunID: uuid.NewString,
		logger:   logger,
	}
}

// SetClock replaces the time source.
func (s *System) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Meta returns a deep copy of the metadata tree.
func (s *System) Meta() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyMap(s.meta)
}

// SetMeta sets one metadata value addressed as "section.key".
func (s *System) SetMeta(path string, value any) error {
	section, key, ok := strings.Cut(path, ".")
	if !ok || key == "" {
		return fmt.Errorf("%w: %q is not section.key", ErrMetaPath, path)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meta[section].(map[string]any)
	if !ok {
		m = map[string]any{}
		s.meta[section] = m
	}
	m[key] = value
	return nil
}

// SetObject sets the observed object name. "{repeat}" in the name is
// replaced by the image number within a run.
func (s *System) SetObject(name string) {
	_ = s.SetMeta(MetaOB+".object", name)
}

// Names returns the exposure name generator.
func (s *System) Names() *NameGenerator { return s.names }

// Register stores an element under name, replacing any previous one.
func (s *System) Register(name string, element any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements[name] = element
}

// Get returns the element registered under name.
func (s *System) Get(name string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.elements[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownElement, name)
	}
	return el, nil
}

// CreateOB makes a new current observing block and returns its id. Ids
// start at 1 and increase per System.
func (s *System) CreateOB(mode, target string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obCount++
	ob, _ := s.meta[MetaOB].(map[string]any)
	observer, _ := ob["observer"].(string)
	s.current = &ObservingBlock{
		ID:       s.obCount,
		Mode:     mode,
		Observer: observer,
		Object:   target,
	}
	if ob != nil {
		ob["id"] = s.obCount
		ob["mode"] = mode
		ob["object"] = target
	}
	return s.obCount
}

// StartOB stamps the start time of the current observing block.
func (s *System) StartOB() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoObservingBlock
	}
	s.current.StartTime = s.now().UTC()
	s.logger.Info("starting observing block", "ob", s.current.ID)
	return nil
}

// EndOB completes the current observing block and clears it.
func (s *System) EndOB() (*ObservingBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, ErrNoObservingBlock
	}
	ob := s.current
	ob.CompletionTime = s.now().UTC()
	s.current = nil
	s.logger.Info("ending observing block", "ob", ob.ID)
	return ob, nil
}

// CurrentOB returns a copy of the current observing block, or nil.
func (s *System) CurrentOB() *ObservingBlock {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	ob := *s.current
	return &ob
}

// Run takes count exposures of exptime seconds. Each record gets the next
// image name, a shared run id, and its own copy of the metadata with the
// instrument's configuration under the instrument's name.
//
// The context is checked between images; records produced before a
// cancellation or an instrument error are returned with the error.
func (s *System) Run(ctx context.Context, inst Runner, exptime float64, count int) ([]Exposure, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}

	s.mu.Lock()
	base := copyMap(s.meta)
	obID := 0
	if s.current != nil {
		obID = s.current.ID
	}
	now, runID := s.now, s.newRunID()
	s.mu.Unlock()

	ob, _ := base[MetaOB].(map[string]any)
	template, _ := ob["object"].(string)

	records := make([]Exposure, 0, count)
	for repeat := 1; repeat <= count; repeat++ {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		exp, err := inst.Run(exptime)
		if err != nil {
			return records, fmt.Errorf("image %d of %d: %w", repeat, count, err)
		}

		created := now().UTC()
		name := s.names.Next()

		meta := copyMap(base)
		meta[inst.Name()] = copyMap(inst.ConfigInfo())
		if m, ok := meta[MetaControl].(map[string]any); ok {
			m["date"] = created.Format(time.RFC3339Nano)
			m["runid"] = runID
		}
		if m, ok := meta[MetaOB].(map[string]any); ok {
			m["object"] = strings.ReplaceAll(template, "{repeat}", strconv.Itoa(repeat))
			m["id"] = obID
		}

		header, err := Header(meta, inst.Name(), DefaultCards(s.header, inst.Name()))
		if err != nil {
			return records, fmt.Errorf("building header of %s: %w", name, err)
		}

		records = append(records, Exposure{
			Name:       name,
			RunID:      runID,
			OBID:       obID,
			Instrument: inst.Name(),
			Exptime:    exptime,
			Total:      exp.Total(),
			Saturated:  exp.Saturated,
			Meta:       meta,
			Header:     header,
			CreatedAt:  created,
		})
		s.logger.Info("image taken", "name", name, "run", runID, "exptime", exptime)
	}
	return records, nil
}

// copyMap deep-copies nested maps and slices.
func copyMap[M ~map[string]any](m M) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case device.Info:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []float64:
		return append([]float64(nil), t...)
	default:
		return v
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
