package monitor

import (
	"context"
	"time"

	"github.com/nerrad567/conectsim/internal/device"
)

// State history source values.
const (
	SourceSignal  = "signal"
	SourceCommand = "command"
)

// StateHistoryEntry is one recorded device transition.
type StateHistoryEntry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// Device is the device name.
	Device string `json:"device"`

	// State is the device's ConfigInfo after the transition.
	State device.Info `json:"state"`

	// Source identifies what recorded the change (signal, command).
	Source string `json:"source"`

	// CreatedAt is the time of the transition (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// StateHistoryRepository stores and retrieves device state history.
//
// Implementations must be thread-safe and use UTC timestamps.
type StateHistoryRepository interface {
	// RecordStateChange records a device transition.
	RecordStateChange(ctx context.Context, deviceName string, state device.Info, source string) error

	// GetHistory returns the device's recent transitions, newest first.
	// Implementations may clamp limit.
	GetHistory(ctx context.Context, deviceName string, limit int) ([]StateHistoryEntry, error)
}
