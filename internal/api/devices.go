package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// History query bounds, matching the repository's clamp.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// setDeviceRequest is the body of PUT /devices/{name}. Value is a slot
// position or a slot name for selectors, or whatever the device accepts.
type setDeviceRequest struct {
	Value any `json:"value"`
}

// handleGetDevice returns one device's configuration.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	info, err := s.console.DeviceInfo(chi.URLParam(r, "name"))
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleSetDevice configures one device.
//
//	PUT /api/v1/devices/wheel
//	{"value": "LR-B"}
func (s *Server) handleSetDevice(w http.ResponseWriter, r *http.Request) {
	var req setDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeBadRequest(w, "value is required")
		return
	}

	info, err := s.console.SetDevice(chi.URLParam(r, "name"), req.Value)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleTurnDevice advances a wheel by one slot.
func (s *Server) handleTurnDevice(w http.ResponseWriter, r *http.Request) {
	info, err := s.console.Turn(chi.URLParam(r, "name"))
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleGetDeviceHistory returns the recorded transitions of one device.
//
// Query parameters:
//   - limit: maximum entries (default 50, max 200)
//   - since: RFC 3339 timestamp; only newer entries are returned
func (s *Server) handleGetDeviceHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "state history is not configured")
		return
	}

	name := chi.URLParam(r, "name")
	limit, err := parseLimit(r.URL.Query().Get("limit"), defaultHistoryLimit, maxHistoryLimit)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	since, err := parseSinceParam(r.URL.Query().Get("since"))
	if err != nil {
		writeBadRequest(w, "invalid since timestamp")
		return
	}

	if _, err := s.console.DeviceInfo(name); err != nil {
		writeCoreError(w, err)
		return
	}

	entries, err := s.history.GetHistory(r.Context(), name, limit)
	if err != nil {
		s.logger.Error("loading device history failed", "device", name, "error", err)
		writeInternalError(w, "failed to load device history")
		return
	}

	if !since.IsZero() {
		filtered := entries[:0]
		for _, entry := range entries {
			if entry.CreatedAt.After(since) {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device":  name,
		"history": entries,
		"count":   len(entries),
	})
}

// parseLimit parses a limit query parameter with bounds enforcement.
func parseLimit(raw string, def, upper int) (int, error) {
	if raw == "" {
		return def, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > upper {
		return 0, fmt.Errorf("limit exceeds maximum of %d", upper)
	}

	return limit, nil
}

// parseSinceParam parses the since parameter as RFC 3339.
func parseSinceParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}
