package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/conectsim/internal/control"
	"github.com/nerrad567/conectsim/internal/device"
	"github.com/nerrad567/conectsim/internal/instrument"
	"github.com/nerrad567/conectsim/internal/node"
	"github.com/nerrad567/conectsim/internal/optics"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeMethodNotAllow = "method_not_allowed"
	ErrCodeUnavailable    = "unavailable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeCoreError maps an error from the device graph or the control layer
// to a response. Unrecognised errors are logged by the caller's middleware
// and reported as 500 without detail.
func writeCoreError(w http.ResponseWriter, err error) {
	var arity *node.ArityError
	switch {
	case isNotFound(err):
		writeNotFound(w, err.Error())
	case errors.As(err, &arity), isValidation(err):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, control.ErrNoRepository):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "exposure storage is not configured")
	default:
		writeInternalError(w, "internal error")
	}
}

func isNotFound(err error) bool {
	for _, target := range []error{
		device.ErrNotFound,
		control.ErrUnknownDevice,
		control.ErrExposureNotFound,
		instrument.ErrUnknownProfile,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isValidation(err error) bool {
	for _, target := range []error{
		device.ErrOutOfRange,
		device.ErrInvalidValue,
		node.ErrIncompatibleArity,
		node.ErrCycle,
		control.ErrNotTurnable,
		control.ErrInvalidExposure,
		control.ErrInvalidCount,
		optics.ErrInvalidExposure,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
