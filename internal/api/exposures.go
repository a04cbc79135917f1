package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/conectsim/internal/control"
)

// Exposure list bounds.
const (
	defaultExposureLimit = 50
	maxExposureLimit     = 500
)

// exposeRequest is the body of POST /exposures.
type exposeRequest struct {
	Exptime float64 `json:"exptime"`
	Count   int     `json:"count"`
	Object  string  `json:"object,omitempty"`
}

// handleExpose takes one or more images.
//
//	POST /api/v1/exposures
//	{"exptime": 10, "count": 3, "object": "M31 {repeat}"}
//
// Records taken before a failure are stored and returned with the error
// message in a 500 response.
func (s *Server) handleExpose(w http.ResponseWriter, r *http.Request) {
	req := exposeRequest{Count: 1}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Object != "" {
		s.console.System().SetObject(req.Object)
	}

	records, err := s.console.Expose(r.Context(), req.Exptime, req.Count)
	if err != nil {
		if len(records) == 0 {
			writeCoreError(w, err)
			return
		}
		s.logger.Error("exposure run incomplete", "taken", len(records), "requested", req.Count, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status":    http.StatusInternalServerError,
			"code":      ErrCodeInternal,
			"message":   err.Error(),
			"exposures": records,
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"exposures": records, "count": len(records)})
}

// handleListExposures returns stored exposures, newest first.
func (s *Server) handleListExposures(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"), defaultExposureLimit, maxExposureLimit)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	records, err := s.console.Exposures(r.Context(), limit)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	if records == nil {
		records = []control.Exposure{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"exposures": records, "count": len(records)})
}

// handleGetExposure returns one stored exposure.
func (s *Server) handleGetExposure(w http.ResponseWriter, r *http.Request) {
	record, err := s.console.Exposure(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
