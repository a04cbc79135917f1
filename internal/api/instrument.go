package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleGetInstrument returns the configuration of the whole instrument.
func (s *Server) handleGetInstrument(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.console.ConfigInfo())
}

// handleGetTrace returns the active light path, source first.
func (s *Server) handleGetTrace(w http.ResponseWriter, _ *http.Request) {
	trace := s.console.Trace()
	writeJSON(w, http.StatusOK, map[string]any{"trace": trace, "count": len(trace)})
}

// handleConfigureInstrument applies a profile map from the request body.
//
//	PUT /api/v1/instrument/configure
//	{"cover": "open", "vph": "LR-B", "bundle": "LCB"}
func (s *Server) handleConfigureInstrument(w http.ResponseWriter, r *http.Request) {
	var profile map[string]any
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil || profile == nil {
		writeBadRequest(w, "invalid JSON body: expected an object")
		return
	}

	info, err := s.console.Configure(profile)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleApplyProfile applies a named observing profile.
func (s *Server) handleApplyProfile(w http.ResponseWriter, r *http.Request) {
	info, err := s.console.ApplyProfile(chi.URLParam(r, "name"))
	if err != nil {
		writeCoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
