package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/bookdigest/internal/digest"
	"github.com/dgallion1/bookdigest/internal/pipeline"
)

// handleCreateSummary runs the whole pipeline inside the request.
func (s *Server) handleCreateSummary(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req digest.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		jsonError(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	res, err := s.svc.Process(r.Context(), req, pipeline.Hooks{})
	if errors.Is(err, digest.ErrEmptySummary) {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		jsonError(w, "Failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res.Response())
}
