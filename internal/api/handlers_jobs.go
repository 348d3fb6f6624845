package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/bookdigest/internal/digest"
	"github.com/dgallion1/bookdigest/internal/parser"
	"github.com/dgallion1/bookdigest/internal/pipeline"
)

// handleSubmitJob queues a digest. The body is either JSON or a multipart
// form whose summary arrives as a text field or an uploaded file.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	// Extra 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	var (
		req      digest.Request
		filename string
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		var status int
		var err error
		req, filename, status, err = s.readMultipart(r)
		if err != nil {
			jsonError(w, err.Error(), status)
			return
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var inputErr *digest.InputError
	if err := req.Validate(); errors.As(err, &inputErr) {
		jsonError(w, inputErr.Error(), http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(req, filename)
	if err := s.runner.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/jobs/%s", job.ID),
	})
}

func (s *Server) readMultipart(r *http.Request) (digest.Request, string, int, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return digest.Request{}, "", http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	req := digest.Request{
		BookName: r.FormValue("book_name"),
		Author:   r.FormValue("author"),
		Summary:  r.FormValue("summary"),
	}
	if req.Summary != "" {
		return req, "", 0, nil
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		// Validation reports the missing summary.
		return req, "", 0, nil
	}
	if err != nil {
		return req, "", http.StatusBadRequest, fmt.Errorf("read file: %w", err)
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		return req, "", http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}
	if header.Size > s.cfg.MaxUploadBytes {
		return req, "", http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}

	summary, err := parser.ReadSummary(io.LimitReader(file, s.cfg.MaxUploadBytes), filename)
	if err != nil {
		return req, "", http.StatusUnprocessableEntity, fmt.Errorf("parse %s: %w", filename, err)
	}
	req.Summary = summary
	return req, filename, 0, nil
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.runner.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
