package api

import (
	"errors"
	"io/fs"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// handleDownloadDocument serves a document written by the local docx store.
func (s *Server) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	if s.docs == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	docID := chi.URLParam(r, "docID")
	path, err := s.docs.Path(docID)
	if err != nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("open document", "doc_id", docID, "error", err)
		jsonError(w, "failed to read document", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		jsonError(w, "failed to read document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+docID+`.docx"`)
	http.ServeContent(w, r, docID+".docx", info.ModTime(), f)
}
