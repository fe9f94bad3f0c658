// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"io"
	"net/http"
)

// maxImportBytes caps how much archive an import request may carry.
const maxImportBytes = 64 << 20

// ArchiveHandler handles full-snapshot export and import.
type ArchiveHandler struct {
	deps Dependencies
}

// NewArchiveHandler creates a new archive handler.
func NewArchiveHandler(deps Dependencies) *ArchiveHandler {
	return &ArchiveHandler{deps: deps}
}

// HandleExport handles GET /export requests.
func (h *ArchiveHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	archive, err := h.deps.Export(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeResult(w, http.StatusOK, archive)
}

// HandleImport handles POST /import requests. The body is the archive JSON.
func (h *ArchiveHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrBadRequest)
		return
	}
	if err := h.deps.Import(r.Context(), raw); err != nil {
		writeServiceError(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]string{"status": "imported"})
}
