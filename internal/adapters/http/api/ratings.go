// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"
)

// RatingsHandler handles rating table and ranking queries plus rebuilds.
type RatingsHandler struct {
	deps Dependencies
}

// NewRatingsHandler creates a new ratings handler.
func NewRatingsHandler(deps Dependencies) *RatingsHandler {
	return &RatingsHandler{deps: deps}
}

// HandleGetRatings handles GET /ratings requests.
func (h *RatingsHandler) HandleGetRatings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	view, err := h.deps.GetRatings(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeResult(w, http.StatusOK, view)
}

// HandleRebuild handles POST /ratings/rebuild requests.
func (h *RatingsHandler) HandleRebuild(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.RebuildRatings(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]string{"status": "rebuilt"})
}

// HandleRankings handles GET /rankings?category=&limit= requests.
func (h *RatingsHandler) HandleRankings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	categoryID := r.URL.Query().Get("category")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrBadRequest)
			return
		}
		limit = n
	}
	entries, err := h.deps.Rankings(r.Context(), categoryID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeResult(w, http.StatusOK, entries)
}
