// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	service "github.com/horyu/NiconiCompare-sub000/internal/app"
)

// SettingsHandler handles settings reads and partial updates.
type SettingsHandler struct {
	deps Dependencies
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(deps Dependencies) *SettingsHandler {
	return &SettingsHandler{deps: deps}
}

// HandleSettings handles GET and PATCH /settings requests.
func (h *SettingsHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeResult(w, http.StatusOK, h.deps.GetSettings(r.Context()))
	case http.MethodPatch:
		var patch service.SettingsPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
		updated, err := h.deps.UpdateSettings(r.Context(), patch)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeResult(w, http.StatusOK, updated)
	default:
		http.NotFound(w, r)
	}
}
