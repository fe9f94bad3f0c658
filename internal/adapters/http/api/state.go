// Package api declares HTTP contracts and route registration helpers.
package api

import "net/http"

// StateHandler handles session state reads.
type StateHandler struct {
	deps Dependencies
}

// NewStateHandler creates a new state handler.
func NewStateHandler(deps Dependencies) *StateHandler {
	return &StateHandler{deps: deps}
}

// HandleState handles GET /state requests.
func (h *StateHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeResult(w, http.StatusOK, h.deps.GetState(r.Context()))
}
