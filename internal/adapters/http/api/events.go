// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	service "github.com/horyu/NiconiCompare-sub000/internal/app"
)

// EventsHandler handles verdict recording and event lifecycle requests.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req service.RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	res, err := h.deps.RecordEvent(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

// eventIDRequest names one ledger entry.
type eventIDRequest struct {
	EventID int64 `json:"eventId"`
}

// lifecycleResponse reports whether a lifecycle transition applied.
type lifecycleResponse struct {
	EventID int64 `json:"eventId"`
	Applied bool  `json:"applied"`
}

// HandleDelete handles POST /events/delete requests.
func (h *EventsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.deps.DeleteEvent)
}

// HandleRestore handles POST /events/restore requests.
func (h *EventsHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.deps.RestoreEvent)
}

// HandlePurge handles POST /events/purge requests.
func (h *EventsHandler) HandlePurge(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.deps.PurgeEvent)
}

func (h *EventsHandler) lifecycle(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id int64) (bool, error)) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req eventIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	applied, err := apply(r.Context(), req.EventID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeResult(w, http.StatusOK, lifecycleResponse{EventID: req.EventID, Applied: applied})
}

// HandleBulkMove handles POST /events/bulk-move requests.
func (h *EventsHandler) HandleBulkMove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req struct {
		EventIDs   []int64 `json:"eventIds"`
		CategoryID string  `json:"categoryId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	moved, err := h.deps.BulkMoveEvents(r.Context(), req.EventIDs, req.CategoryID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]int{"moved": moved})
}
