// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/horyu/NiconiCompare-sub000/internal/app"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/category"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RecordEvent(ctx context.Context, req service.RecordRequest) (service.RecordResult, error)
	DeleteEvent(ctx context.Context, id int64) (bool, error)
	RestoreEvent(ctx context.Context, id int64) (bool, error)
	PurgeEvent(ctx context.Context, id int64) (bool, error)
	BulkMoveEvents(ctx context.Context, ids []int64, to string) (int, error)

	RebuildRatings(ctx context.Context) error
	GetRatings(ctx context.Context) (service.RatingsView, error)
	Rankings(ctx context.Context, categoryID string, limit int) ([]service.RankEntry, error)

	GetSettings(ctx context.Context) model.Settings
	UpdateSettings(ctx context.Context, patch service.SettingsPatch) (model.Settings, error)

	GetCategories(ctx context.Context) model.Categories
	CreateCategory(ctx context.Context, name string) (model.Category, error)
	RenameCategory(ctx context.Context, id, name string) error
	DeleteCategory(ctx context.Context, id, moveTo string) error
	ReorderCategories(ctx context.Context, order []string) (model.Categories, error)
	SetOverlayVisible(ctx context.Context, ids []string) (model.Categories, error)
	SetActiveCategory(ctx context.Context, id string) error

	Export(ctx context.Context) (service.Archive, error)
	Import(ctx context.Context, raw []byte) error

	GetState(ctx context.Context) model.SessionState
	Stats(ctx context.Context) map[string]any
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	eventsHandler     *EventsHandler
	ratingsHandler    *RatingsHandler
	settingsHandler   *SettingsHandler
	categoriesHandler *CategoriesHandler
	archiveHandler    *ArchiveHandler
	stateHandler      *StateHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(deps),
		eventsHandler:     NewEventsHandler(deps),
		ratingsHandler:    NewRatingsHandler(deps),
		settingsHandler:   NewSettingsHandler(deps),
		categoriesHandler: NewCategoriesHandler(deps),
		archiveHandler:    NewArchiveHandler(deps),
		stateHandler:      NewStateHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/events/delete", MetricsMiddleware(s.eventsHandler.HandleDelete, "events_delete"))
	mux.HandleFunc("/events/restore", MetricsMiddleware(s.eventsHandler.HandleRestore, "events_restore"))
	mux.HandleFunc("/events/purge", MetricsMiddleware(s.eventsHandler.HandlePurge, "events_purge"))
	mux.HandleFunc("/events/bulk-move", MetricsMiddleware(s.eventsHandler.HandleBulkMove, "events_bulk_move"))

	mux.HandleFunc("/ratings", MetricsMiddleware(s.ratingsHandler.HandleGetRatings, "ratings"))
	mux.HandleFunc("/ratings/rebuild", MetricsMiddleware(s.ratingsHandler.HandleRebuild, "ratings_rebuild"))
	mux.HandleFunc("/rankings", MetricsMiddleware(s.ratingsHandler.HandleRankings, "rankings"))

	mux.HandleFunc("/settings", MetricsMiddleware(s.settingsHandler.HandleSettings, "settings"))

	mux.HandleFunc("/categories", MetricsMiddleware(s.categoriesHandler.HandleCategories, "categories"))
	mux.HandleFunc("/categories/rename", MetricsMiddleware(s.categoriesHandler.HandleRename, "categories_rename"))
	mux.HandleFunc("/categories/delete", MetricsMiddleware(s.categoriesHandler.HandleDelete, "categories_delete"))
	mux.HandleFunc("/categories/reorder", MetricsMiddleware(s.categoriesHandler.HandleReorder, "categories_reorder"))
	mux.HandleFunc("/categories/overlay", MetricsMiddleware(s.categoriesHandler.HandleOverlay, "categories_overlay"))
	mux.HandleFunc("/categories/activate", MetricsMiddleware(s.categoriesHandler.HandleActivate, "categories_activate"))

	mux.HandleFunc("/export", MetricsMiddleware(s.archiveHandler.HandleExport, "export"))
	mux.HandleFunc("/import", MetricsMiddleware(s.archiveHandler.HandleImport, "import"))

	mux.HandleFunc("/state", MetricsMiddleware(s.stateHandler.HandleState, "state"))
}

// envelope is the uniform response shape: ok plus either a result or an
// error message.
type envelope struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, status int, result any) {
	writeJSON(w, status, envelope{OK: true, Result: result})
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, envelope{OK: false, Error: msg})
}

// writeServiceError maps service sentinels onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrMissingVideoID),
		errors.Is(err, service.ErrSelfComparison),
		errors.Is(err, service.ErrInvalidVerdict),
		errors.Is(err, service.ErrImportVersion),
		errors.Is(err, service.ErrImportPayload),
		errors.Is(err, category.ErrInvalidName),
		errors.Is(err, category.ErrDeleteDefault):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, service.ErrEventNotFound),
		errors.Is(err, category.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
