package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/horyu/NiconiCompare-sub000/internal/adapters/repository"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/category"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/rating"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/recent"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/settings"
	"github.com/horyu/NiconiCompare-sub000/pkg/logger"
	"github.com/horyu/NiconiCompare-sub000/pkg/metrics"
)

// Archive is the full-snapshot exchange format. Ratings are included on
// export for inspection but ignored on import: they are re-derived from the
// event history so an edited archive cannot smuggle in inconsistent tables.
type Archive struct {
	SchemaVersion int                     `json:"schemaVersion"`
	ExportedAt    int64                   `json:"exportedAt"`
	Settings      *model.Settings         `json:"settings"`
	Categories    *model.Categories       `json:"categories"`
	Events        *model.EventLog         `json:"events"`
	Videos        map[string]model.Video  `json:"videos"`
	Authors       map[string]model.Author `json:"authors"`
	State         *model.SessionState     `json:"state"`
	Ratings       model.Ratings           `json:"ratings"`
	Meta          *model.Meta             `json:"meta"`
}

// rawArchive defers schema version decoding so a malformed version field is
// reported as a version problem rather than a generic JSON error.
type rawArchive struct {
	SchemaVersion json.RawMessage `json:"schemaVersion"`
	Archive
}

// Export assembles the complete snapshot as an archive.
func (s *Service) Export(ctx context.Context) (Archive, error) {
	st, err := s.load(ctx)
	if err != nil {
		return Archive{}, fmt.Errorf("loading state: %w", err)
	}
	return Archive{
		SchemaVersion: st.meta.SchemaVersion,
		ExportedAt:    s.nowMillis(),
		Settings:      &st.settings,
		Categories:    &st.categories,
		Events:        &st.events,
		Videos:        st.videos,
		Authors:       st.authors,
		State:         &st.session,
		Ratings:       st.ratings,
		Meta:          &st.meta,
	}, nil
}

// Import replaces the entire snapshot with the archive's contents. The
// archive must carry the current schema version: newer archives cannot be
// understood and older ones have no migration path. Settings and
// categories are normalized, ratings and the recent window are re-derived
// from the imported ledger, and the whole snapshot is committed atomically.
func (s *Service) Import(ctx context.Context, raw []byte) error {
	var ra rawArchive
	if err := json.Unmarshal(raw, &ra); err != nil {
		metrics.RecordImportRejected()
		return fmt.Errorf("%w: %v", ErrImportPayload, err)
	}

	var version int
	if err := json.Unmarshal(ra.SchemaVersion, &version); err != nil {
		metrics.RecordImportRejected()
		return fmt.Errorf("%w: malformed version field", ErrImportVersion)
	}
	if version > model.SchemaVersion {
		metrics.RecordImportRejected()
		return fmt.Errorf("%w: archive version %d is newer than %d", ErrImportVersion, version, model.SchemaVersion)
	}
	if version < model.SchemaVersion {
		metrics.RecordImportRejected()
		return fmt.Errorf("%w: no migration from version %d to %d", ErrImportVersion, version, model.SchemaVersion)
	}

	imported := ra.Archive
	st := snapshotState{
		settings:   settings.Normalize(imported.Settings),
		categories: category.Normalize(imported.Categories),
		videos:     imported.Videos,
		authors:    imported.Authors,
	}
	if imported.Events != nil {
		st.events = *imported.Events
	}
	if st.videos == nil {
		st.videos = make(map[string]model.Video)
	}
	if st.authors == nil {
		st.authors = make(map[string]model.Author)
	}
	if imported.State != nil {
		st.session = *imported.State
	}

	st.ratings = rating.RebuildAll(st.events.Items, st.settings.Glicko)
	st.session.RecentWindow = recent.RebuildFromEvents(st.events.Items, st.settings.RecentWindowSize, st.videoExists)
	st.meta = model.Meta{SchemaVersion: model.SchemaVersion}

	changes := repository.Changes{
		Settings:   &st.settings,
		Categories: &st.categories,
		Events:     &st.events,
		Ratings:    st.ratings,
		State:      &st.session,
		Videos:     st.videos,
		Authors:    st.authors,
		Meta:       &st.meta,
	}
	if err := s.store.Set(ctx, changes); err != nil {
		return fmt.Errorf("persisting import: %w", err)
	}
	metrics.RecordImportAccepted()
	st.updateScaleGauges()
	s.logger.Info(ctx, "archive imported",
		logger.Int("events", len(st.events.Items)),
		logger.Int("categories", len(st.categories.Items)),
	)
	return nil
}
