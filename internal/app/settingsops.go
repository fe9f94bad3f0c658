package service

import (
	"context"
	"fmt"

	"github.com/horyu/NiconiCompare-sub000/internal/adapters/repository"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/category"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/rating"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/recent"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/settings"
	"github.com/horyu/NiconiCompare-sub000/pkg/logger"
)

// SettingsPatch is a partial settings update; nil fields are left alone.
type SettingsPatch struct {
	RecentWindowSize *int                `json:"recentWindowSize,omitempty"`
	PopupRecentCount *int                `json:"popupRecentCount,omitempty"`
	OverlayEnabled   *bool               `json:"overlayEnabled,omitempty"`
	ShowThumbnails   *bool               `json:"showThumbnails,omitempty"`
	AutoCloseDelayMS *int                `json:"autoCloseDelayMs,omitempty"`
	ActiveCategoryID *string             `json:"activeCategoryId,omitempty"`
	Glicko           *model.GlickoParams `json:"glicko,omitempty"`
}

// GetSettings returns the normalized settings. Storage failures degrade to
// defaults so the caller always gets something usable.
func (s *Service) GetSettings(ctx context.Context) model.Settings {
	snap, err := s.store.Get(ctx, repository.KeySettings)
	if err != nil {
		s.logger.Warn(ctx, "settings unavailable, serving defaults", logger.Error(err))
		return settings.Default()
	}
	return settings.Normalize(snap.Settings)
}

// UpdateSettings merges a patch into the stored settings and re-derives the
// dependent caches: shrinking or growing the window rebuilds the recent
// list, and changing the Glicko base parameters rebuilds every rating
// table since historical updates were seeded from the old base.
func (s *Service) UpdateSettings(ctx context.Context, patch SettingsPatch) (model.Settings, error) {
	st, err := s.load(ctx)
	if err != nil {
		return model.Settings{}, fmt.Errorf("loading state: %w", err)
	}
	prev := st.settings

	if patch.RecentWindowSize != nil {
		st.settings.RecentWindowSize = *patch.RecentWindowSize
	}
	if patch.PopupRecentCount != nil {
		st.settings.PopupRecentCount = *patch.PopupRecentCount
	}
	if patch.OverlayEnabled != nil {
		st.settings.OverlayEnabled = patch.OverlayEnabled
	}
	if patch.ShowThumbnails != nil {
		st.settings.ShowThumbnails = patch.ShowThumbnails
	}
	if patch.AutoCloseDelayMS != nil {
		st.settings.AutoCloseDelayMS = *patch.AutoCloseDelayMS
	}
	if patch.ActiveCategoryID != nil {
		if _, ok := st.categories.Items[*patch.ActiveCategoryID]; !ok {
			return model.Settings{}, category.ErrNotFound
		}
		st.settings.ActiveCategoryID = *patch.ActiveCategoryID
	}
	if patch.Glicko != nil {
		st.settings.Glicko = *patch.Glicko
	}
	st.settings = settings.Normalize(&st.settings)

	changes := repository.Changes{Settings: &st.settings}
	if st.settings.RecentWindowSize != prev.RecentWindowSize {
		st.session.RecentWindow = recent.RebuildFromEvents(st.events.Items, st.settings.RecentWindowSize, st.videoExists)
		changes.State = &st.session
	}
	if st.settings.Glicko != prev.Glicko {
		st.ratings = rating.RebuildAll(st.events.Items, st.settings.Glicko)
		changes.Ratings = st.ratings
	}

	if err := s.store.Set(ctx, changes); err != nil {
		return model.Settings{}, fmt.Errorf("persisting settings: %w", err)
	}
	s.logger.Info(ctx, "settings updated",
		logger.Int("recentWindowSize", st.settings.RecentWindowSize),
		logger.Bool("glickoChanged", st.settings.Glicko != prev.Glicko),
	)
	return st.settings, nil
}
