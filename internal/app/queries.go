package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/horyu/NiconiCompare-sub000/internal/adapters/repository"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/ledger"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
	"github.com/horyu/NiconiCompare-sub000/pkg/logger"
)

// RankEntry is one row of a category ranking.
type RankEntry struct {
	Rank       int     `json:"rank"`
	VideoID    string  `json:"videoId"`
	Rating     float64 `json:"rating"`
	RD         float64 `json:"rd"`
	Volatility float64 `json:"volatility"`
}

// Rankings returns the top entries of a category ordered by rating
// descending, video id ascending on ties. An empty categoryID means the
// active category; limit is clamped to the configured maximum.
func (s *Service) Rankings(ctx context.Context, categoryID string, limit int) ([]RankEntry, error) {
	st, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}
	if categoryID == "" {
		categoryID = st.settings.ActiveCategoryID
	}
	if limit <= 0 || limit > s.maxRankLimit {
		limit = s.maxRankLimit
	}

	table := st.ratings[categoryID]
	entries := make([]RankEntry, 0, len(table))
	for _, snap := range table {
		entries = append(entries, RankEntry{
			VideoID:    snap.VideoID,
			Rating:     snap.Rating,
			RD:         snap.RD,
			Volatility: snap.Volatility,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Rating != entries[j].Rating {
			return entries[i].Rating > entries[j].Rating
		}
		return entries[i].VideoID < entries[j].VideoID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// RatingsView is the full ratings cache together with the ledger cursor it
// was derived from.
type RatingsView struct {
	Ratings model.Ratings `json:"ratings"`
	NextID  int64         `json:"nextEventId"`
}

// GetRatings returns every category's rating table.
func (s *Service) GetRatings(ctx context.Context) (RatingsView, error) {
	snap, err := s.store.Get(ctx, repository.KeyRatings, repository.KeyEvents)
	if err != nil {
		return RatingsView{}, fmt.Errorf("loading ratings: %w", err)
	}
	view := RatingsView{Ratings: snap.Ratings, NextID: 1}
	if view.Ratings == nil {
		view.Ratings = make(model.Ratings)
	}
	if snap.Events != nil && snap.Events.NextID > 0 {
		view.NextID = snap.Events.NextID
	}
	return view, nil
}

// GetState returns the transient session state. Storage failures degrade
// to an empty state.
func (s *Service) GetState(ctx context.Context) model.SessionState {
	snap, err := s.store.Get(ctx, repository.KeyState)
	if err != nil {
		s.logger.Warn(ctx, "session state unavailable", logger.Error(err))
		return model.SessionState{}
	}
	if snap.State == nil {
		return model.SessionState{}
	}
	return *snap.State
}

// Stats summarizes the snapshot scale for the stats endpoint.
func (s *Service) Stats(ctx context.Context) map[string]any {
	stats := map[string]any{
		"events":         0,
		"activeEvents":   0,
		"disabledEvents": 0,
		"categories":     0,
		"ratedVideos":    0,
		"videos":         0,
		"authors":        0,
		"failedWrites":   0,
		"retryQueue":     0,
	}
	st, err := s.load(ctx)
	if err != nil {
		s.logger.Warn(ctx, "stats unavailable", logger.Error(err))
		return stats
	}
	active := len(ledger.ActiveEvents(&st.events))
	rated := 0
	for _, table := range st.ratings {
		rated += len(table)
	}
	stats["events"] = len(st.events.Items)
	stats["activeEvents"] = active
	stats["disabledEvents"] = len(st.events.Items) - active
	stats["categories"] = len(st.categories.Items)
	stats["ratedVideos"] = rated
	stats["videos"] = len(st.videos)
	stats["authors"] = len(st.authors)
	stats["failedWrites"] = len(st.meta.FailedWriteIDs)
	if s.retryQueue != nil {
		stats["retryQueue"] = s.retryQueue.Len()
	}
	return stats
}
