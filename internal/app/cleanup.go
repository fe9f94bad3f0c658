package service

import (
	"context"
	"fmt"

	"github.com/horyu/NiconiCompare-sub000/internal/adapters/repository"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/ledger"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/rating"
	"github.com/horyu/NiconiCompare-sub000/pkg/logger"
	"github.com/horyu/NiconiCompare-sub000/pkg/metrics"
)

// Cleanup runs the maintenance sweep: disabled events past the retention
// window are purged, and video and author rows no ledger entry or session
// field references anymore are pruned. The sweep is skipped while the last
// run is still fresh unless force is set.
func (s *Service) Cleanup(ctx context.Context, force bool) error {
	st, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	now := s.nowMillis()
	if !force && st.meta.LastCleanupAt > 0 && now-st.meta.LastCleanupAt < s.cleanupInterval.Milliseconds() {
		return nil
	}

	cutoff := now - s.disabledRetention.Milliseconds()
	purged := 0
	kept := st.events.Items[:0]
	for _, ev := range st.events.Items {
		if ev.Disabled && ev.Timestamp < cutoff {
			purged++
			continue
		}
		kept = append(kept, ev)
	}
	st.events.Items = kept

	prunedVideos := s.pruneOrphans(&st)

	if purged > 0 {
		st.ratings = rating.RebuildAll(st.events.Items, st.settings.Glicko)
	}
	st.meta.LastCleanupAt = now

	changes := repository.Changes{
		Events:  &st.events,
		Videos:  st.videos,
		Authors: st.authors,
		Meta:    &st.meta,
	}
	if purged > 0 {
		changes.Ratings = st.ratings
	}
	if err := s.store.Set(ctx, changes); err != nil {
		return fmt.Errorf("persisting cleanup: %w", err)
	}
	metrics.RecordCleanupRun(purged)
	st.updateScaleGauges()
	s.logger.Info(ctx, "cleanup sweep finished",
		logger.Int("purgedEvents", purged),
		logger.Int("prunedVideos", prunedVideos),
	)
	return nil
}

// pruneOrphans drops videos no event or session field references, then
// authors no surviving video references. Returns the pruned video count.
func (s *Service) pruneOrphans(st *snapshotState) int {
	refs := ledger.ReferencedVideoIDs(&st.events)
	if st.session.CurrentVideoID != "" {
		refs[st.session.CurrentVideoID] = true
	}
	if st.session.PinnedOpponentID != "" {
		refs[st.session.PinnedOpponentID] = true
	}
	for _, id := range st.session.RecentWindow {
		refs[id] = true
	}

	pruned := 0
	for id := range st.videos {
		if !refs[id] {
			delete(st.videos, id)
			pruned++
		}
	}

	authorRefs := make(map[string]bool, len(st.videos))
	for _, v := range st.videos {
		if v.AuthorID != "" {
			authorRefs[v.AuthorID] = true
		}
	}
	for id := range st.authors {
		if !authorRefs[id] {
			delete(st.authors, id)
		}
	}
	return pruned
}
