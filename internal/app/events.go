package service

import (
	"context"
	"fmt"

	"github.com/horyu/NiconiCompare-sub000/internal/adapters/mq/retry"
	"github.com/horyu/NiconiCompare-sub000/internal/adapters/repository"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/category"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/ledger"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/rating"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/recent"
	"github.com/horyu/NiconiCompare-sub000/pkg/logger"
	"github.com/horyu/NiconiCompare-sub000/pkg/metrics"
)

// RecordRequest carries one pairwise verdict. EventID, when set, asks for a
// re-verdict of an existing entry instead of a fresh append; the request
// falls back to appending when the referenced entry no longer matches.
// Video, Opponent and Author are optional metadata refreshes captured from
// the page the verdict was made on.
type RecordRequest struct {
	CurrentVideoID  string        `json:"currentVideoId"`
	OpponentVideoID string        `json:"opponentVideoId"`
	Verdict         model.Verdict `json:"verdict"`
	EventID         *int64        `json:"eventId,omitempty"`

	Video    *model.Video  `json:"video,omitempty"`
	Opponent *model.Video  `json:"opponent,omitempty"`
	Author   *model.Author `json:"author,omitempty"`
}

// RecordResult reports the ledger entry a verdict landed in.
type RecordResult struct {
	EventID    int64  `json:"eventId"`
	CategoryID string `json:"categoryId"`
	Rewritten  bool   `json:"rewritten"`
}

// RecordEvent applies one verdict: either rewriting an existing ledger
// entry (when the supplied event id still points at the same active pair)
// or appending a new entry with an incremental rating update.
func (s *Service) RecordEvent(ctx context.Context, req RecordRequest) (RecordResult, error) {
	var res RecordResult
	if req.CurrentVideoID == "" || req.OpponentVideoID == "" {
		return res, ErrMissingVideoID
	}
	if req.CurrentVideoID == req.OpponentVideoID {
		return res, ErrSelfComparison
	}
	if !req.Verdict.Valid() {
		return res, ErrInvalidVerdict
	}

	st, err := s.load(ctx)
	if err != nil {
		return res, fmt.Errorf("loading state: %w", err)
	}
	now := s.nowMillis()
	s.upsertPairMetadata(&st, req)

	if req.EventID != nil && ledger.MatchesActivePair(&st.events, *req.EventID, req.CurrentVideoID, req.OpponentVideoID) {
		return s.rewriteEvent(ctx, &st, req, now)
	}
	return s.appendEvent(ctx, &st, req, now)
}

// rewriteEvent replaces the verdict on an existing active entry and rebuilds
// that entry's category table so the rating history stays consistent.
func (s *Service) rewriteEvent(ctx context.Context, st *snapshotState, req RecordRequest, now int64) (RecordResult, error) {
	id := *req.EventID
	ledger.Reverdict(&st.events, id, req.Verdict, now)
	ev, _ := ledger.Get(&st.events, id)
	cat := eventCategory(ev)
	s.rebuildCategory(st, cat)

	changes := repository.Changes{
		Events:  &st.events,
		Ratings: st.ratings,
		Videos:  st.videos,
		Authors: st.authors,
	}
	if err := s.commitEvent(ctx, id, changes); err != nil {
		return RecordResult{}, err
	}
	metrics.RecordEventRewritten()
	st.updateScaleGauges()
	s.logger.Info(ctx, "verdict rewritten",
		logger.Int64("eventID", id),
		logger.String("verdict", string(req.Verdict)),
	)
	return RecordResult{EventID: id, CategoryID: cat, Rewritten: true}, nil
}

// appendEvent appends a fresh ledger entry under the active category and
// folds it into the ratings incrementally.
func (s *Service) appendEvent(ctx context.Context, st *snapshotState, req RecordRequest, now int64) (RecordResult, error) {
	cat := st.settings.ActiveCategoryID
	if _, ok := st.categories.Items[cat]; !ok {
		cat = st.categories.DefaultID
	}
	ev := ledger.Append(&st.events, req.CurrentVideoID, req.OpponentVideoID, req.Verdict, cat, now)

	table := st.ratings[cat]
	if table == nil {
		table = make(model.CategoryRatings)
	}
	left, ok := table[ev.CurrentVideoID]
	if !ok {
		left = rating.NewSnapshot(ev.CurrentVideoID, st.settings.Glicko)
	}
	right, ok := table[ev.OpponentVideoID]
	if !ok {
		right = rating.NewSnapshot(ev.OpponentVideoID, st.settings.Glicko)
	}
	left, right = rating.UpdatePair(st.settings.Glicko, left, right, ev.Verdict, ev.ID)
	table[ev.CurrentVideoID] = left
	table[ev.OpponentVideoID] = right
	st.ratings[cat] = table

	st.session.RecentWindow = recent.Update(st.session.RecentWindow, st.settings.RecentWindowSize,
		[]string{ev.CurrentVideoID, ev.OpponentVideoID}, st.videoExists)
	st.session.CurrentVideoID = ev.CurrentVideoID

	changes := repository.Changes{
		Events:  &st.events,
		Ratings: st.ratings,
		State:   &st.session,
		Videos:  st.videos,
		Authors: st.authors,
	}
	if err := s.commitEvent(ctx, ev.ID, changes); err != nil {
		return RecordResult{}, err
	}
	metrics.RecordEventRecorded()
	st.updateScaleGauges()
	s.logger.Debug(ctx, "verdict recorded",
		logger.Int64("eventID", ev.ID),
		logger.String("category", cat),
		logger.String("verdict", string(req.Verdict)),
	)
	return RecordResult{EventID: ev.ID, CategoryID: cat}, nil
}

// commitEvent persists an event-bearing change set. On failure the changes
// are parked on the retry queue and the error still propagates, so the
// caller sees the failure while the worker keeps trying in the background.
func (s *Service) commitEvent(ctx context.Context, eventID int64, changes repository.Changes) error {
	err := s.store.Set(ctx, changes)
	if err == nil {
		return nil
	}
	s.logger.Warn(ctx, "event persistence failed, queueing retry",
		logger.Int64("eventID", eventID), logger.Error(err))
	if s.retryQueue == nil || !s.retryQueue.Enqueue(ctx, retry.Task{EventID: eventID, Changes: changes}) {
		s.parkFailedWrite(ctx, eventID)
	}
	return fmt.Errorf("persisting event %d: %w", eventID, err)
}

// upsertPairMetadata refreshes the video and author tables from whatever
// metadata rode along with the verdict, creating placeholder rows so the
// pair always exists for the recent window.
func (s *Service) upsertPairMetadata(st *snapshotState, req RecordRequest) {
	upsert := func(v *model.Video, id string) {
		if v != nil && v.ID == id {
			st.videos[id] = *v
			return
		}
		if _, ok := st.videos[id]; !ok {
			st.videos[id] = model.Video{ID: id}
		}
	}
	upsert(req.Video, req.CurrentVideoID)
	upsert(req.Opponent, req.OpponentVideoID)
	if req.Author != nil && req.Author.ID != "" {
		st.authors[req.Author.ID] = *req.Author
	}
}

// DeleteEvent disables an active ledger entry and rebuilds its category.
// Returns false when the entry is missing or already disabled.
func (s *Service) DeleteEvent(ctx context.Context, id int64) (bool, error) {
	return s.lifecycle(ctx, id, "disable", ledger.Disable)
}

// RestoreEvent re-enables a disabled ledger entry and rebuilds its category.
func (s *Service) RestoreEvent(ctx context.Context, id int64) (bool, error) {
	return s.lifecycle(ctx, id, "restore", ledger.Restore)
}

// PurgeEvent permanently removes a disabled ledger entry.
func (s *Service) PurgeEvent(ctx context.Context, id int64) (bool, error) {
	return s.lifecycle(ctx, id, "purge", ledger.Purge)
}

func (s *Service) lifecycle(ctx context.Context, id int64, action string, apply func(*model.EventLog, int64) bool) (bool, error) {
	st, err := s.load(ctx)
	if err != nil {
		return false, fmt.Errorf("loading state: %w", err)
	}
	// Read the entry before applying; purge removes it from the ledger.
	ev, _ := ledger.Get(&st.events, id)
	if !apply(&st.events, id) {
		return false, nil
	}
	cat := eventCategory(ev)
	s.rebuildCategory(&st, cat)
	st.session.RecentWindow = recent.RebuildFromEvents(st.events.Items, st.settings.RecentWindowSize, st.videoExists)

	changes := repository.Changes{
		Events:  &st.events,
		Ratings: st.ratings,
		State:   &st.session,
	}
	if err := s.store.Set(ctx, changes); err != nil {
		return false, fmt.Errorf("persisting %s of event %d: %w", action, id, err)
	}
	metrics.RecordEventLifecycle(action)
	st.updateScaleGauges()
	s.logger.Info(ctx, "event lifecycle transition",
		logger.Int64("eventID", id),
		logger.String("action", action),
		logger.String("category", cat),
	)
	return true, nil
}

// BulkMoveEvents reassigns the given ledger entries to another category and
// rebuilds every affected rating table. Returns how many entries actually
// moved.
func (s *Service) BulkMoveEvents(ctx context.Context, ids []int64, to string) (int, error) {
	st, err := s.load(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading state: %w", err)
	}
	if _, ok := st.categories.Items[to]; !ok {
		return 0, category.ErrNotFound
	}

	moved := ledger.ReassignCategory(&st.events, ids, to)
	if moved == 0 {
		return 0, nil
	}
	st.ratings = rating.RebuildAll(st.events.Items, st.settings.Glicko)

	changes := repository.Changes{Events: &st.events, Ratings: st.ratings}
	if err := s.store.Set(ctx, changes); err != nil {
		return 0, fmt.Errorf("persisting bulk move: %w", err)
	}
	st.updateScaleGauges()
	s.logger.Info(ctx, "events moved between categories",
		logger.Int("moved", moved),
		logger.String("to", to),
	)
	return moved, nil
}

// RebuildRatings recomputes every category table and the recent window from
// the full event history.
func (s *Service) RebuildRatings(ctx context.Context) error {
	st, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	started := s.now()
	st.ratings = rating.RebuildAll(st.events.Items, st.settings.Glicko)
	st.session.RecentWindow = recent.RebuildFromEvents(st.events.Items, st.settings.RecentWindowSize, st.videoExists)
	elapsed := float64(s.now().Sub(started).Microseconds()) / 1000.0

	changes := repository.Changes{Ratings: st.ratings, State: &st.session}
	if err := s.store.Set(ctx, changes); err != nil {
		return fmt.Errorf("persisting rebuild: %w", err)
	}
	metrics.RecordRebuild(elapsed)
	st.updateScaleGauges()
	s.logger.Info(ctx, "ratings rebuilt from history",
		logger.Int("events", len(st.events.Items)),
		logger.Float64("durationMs", elapsed),
	)
	return nil
}

// rebuildCategory recomputes one category's rating table from the ledger.
func (s *Service) rebuildCategory(st *snapshotState, categoryID string) {
	var subset []model.CompareEvent
	for _, ev := range st.events.Items {
		if eventCategory(ev) == categoryID {
			subset = append(subset, ev)
		}
	}
	st.ratings[categoryID] = rating.Rebuild(subset, st.settings.Glicko)
}

// eventCategory maps the pre-category blank id onto the default category.
func eventCategory(ev model.CompareEvent) string {
	if ev.CategoryID == "" {
		return model.DefaultCategoryID
	}
	return ev.CategoryID
}
