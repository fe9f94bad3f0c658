package rating

import (
	"sort"

	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
)

// NewSnapshot seeds a snapshot for a video first seen in an event.
func NewSnapshot(videoID string, params model.GlickoParams) model.RatingSnapshot {
	return model.RatingSnapshot{
		VideoID:            videoID,
		Rating:             params.Rating,
		RD:                 params.RD,
		Volatility:         params.Volatility,
		UpdatedFromEventID: 0,
	}
}

// UpdatePair computes new snapshots for both sides of one comparison.
//
// The verdict describes the current (left) video relative to the opponent
// (right): "better" awards the game to the right side (score 0 for left,
// 1 for right), "worse" awards it to the left side, "same" is a draw. This
// orientation is deliberate and must not be inverted.
//
// Pure function. Both sides are updated from the other's pre-update values.
// Participants are not required to be distinct at this layer; callers that
// need distinctness enforce it before recording.
func UpdatePair(params model.GlickoParams, left, right model.RatingSnapshot, verdict model.Verdict, eventID int64) (model.RatingSnapshot, model.RatingSnapshot) {
	var leftScore float64
	switch verdict {
	case model.VerdictWorse:
		leftScore = 1
	case model.VerdictBetter:
		leftScore = 0
	default:
		leftScore = 0.5
	}
	rightScore := 1 - leftScore

	leftRating, leftRD, leftVol := updateOne(params, left, right, leftScore)
	rightRating, rightRD, rightVol := updateOne(params, right, left, rightScore)

	newLeft := model.RatingSnapshot{
		VideoID:            left.VideoID,
		Rating:             leftRating,
		RD:                 leftRD,
		Volatility:         leftVol,
		UpdatedFromEventID: eventID,
	}
	newRight := model.RatingSnapshot{
		VideoID:            right.VideoID,
		Rating:             rightRating,
		RD:                 rightRD,
		Volatility:         rightVol,
		UpdatedFromEventID: eventID,
	}
	return newLeft, newRight
}

// Rebuild replays all non-disabled events of one category in ascending id
// order and returns the complete replacement rating table. Ascending id is
// the canonical causal order: verdict edits reuse the id and only touch the
// timestamp, so timestamp order would change historical trajectories.
func Rebuild(events []model.CompareEvent, params model.GlickoParams) model.CategoryRatings {
	active := make([]model.CompareEvent, 0, len(events))
	for _, e := range events {
		if !e.Disabled {
			active = append(active, e)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	table := make(model.CategoryRatings)
	fetch := func(videoID string) model.RatingSnapshot {
		if snap, ok := table[videoID]; ok {
			return snap
		}
		return NewSnapshot(videoID, params)
	}

	for _, e := range active {
		left := fetch(e.CurrentVideoID)
		right := fetch(e.OpponentVideoID)
		newLeft, newRight := UpdatePair(params, left, right, e.Verdict, e.ID)
		table[e.CurrentVideoID] = newLeft
		table[e.OpponentVideoID] = newRight
	}
	return table
}

// RebuildAll partitions events by category (missing categoryId falls back to
// the default category) and rebuilds each category's table independently.
// Verdicts in one category never affect another's ratings.
func RebuildAll(events []model.CompareEvent, params model.GlickoParams) model.Ratings {
	byCategory := make(map[string][]model.CompareEvent)
	for _, e := range events {
		categoryID := e.CategoryID
		if categoryID == "" {
			categoryID = model.DefaultCategoryID
		}
		byCategory[categoryID] = append(byCategory[categoryID], e)
	}

	ratings := make(model.Ratings, len(byCategory))
	for categoryID, categoryEvents := range byCategory {
		ratings[categoryID] = Rebuild(categoryEvents, params)
	}
	return ratings
}
