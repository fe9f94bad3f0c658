package rating_test

import (
	"testing"

	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func defaultParams() model.GlickoParams {
	return model.GlickoParams{Rating: 1500, RD: 350, Volatility: 0.06}
}

func TestUpdatePair(t *testing.T) {
	Convey("Given two fresh snapshots", t, func() {
		params := defaultParams()
		left := rating.NewSnapshot("sm1", params)
		right := rating.NewSnapshot("sm2", params)

		Convey("When the verdict is worse (game awarded to the left side)", func() {
			newLeft, newRight := rating.UpdatePair(params, left, right, model.VerdictWorse, 7)

			Convey("Then the left side gains and the right side loses", func() {
				So(newLeft.Rating, ShouldBeGreaterThan, params.Rating)
				So(newRight.Rating, ShouldBeLessThan, params.Rating)
			})

			Convey("And both snapshots carry the event id", func() {
				So(newLeft.UpdatedFromEventID, ShouldEqual, 7)
				So(newRight.UpdatedFromEventID, ShouldEqual, 7)
			})

			Convey("And the deviations shrink", func() {
				So(newLeft.RD, ShouldBeLessThan, params.RD)
				So(newRight.RD, ShouldBeLessThan, params.RD)
			})
		})

		Convey("When the verdict is better (game awarded to the right side)", func() {
			newLeft, newRight := rating.UpdatePair(params, left, right, model.VerdictBetter, 1)

			Convey("Then the scoring convention is not inverted", func() {
				So(newLeft.Rating, ShouldBeLessThan, params.Rating)
				So(newRight.Rating, ShouldBeGreaterThan, params.Rating)
			})
		})

		Convey("When the verdict is same between equals", func() {
			newLeft, newRight := rating.UpdatePair(params, left, right, model.VerdictSame, 1)

			Convey("Then ratings stay at the anchor and deviations shrink", func() {
				So(newLeft.Rating, ShouldAlmostEqual, params.Rating, 1e-6)
				So(newRight.Rating, ShouldAlmostEqual, params.Rating, 1e-6)
				So(newLeft.RD, ShouldBeLessThan, params.RD)
			})
		})

		Convey("When sides are swapped and the verdict inverted", func() {
			aLeft, aRight := rating.UpdatePair(params, left, right, model.VerdictBetter, 1)
			bRight, bLeft := rating.UpdatePair(params, right, left, model.VerdictWorse, 1)

			Convey("Then the results mirror", func() {
				So(aLeft.Rating, ShouldAlmostEqual, bLeft.Rating, 1e-9)
				So(aRight.Rating, ShouldAlmostEqual, bRight.Rating, 1e-9)
				So(aLeft.RD, ShouldAlmostEqual, bLeft.RD, 1e-9)
				So(aRight.RD, ShouldAlmostEqual, bRight.RD, 1e-9)
			})
		})

		Convey("When one side wins many games in a row", func() {
			winner := left
			loser := right
			for i := int64(1); i <= 200; i++ {
				winner, loser = rating.UpdatePair(params, winner, loser, model.VerdictWorse, i)
			}

			Convey("Then deviations stay within the clamp bounds", func() {
				So(winner.RD, ShouldBeGreaterThanOrEqualTo, 30)
				So(winner.RD, ShouldBeLessThanOrEqualTo, 350)
				So(loser.RD, ShouldBeGreaterThanOrEqualTo, 30)
				So(winner.Rating, ShouldBeGreaterThan, loser.Rating)
			})
		})

		Convey("When a non-default anchor is configured", func() {
			anchored := model.GlickoParams{Rating: 1000, RD: 350, Volatility: 0.06}
			l := rating.NewSnapshot("sm1", anchored)
			r := rating.NewSnapshot("sm2", anchored)
			newLeft, newRight := rating.UpdatePair(anchored, l, r, model.VerdictSame, 1)

			Convey("Then ratings stay centered on that anchor", func() {
				So(newLeft.Rating, ShouldAlmostEqual, 1000, 1e-6)
				So(newRight.Rating, ShouldAlmostEqual, 1000, 1e-6)
			})
		})
	})
}

func TestRebuild(t *testing.T) {
	Convey("Given a list of events", t, func() {
		params := defaultParams()
		events := []model.CompareEvent{
			{ID: 1, Timestamp: 100, CurrentVideoID: "a", OpponentVideoID: "b", Verdict: model.VerdictWorse},
			{ID: 2, Timestamp: 90, CurrentVideoID: "b", OpponentVideoID: "c", Verdict: model.VerdictBetter},
			{ID: 3, Timestamp: 120, CurrentVideoID: "a", OpponentVideoID: "c", Verdict: model.VerdictSame},
		}

		Convey("When rebuilding twice from the same inputs", func() {
			first := rating.Rebuild(events, params)
			second := rating.Rebuild(events, params)

			Convey("Then the outputs are identical", func() {
				So(second, ShouldResemble, first)
			})
		})

		Convey("When events are supplied out of id order", func() {
			shuffled := []model.CompareEvent{events[2], events[0], events[1]}

			Convey("Then id order governs the result, not input or timestamp order", func() {
				So(rating.Rebuild(shuffled, params), ShouldResemble, rating.Rebuild(events, params))
			})
		})

		Convey("When an event is disabled", func() {
			disabled := append([]model.CompareEvent{}, events...)
			disabled[1].Disabled = true
			table := rating.Rebuild(disabled, params)

			Convey("Then it contributes nothing", func() {
				want := rating.Rebuild([]model.CompareEvent{events[0], events[2]}, params)
				So(table, ShouldResemble, want)
			})
		})

		Convey("When folding incrementally", func() {
			table := make(model.CategoryRatings)
			for k := range events {
				left, okL := table[events[k].CurrentVideoID]
				if !okL {
					left = rating.NewSnapshot(events[k].CurrentVideoID, params)
				}
				right, okR := table[events[k].OpponentVideoID]
				if !okR {
					right = rating.NewSnapshot(events[k].OpponentVideoID, params)
				}
				newLeft, newRight := rating.UpdatePair(params, left, right, events[k].Verdict, events[k].ID)
				table[events[k].CurrentVideoID] = newLeft
				table[events[k].OpponentVideoID] = newRight

				assertReplayEquivalence(t, table, events[:k+1], params)
			}
		})

		Convey("When the event list is empty", func() {
			So(rating.Rebuild(nil, params), ShouldBeEmpty)
		})
	})
}

// assertReplayEquivalence asserts incremental fold == full rebuild of the prefix.
func assertReplayEquivalence(t *testing.T, incremental model.CategoryRatings, prefix []model.CompareEvent, params model.GlickoParams) {
	t.Helper()
	full := rating.Rebuild(prefix, params)
	So(incremental, ShouldResemble, full)
}

func TestRebuildAll(t *testing.T) {
	Convey("Given events across categories", t, func() {
		params := defaultParams()
		events := []model.CompareEvent{
			{ID: 1, CurrentVideoID: "a", OpponentVideoID: "b", Verdict: model.VerdictWorse, CategoryID: "cat-a"},
			{ID: 2, CurrentVideoID: "a", OpponentVideoID: "b", Verdict: model.VerdictWorse, CategoryID: "cat-b"},
			{ID: 3, CurrentVideoID: "x", OpponentVideoID: "y", Verdict: model.VerdictSame},
		}

		ratings := rating.RebuildAll(events, params)

		Convey("Then each category gets an independent table", func() {
			So(ratings, ShouldContainKey, "cat-a")
			So(ratings, ShouldContainKey, "cat-b")
			So(ratings["cat-a"], ShouldResemble, ratings["cat-b"])
			So(ratings["cat-a"]["a"].Rating, ShouldBeGreaterThan, params.Rating)
		})

		Convey("Then events without a category fall back to the default", func() {
			So(ratings, ShouldContainKey, model.DefaultCategoryID)
			So(ratings[model.DefaultCategoryID], ShouldContainKey, "x")
		})

		Convey("Then rebuilding one category never touches another", func() {
			onlyA := rating.Rebuild([]model.CompareEvent{events[0]}, params)
			So(ratings["cat-a"], ShouldResemble, onlyA)
		})
	})
}
