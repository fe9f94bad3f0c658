package ledger_test

import (
	"testing"

	"github.com/horyu/NiconiCompare-sub000/internal/domain/ledger"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAppend(t *testing.T) {
	Convey("Given an empty ledger", t, func() {
		log := &model.EventLog{}

		Convey("When appending events", func() {
			first := ledger.Append(log, "a", "b", model.VerdictBetter, "default", 100)
			second := ledger.Append(log, "b", "c", model.VerdictSame, "default", 200)

			Convey("Then ids are monotonic starting at one", func() {
				So(first.ID, ShouldEqual, 1)
				So(second.ID, ShouldEqual, 2)
				So(log.NextID, ShouldEqual, 3)
				So(log.Items, ShouldHaveLength, 2)
			})
		})

		Convey("When the cursor was persisted ahead of the items", func() {
			log.NextID = 40
			e := ledger.Append(log, "a", "b", model.VerdictWorse, "default", 100)

			Convey("Then the cursor is honored, never rewound", func() {
				So(e.ID, ShouldEqual, 40)
				So(log.NextID, ShouldEqual, 41)
			})
		})
	})
}

func TestMatchesActivePair(t *testing.T) {
	Convey("Given a ledger with one event", t, func() {
		log := &model.EventLog{}
		e := ledger.Append(log, "a", "b", model.VerdictWorse, "default", 100)

		Convey("Then the pair matches regardless of orientation", func() {
			So(ledger.MatchesActivePair(log, e.ID, "a", "b"), ShouldBeTrue)
			So(ledger.MatchesActivePair(log, e.ID, "b", "a"), ShouldBeTrue)
		})

		Convey("Then a different pair does not match", func() {
			So(ledger.MatchesActivePair(log, e.ID, "a", "c"), ShouldBeFalse)
		})

		Convey("Then a disabled event does not match", func() {
			ledger.Disable(log, e.ID)
			So(ledger.MatchesActivePair(log, e.ID, "a", "b"), ShouldBeFalse)
		})

		Convey("Then an unknown id does not match", func() {
			So(ledger.MatchesActivePair(log, 99, "a", "b"), ShouldBeFalse)
		})
	})
}

func TestReverdict(t *testing.T) {
	Convey("Given a recorded event", t, func() {
		log := &model.EventLog{}
		e := ledger.Append(log, "a", "b", model.VerdictWorse, "default", 100)

		Convey("When rewriting the verdict", func() {
			ok := ledger.Reverdict(log, e.ID, model.VerdictBetter, 999)

			Convey("Then verdict and timestamp change in place, id does not", func() {
				So(ok, ShouldBeTrue)
				got, _ := ledger.Get(log, e.ID)
				So(got.Verdict, ShouldEqual, model.VerdictBetter)
				So(got.Timestamp, ShouldEqual, 999)
				So(log.NextID, ShouldEqual, 2)
				So(log.Items, ShouldHaveLength, 1)
			})
		})

		Convey("When the event is disabled or missing", func() {
			ledger.Disable(log, e.ID)

			Convey("Then the rewrite is refused", func() {
				So(ledger.Reverdict(log, e.ID, model.VerdictSame, 1), ShouldBeFalse)
				So(ledger.Reverdict(log, 42, model.VerdictSame, 1), ShouldBeFalse)
			})
		})
	})
}

func TestLifecycle(t *testing.T) {
	Convey("Given a recorded event", t, func() {
		log := &model.EventLog{}
		e := ledger.Append(log, "a", "b", model.VerdictSame, "default", 100)

		Convey("Then purge from active is rejected and the ledger unchanged", func() {
			So(ledger.Purge(log, e.ID), ShouldBeFalse)
			So(log.Items, ShouldHaveLength, 1)
		})

		Convey("Then disable, restore and re-disable round-trip", func() {
			So(ledger.Disable(log, e.ID), ShouldBeTrue)
			So(ledger.Disable(log, e.ID), ShouldBeFalse)
			So(ledger.Restore(log, e.ID), ShouldBeTrue)
			So(ledger.Restore(log, e.ID), ShouldBeFalse)
			So(ledger.Disable(log, e.ID), ShouldBeTrue)
		})

		Convey("Then purge succeeds only from disabled and is terminal", func() {
			ledger.Disable(log, e.ID)
			So(ledger.Purge(log, e.ID), ShouldBeTrue)
			So(log.Items, ShouldBeEmpty)
			So(ledger.Purge(log, e.ID), ShouldBeFalse)
			So(ledger.Restore(log, e.ID), ShouldBeFalse)
		})

		Convey("Then operations on unknown ids are no-ops reporting false", func() {
			So(ledger.Disable(log, 77), ShouldBeFalse)
			So(ledger.Restore(log, 77), ShouldBeFalse)
			So(ledger.Purge(log, 77), ShouldBeFalse)
		})
	})
}

func TestCategoryReassignment(t *testing.T) {
	Convey("Given events in two categories", t, func() {
		log := &model.EventLog{}
		e1 := ledger.Append(log, "a", "b", model.VerdictWorse, "cat-a", 100)
		e2 := ledger.Append(log, "c", "d", model.VerdictBetter, "cat-a", 200)
		e3 := ledger.Append(log, "e", "f", model.VerdictSame, "cat-b", 300)

		Convey("When bulk-moving selected ids", func() {
			moved := ledger.ReassignCategory(log, []int64{e1.ID, e3.ID, 99}, "cat-b")

			Convey("Then only known events move and unknown ids are skipped", func() {
				So(moved, ShouldEqual, 1) // e3 already in cat-b
				got, _ := ledger.Get(log, e1.ID)
				So(got.CategoryID, ShouldEqual, "cat-b")
			})
		})

		Convey("When moving a whole category", func() {
			moved := ledger.MoveCategory(log, "cat-a", "cat-b")

			Convey("Then every event follows, keeping its id", func() {
				So(moved, ShouldEqual, 2)
				got1, _ := ledger.Get(log, e1.ID)
				got2, _ := ledger.Get(log, e2.ID)
				So(got1.CategoryID, ShouldEqual, "cat-b")
				So(got2.CategoryID, ShouldEqual, "cat-b")
			})
		})

		Convey("When dropping a category", func() {
			dropped := ledger.DropCategory(log, "cat-a")

			Convey("Then its events vanish and others remain", func() {
				So(dropped, ShouldEqual, 2)
				So(log.Items, ShouldHaveLength, 1)
				So(log.Items[0].ID, ShouldEqual, e3.ID)
			})
		})
	})
}

func TestActiveEventsAndReferences(t *testing.T) {
	Convey("Given a ledger with a disabled event", t, func() {
		log := &model.EventLog{}
		ledger.Append(log, "a", "b", model.VerdictSame, "default", 1)
		e := ledger.Append(log, "c", "d", model.VerdictSame, "default", 2)
		ledger.Disable(log, e.ID)

		Convey("Then ActiveEvents excludes it", func() {
			active := ledger.ActiveEvents(log)
			So(active, ShouldHaveLength, 1)
			So(active[0].CurrentVideoID, ShouldEqual, "a")
		})

		Convey("Then ReferencedVideoIDs still includes its videos", func() {
			refs := ledger.ReferencedVideoIDs(log)
			So(refs["c"], ShouldBeTrue)
			So(refs["d"], ShouldBeTrue)
			So(refs, ShouldHaveLength, 4)
		})
	})
}
