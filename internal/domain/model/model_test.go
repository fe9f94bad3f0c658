package model_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
)

func TestVerdictValid(t *testing.T) {
	Convey("Given the three supported verdicts", t, func() {
		Convey("Then each of them validates", func() {
			So(model.VerdictBetter.Valid(), ShouldBeTrue)
			So(model.VerdictSame.Valid(), ShouldBeTrue)
			So(model.VerdictWorse.Valid(), ShouldBeTrue)
		})

		Convey("Then anything else is rejected", func() {
			So(model.Verdict("").Valid(), ShouldBeFalse)
			So(model.Verdict("Better").Valid(), ShouldBeFalse)
			So(model.Verdict("equal").Valid(), ShouldBeFalse)
		})
	})
}

func TestBoolHelper(t *testing.T) {
	Convey("Given the Bool helper", t, func() {
		Convey("Then it yields a usable pointer", func() {
			p := model.Bool(true)
			So(p, ShouldNotBeNil)
			So(*p, ShouldBeTrue)
		})
	})
}
