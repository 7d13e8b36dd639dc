package reinforcement

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func series(from, to int) []float64 {
	out := []float64{}
	for i := from; i < to; i++ {
		out = append(out, float64(i))
	}
	return out
}

func TestStatsLogger(t *testing.T) {
	Convey("Given a stats logger holding 20 values", t, func() {
		maxLength := 20
		logger := NewStatsLogger(testRecord{}, maxLength)
		appendRange := func(from, to int) {
			for i := from; i < to; i++ {
				logger.Append(testRecord{Reward: float64(i), Steps: float64(-i)})
			}
		}

		Convey("It starts empty", func() {
			So(logger.Fields(), ShouldResemble, []string{"Reward", "Steps"})
			So(logger.Count(), ShouldEqual, 0)
			So(logger.LowerBound(), ShouldEqual, 0)
			So(logger.UpperBound(), ShouldEqual, -1)
			So(logger.Data("Reward"), ShouldResemble, []float64{})
			So(math.IsInf(logger.Min("Reward"), 1), ShouldBeTrue)
			So(math.IsInf(logger.Max("Reward"), -1), ShouldBeTrue)
			So(logger.Data("Unknown"), ShouldBeNil)
		})

		Convey("Partially filled, it returns everything appended", func() {
			appendRange(0, 5)
			So(logger.Count(), ShouldEqual, 5)
			So(logger.LowerBound(), ShouldEqual, 0)
			So(logger.UpperBound(), ShouldEqual, 4)
			So(logger.Data("Reward"), ShouldResemble, series(0, 5))
			So(logger.Min("Steps"), ShouldEqual, -4)
			So(logger.Max("Steps"), ShouldEqual, 0)
		})

		Convey("Filled exactly once", func() {
			appendRange(0, maxLength)
			So(logger.Count(), ShouldEqual, maxLength)
			So(logger.LowerBound(), ShouldEqual, 0)
			So(logger.UpperBound(), ShouldEqual, maxLength-1)
			So(logger.Data("Reward"), ShouldResemble, series(0, maxLength))
		})

		Convey("Filled twice, the oldest values rotate out", func() {
			appendRange(0, 2*maxLength)
			So(logger.Count(), ShouldEqual, maxLength)
			So(logger.LowerBound(), ShouldEqual, maxLength)
			So(logger.UpperBound(), ShouldEqual, 2*maxLength-1)
			So(logger.Data("Reward"), ShouldResemble, series(maxLength, 2*maxLength))
		})

		Convey("Filled three times, the window and global extrema hold", func() {
			appendRange(0, 3*maxLength)
			So(logger.Count(), ShouldEqual, maxLength)
			So(logger.LowerBound(), ShouldEqual, 2*maxLength)
			So(logger.UpperBound(), ShouldEqual, 3*maxLength-1)
			So(logger.UpperBound()-logger.LowerBound()+1, ShouldEqual, logger.Count())
			So(logger.Data("Reward"), ShouldResemble, series(2*maxLength, 3*maxLength))
			So(logger.Min("Reward"), ShouldEqual, 0)
			So(logger.Max("Reward"), ShouldEqual, 3*maxLength-1)
			So(logger.Min("Steps"), ShouldEqual, -(3*maxLength - 1))
		})

		Convey("Filled part way into a rollover, the window wraps", func() {
			appendRange(0, maxLength+7)
			So(logger.LowerBound(), ShouldEqual, 7)
			So(logger.Data("Reward"), ShouldResemble, series(7, maxLength+7))
			So(logger.Tail("Reward", 10), ShouldResemble, series(maxLength-3, maxLength+7))
			So(logger.Mean("Reward", 2), ShouldEqual, float64(maxLength+5)+0.5)
		})

		Convey("Tail never returns more than was retained", func() {
			appendRange(0, 3)
			So(logger.Tail("Reward", 10), ShouldResemble, series(0, 3))
			So(logger.Mean("Reward", 10), ShouldEqual, 1)
		})
	})
}
