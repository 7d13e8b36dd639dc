package reinforcement

import (
	"errors"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPolicies(t *testing.T) {
	Convey("Given a model in which two of four actions tie for the maximum", t, func() {
		tm := NewTableModel(Space{Dims: []int{1}, High: 0}, 4)
		obs := Observation{0}
		for action, val := range []float64{1, 3, 3, 0} {
			So(tm.UpdateActionValue(obs, Action(action), val), ShouldBeNil)
		}
		gen := NewGenerator(1234)

		Convey("The greedy policy picks every tied action and nothing else", func() {
			policy := NewGreedyPolicy(tm, gen.Rand)
			counts := map[Action]int{}
			for i := 0; i < 1000; i++ {
				action, err := policy.ChooseAction(obs)
				So(err, ShouldBeNil)
				counts[action]++
			}
			So(len(counts), ShouldEqual, 2)
			So(counts[1], ShouldBeGreaterThan, 400)
			So(counts[2], ShouldBeGreaterThan, 400)
		})

		Convey("A fully exploring policy picks every action", func() {
			policy := NewEpsilonGreedyPolicy(tm, gen.Rand, 1.0)
			counts := map[Action]int{}
			for i := 0; i < 1000; i++ {
				action, err := policy.ChooseAction(obs)
				So(err, ShouldBeNil)
				counts[action]++
			}
			So(len(counts), ShouldEqual, 4)
		})

		Convey("A non-exploring policy is greedy", func() {
			policy := NewEpsilonGreedyPolicy(tm, gen.Rand, 0.0)
			for i := 0; i < 200; i++ {
				action, err := policy.ChooseAction(obs)
				So(err, ShouldBeNil)
				So(action, ShouldBeIn, []Action{1, 2})
			}
		})

		Convey("Exploration happens at about the configured rate", func() {
			So(tm.UpdateActionValue(obs, 2, 2), ShouldBeNil)
			policy := NewEpsilonGreedyPolicy(tm, gen.Rand, 0.2)
			nonGreedy := 0
			for i := 0; i < 10000; i++ {
				action, _ := policy.ChooseAction(obs)
				if action != 1 {
					nonGreedy++
				}
			}
			// Three of four exploratory draws leave the greedy action.
			So(float64(nonGreedy)/10000, ShouldAlmostEqual, 0.15, 0.02)
		})
	})

	Convey("Given a model whose values have diverged", t, func() {
		tm := NewTableModel(Space{Dims: []int{1}, High: 1}, 3)
		gen := NewGenerator(99)
		policy := NewGreedyPolicy(tm, gen.Rand)

		Convey("NaN values are never chosen", func() {
			obs := Observation{0}
			for action, val := range []float64{math.NaN(), 5, 0} {
				So(tm.UpdateActionValue(obs, Action(action), val), ShouldBeNil)
			}
			for i := 0; i < 100; i++ {
				action, err := policy.ChooseAction(obs)
				So(err, ShouldBeNil)
				So(action, ShouldEqual, Action(1))
			}
		})

		Convey("A state of nothing but NaNs is an error, not a panic", func() {
			obs := Observation{1}
			for action := 0; action < 3; action++ {
				So(tm.UpdateActionValue(obs, Action(action), math.NaN()), ShouldBeNil)
			}
			var err error
			So(func() { _, err = policy.ChooseAction(obs) }, ShouldNotPanic)
			So(errors.Is(err, ErrNoComparableValue), ShouldBeTrue)
		})

		Convey("Infinite values still compare", func() {
			obs := Observation{0}
			for action, val := range []float64{math.Inf(-1), math.Inf(1), math.NaN()} {
				So(tm.UpdateActionValue(obs, Action(action), val), ShouldBeNil)
			}
			action, err := policy.ChooseAction(obs)
			So(err, ShouldBeNil)
			So(action, ShouldEqual, Action(1))
		})
	})
}
