package reinforcement

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTableModel(t *testing.T) {
	Convey("Given a table model", t, func() {
		space := Space{Dims: []int{3}, High: 2}
		tm := NewTableModel(space, 4)
		obs := Observation{2, 1, 0}

		Convey("Untouched states read as zero", func() {
			values, err := tm.StateValues(obs)
			So(err, ShouldBeNil)
			So(values, ShouldResemble, []float64{0, 0, 0, 0})
			So(tm.Len(), ShouldEqual, 0)
		})

		Convey("Updates replace the estimate and are read back immediately", func() {
			So(tm.UpdateActionValue(obs, 2, 3.5), ShouldBeNil)
			val, err := tm.ActionValue(obs, 2)
			So(err, ShouldBeNil)
			So(val, ShouldEqual, 3.5)

			So(tm.UpdateActionValue(obs, 2, -1), ShouldBeNil)
			values, err := tm.StateValues(obs)
			So(err, ShouldBeNil)
			So(values, ShouldResemble, []float64{0, 0, -1, 0})
			So(tm.Len(), ShouldEqual, 1)
		})

		Convey("The returned values are a copy", func() {
			So(tm.UpdateActionValue(obs, 0, 1), ShouldBeNil)
			values, _ := tm.StateValues(obs)
			values[0] = 100
			val, _ := tm.ActionValue(obs, 0)
			So(val, ShouldEqual, 1)
		})

		Convey("Invalid observations and actions are rejected", func() {
			So(errors.Is(tm.UpdateActionValue(Observation{3, 0, 0}, 0, 1), ErrInvalidShape), ShouldBeTrue)
			So(errors.Is(tm.UpdateActionValue(obs, 4, 1), ErrInvalidShape), ShouldBeTrue)
			_, err := tm.StateValues(Observation{0})
			So(errors.Is(err, ErrInvalidShape), ShouldBeTrue)
		})

		Convey("Readers may run concurrently with the writer", func() {
			wg := sync.WaitGroup{}
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 1000; i++ {
					tm.Visit(func(obs Observation, values []float64) {})
				}
			}()
			for i := 0; i < 1000; i++ {
				_ = tm.UpdateActionValue(Observation{i % 3, (i / 3) % 3, 0}, Action(i%4), float64(i))
			}
			wg.Wait()
			So(tm.Len(), ShouldEqual, 9)
		})

		Convey("A saved table loads back with the same values", func() {
			So(tm.UpdateActionValue(obs, 1, 0.25), ShouldBeNil)
			So(tm.UpdateActionValue(Observation{0, 0, 0}, 3, 7), ShouldBeNil)

			buf := &bytes.Buffer{}
			So(tm.Save(buf), ShouldBeNil)
			loaded, err := LoadTableModel(buf)
			So(err, ShouldBeNil)
			So(loaded.Len(), ShouldEqual, 2)
			val, _ := loaded.ActionValue(obs, 1)
			So(val, ShouldEqual, 0.25)
			val, _ = loaded.ActionValue(Observation{0, 0, 0}, 3)
			So(val, ShouldEqual, 7)
		})
	})

	Convey("Given a table model with a non-zero default", t, func() {
		tm := NewTableModelWithDefault(Space{Dims: []int{1}, High: 1}, 2, 5)
		Convey("Untouched entries read as the default", func() {
			So(tm.UpdateActionValue(Observation{0}, 0, 1), ShouldBeNil)
			values, err := tm.StateValues(Observation{0})
			So(err, ShouldBeNil)
			So(values, ShouldResemble, []float64{1, 5})
			values, err = tm.StateValues(Observation{1})
			So(err, ShouldBeNil)
			So(values, ShouldResemble, []float64{5, 5})
		})
	})
}

func TestLinearModel(t *testing.T) {
	Convey("Given a linear model with a batch size of 4", t, func() {
		lm := NewLinearModel(Space{Dims: []int{1}, High: 1}, 2, 4)
		obs := Observation{1}

		Convey("Pending updates are not visible until the batch fills", func() {
			for i := 0; i < 3; i++ {
				So(lm.UpdateActionValue(obs, 1, 1.0), ShouldBeNil)
			}
			So(lm.Pending(), ShouldEqual, 3)
			val, err := lm.ActionValue(obs, 1)
			So(err, ShouldBeNil)
			So(val, ShouldEqual, 0)

			So(lm.UpdateActionValue(obs, 1, 1.0), ShouldBeNil)
			So(lm.Pending(), ShouldEqual, 0)
			val, err = lm.ActionValue(obs, 1)
			So(err, ShouldBeNil)
			So(val, ShouldAlmostEqual, 1.0, 0.01)

			Convey("And the other action keeps its prediction", func() {
				val, err := lm.ActionValue(obs, 0)
				So(err, ShouldBeNil)
				So(val, ShouldAlmostEqual, 0, 1e-9)
			})
		})

		Convey("Flush fits a partial batch", func() {
			So(lm.UpdateActionValue(obs, 0, -2.0), ShouldBeNil)
			lm.Flush()
			So(lm.Pending(), ShouldEqual, 0)
			val, _ := lm.ActionValue(obs, 0)
			So(val, ShouldBeLessThan, -1.9)
		})

		Convey("Invalid observations are rejected", func() {
			err := lm.UpdateActionValue(Observation{2}, 0, 1)
			So(errors.Is(err, ErrInvalidShape), ShouldBeTrue)
			So(lm.Pending(), ShouldEqual, 0)
		})

		Convey("A saved model loads back with the same predictions", func() {
			for i := 0; i < 4; i++ {
				So(lm.UpdateActionValue(obs, 1, 3.0), ShouldBeNil)
			}
			buf := &bytes.Buffer{}
			So(lm.Save(buf), ShouldBeNil)
			loaded, err := LoadLinearModel(buf)
			So(err, ShouldBeNil)
			want, _ := lm.StateValues(obs)
			got, _ := loaded.StateValues(obs)
			So(got[0], ShouldAlmostEqual, want[0], 1e-9)
			So(got[1], ShouldAlmostEqual, want[1], 1e-9)
		})
	})
}
