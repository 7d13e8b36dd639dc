package reinforcement

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestIndexer(t *testing.T) {
	Convey("Given an indexer over a 2x2 grid with values up to 2 and 5 actions", t, func() {
		ix := NewIndexer(Space{Dims: []int{2, 2}, High: 2}, 5)

		Convey("Keys are deterministic", func() {
			k1, err := ix.Key(Observation{2, 0, 1, 0})
			So(err, ShouldBeNil)
			k2, err := ix.Key(Observation{2, 0, 1, 0})
			So(err, ShouldBeNil)
			So(k1, ShouldEqual, k2)
		})

		Convey("Every observation-action pair has a distinct key", func() {
			seen := map[Key]bool{}
			for a := 0; a < 3; a++ {
				for b := 0; b < 3; b++ {
					for c := 0; c < 3; c++ {
						for d := 0; d < 3; d++ {
							for action := 0; action < 5; action++ {
								key, err := ix.ActionKey(Observation{a, b, c, d}, Action(action))
								So(err, ShouldBeNil)
								So(seen[key], ShouldBeFalse)
								seen[key] = true
							}
						}
					}
				}
			}
			So(len(seen), ShouldEqual, 81*5)
		})

		Convey("Observations of the wrong size are rejected", func() {
			_, err := ix.Key(Observation{0, 0, 0})
			So(errors.Is(err, ErrInvalidShape), ShouldBeTrue)
		})

		Convey("Elements outside the declared range are rejected", func() {
			_, err := ix.Key(Observation{0, 3, 0, 0})
			So(errors.Is(err, ErrInvalidShape), ShouldBeTrue)
			_, err = ix.Key(Observation{0, -1, 0, 0})
			So(errors.Is(err, ErrInvalidShape), ShouldBeTrue)
		})

		Convey("Actions outside the action set are rejected", func() {
			_, err := ix.ActionKey(Observation{0, 0, 0, 0}, 5)
			So(errors.Is(err, ErrInvalidShape), ShouldBeTrue)
		})
	})
}
