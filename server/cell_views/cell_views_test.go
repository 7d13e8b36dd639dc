package cell_views

import (
	"bytes"
	"html/template"
	"strings"
	"testing"

	"cleanbot/clean_bot"
	"cleanbot/experiment"

	. "github.com/smartystreets/goconvey/convey"
)

func testSnapshot() experiment.Snapshot {
	return experiment.Snapshot{
		RunID:      "run",
		Experiment: "AlphaMCTableModel",
		Episode:    10,
		Episodes:   20,
		Width:      2,
		Cells: []clean_bot.ValueCell{
			{Row: 0, Col: 0, Value: 1, Action: clean_bot.EAST},
			{Row: 0, Col: 1, Value: 2, Action: clean_bot.SOUTH},
			{Row: 1, Col: 0, Value: 3, Action: clean_bot.WEST, Dirty: true},
			{Row: 1, Col: 1, Value: 4, Action: clean_bot.CLEAN, Dirty: true},
		},
		Rewards:             []float64{1, 3, 2},
		ValidationAvgReward: 2.5,
	}
}

func TestConvert(t *testing.T) {
	Convey("When a snapshot is converted to a frame", t, func() {
		frame := Convert(testSnapshot())

		Convey("Cells are indexed by column then row", func() {
			So(len(frame.Cells), ShouldEqual, 2)
			So(frame.Cells[1][0].X, ShouldEqual, 1)
			So(frame.Cells[1][0].Y, ShouldEqual, 0)
			So(frame.Cells[1][0].Max, ShouldEqual, 2)
			So(frame.Cells[0][1].Max, ShouldEqual, 3)
		})

		Convey("Policies become arrow rotations and glyphs", func() {
			So(frame.Cells[0][0].PolicyArrowRotation, ShouldEqual, 90)
			So(frame.Cells[1][0].PolicyArrowRotation, ShouldEqual, 180)
			So(frame.Cells[0][1].PolicyArrowRotation, ShouldEqual, 270)
			So(frame.Cells[0][0].Glyph, ShouldEqual, ARROW_GLYPH)
			So(frame.Cells[1][1].Glyph, ShouldEqual, CLEAN_GLYPH)
			So(frame.Cells[1][1].PolicyArrowScale, ShouldEqual, 2)
		})

		Convey("Dirty tiles are shaded", func() {
			So(frame.Cells[0][1].Dirty, ShouldBeTrue)
			So(frame.Cells[0][1].Fill, ShouldNotEqual, frame.Cells[0][0].Fill)
		})

		Convey("Progress is carried over", func() {
			So(frame.Experiment, ShouldEqual, "AlphaMCTableModel")
			So(frame.Episode, ShouldEqual, 10)
			So(frame.Rewards, ShouldResemble, []float64{1, 3, 2})
		})
	})
}

func TestViews(t *testing.T) {
	Convey("Given the views over a single frame", t, func() {
		done := make(chan struct{})
		defer close(done)
		frame := Convert(testSnapshot())

		Convey("The values grid updates every tile", func() {
			vg := NewValuesGrid(done, nil)
			ops := vg.onUpdate(frame)
			So(len(ops), ShouldEqual, 12)
			So(ops[1].EleId, ShouldEqual, "0-0-value-text")
			So(ops[1].Ops[0].Value, ShouldEqual, "1.00")
		})

		Convey("The value function has one polygon per interior square", func() {
			vf := NewValueFunction(done, nil)
			ops := vf.onUpdate(frame)
			So(len(ops), ShouldEqual, 2)
			So(ops[0].EleId, ShouldEqual, "0-0-value-polygon")
			So(ops[1].EleId, ShouldEqual, "valuefunction-group")
		})

		Convey("A single tile grid has no surface", func() {
			sf := newSurface(EmptyFrame(1).Cells)
			So(sf.Polygons, ShouldBeEmpty)
		})

		Convey("The reward trace spans the reward range", func() {
			So(tracePoints([]float64{1, 3, 2}), ShouldEqual, "0,200 300,0 600,100")
			So(tracePoints(nil), ShouldEqual, "")
			So(tracePoints([]float64{5}), ShouldEqual, "0,100")
		})

		Convey("Every view renders from the frame", func() {
			parent := template.New("page").Funcs(template.FuncMap{
				"add":  func(i, j int) int { return i + j },
				"sub":  func(i, j int) int { return i - j },
				"mult": func(i, j int) int { return i * j },
				"div":  func(i, j int) int { return i / j },
			})
			var names []string
			for _, parse := range []func(*template.Template) (string, error){
				NewValuesGrid(done, nil).Parse,
				NewValueFunction(done, nil).Parse,
				NewRewardTrace(done, nil).Parse,
			} {
				name, err := parse(parent)
				So(err, ShouldBeNil)
				names = append(names, name)
			}

			for _, name := range names {
				var buf bytes.Buffer
				So(parent.ExecuteTemplate(&buf, name, frame), ShouldBeNil)
				So(buf.Len(), ShouldBeGreaterThan, 0)
			}

			var buf bytes.Buffer
			So(parent.ExecuteTemplate(&buf, "rewardtrace", frame), ShouldBeNil)
			So(strings.Contains(buf.String(), "AlphaMCTableModel: episode 10 of 20"), ShouldBeTrue)
		})
	})
}
