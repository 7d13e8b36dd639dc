// cell_views contains views derived from the Frame view-model.
package cell_views

import (
	"cleanbot/clean_bot"
	"cleanbot/experiment"
	"cleanbot/reinforcement"
)

// Cell is one tile of the grid, oriented in the svg coordinate system such that [0][0] is
// the tile printed at the top left of the console. As a rule of thumb, Cell fields should be
// immediately usable as view parameters.
type Cell struct {
	X, Y int
	// Max is the value of the greedy action for the bot standing on this tile.
	Max                 float64
	PolicyArrowRotation int
	PolicyArrowScale    int
	// Glyph is an arrow for moves, or a star when the greedy action is to clean.
	Glyph string
	Fill  string
	Dirty bool
}

// Frame is the view-model of a single progress snapshot.
type Frame struct {
	RunID      string
	Experiment string
	Episode    int
	Episodes   int
	// Cells are indexed [x][y].
	Cells               [][]Cell
	Rewards             []float64
	ValidationAvgReward float64
}

const (
	ARROW_GLYPH = "↑"
	CLEAN_GLYPH = "✱"
)

// EmptyFrame returns a frame of all-clean, zero valued tiles, used before any training
// progress has been published.
func EmptyFrame(width int) Frame {
	cells := make([][]Cell, width)
	for x := range cells {
		cells[x] = make([]Cell, width)
		for y := range cells[x] {
			cells[x][y] = Cell{
				X:                x,
				Y:                y,
				PolicyArrowScale: 1,
				Glyph:            ARROW_GLYPH,
				Fill:             getFill(false),
			}
		}
	}
	return Frame{Cells: cells}
}

// Convert transforms a progress snapshot into a Frame for consumption by the views.
func Convert(snapshot experiment.Snapshot) Frame {
	frame := EmptyFrame(snapshot.Width)
	frame.RunID = snapshot.RunID
	frame.Experiment = snapshot.Experiment
	frame.Episode = snapshot.Episode
	frame.Episodes = snapshot.Episodes
	frame.Rewards = snapshot.Rewards
	frame.ValidationAvgReward = snapshot.ValidationAvgReward

	for _, vc := range snapshot.Cells {
		if vc.Col >= snapshot.Width || vc.Row >= snapshot.Width {
			continue
		}
		frame.Cells[vc.Col][vc.Row] = Cell{
			X:                   vc.Col,
			Y:                   vc.Row,
			Max:                 vc.Value,
			PolicyArrowRotation: getDegrees(vc.Action),
			PolicyArrowScale:    getScale(vc.Action),
			Glyph:               getGlyph(vc.Action),
			Fill:                getFill(vc.Dirty),
			Dirty:               vc.Dirty,
		}
	}
	return frame
}

// getDegrees returns the rotation passed to svg's rotate() for an upward arrow rune.
// Degrees are clockwise from vertical, since the svg y-axis points down.
func getDegrees(action reinforcement.Action) int {
	switch action {
	case clean_bot.EAST:
		return 90
	case clean_bot.SOUTH:
		return 180
	case clean_bot.WEST:
		return 270
	}
	return 0
}

func getScale(action reinforcement.Action) int {
	if action == clean_bot.CLEAN {
		return 2
	}
	return 1
}

func getGlyph(action reinforcement.Action) string {
	if action == clean_bot.CLEAN {
		return CLEAN_GLYPH
	}
	return ARROW_GLYPH
}

func getFill(dirty bool) string {
	if dirty {
		return "khaki"
	}
	return "lightgray"
}
