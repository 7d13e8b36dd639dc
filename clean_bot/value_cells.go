package clean_bot

import (
	"math"

	. "cleanbot/reinforcement"
)

// ValueCell summarizes the model for the bot standing on one tile.
type ValueCell struct {
	Row, Col int
	Dirty    bool
	// Value is the maximum action value of the state, and Action the action attaining it;
	// ties go to the lowest action.
	Value  float64
	Action Action
}

// ValueCells projects model onto the grid: for every tile, the state in which the bot
// stands on it and the tiles are as they were when the last episode started.
// Before the first reset all tiles are clean.
func (env *Env) ValueCells(model Model) ([]ValueCell, error) {
	tiles := env.initial
	if tiles == nil {
		tiles = make([]int, env.Width*env.Width)
	}

	cells := make([]ValueCell, 0, len(tiles))
	for row := 0; row < env.Width; row++ {
		for col := 0; col < env.Width; col++ {
			values, err := model.StateValues(env.observe(tiles, row, col))
			if err != nil {
				return nil, err
			}
			cell := ValueCell{
				Row:   row,
				Col:   col,
				Dirty: tiles[row*env.Width+col] == DIRTY_TILE,
				Value: math.Inf(-1),
			}
			for action, val := range values {
				if val > cell.Value {
					cell.Value = val
					cell.Action = Action(action)
				}
			}
			cells = append(cells, cell)
		}
	}
	return cells, nil
}

// ActionName returns a short human readable name of a bot action.
func ActionName(action Action) string {
	switch action {
	case NORTH:
		return "north"
	case EAST:
		return "east"
	case SOUTH:
		return "south"
	case WEST:
		return "west"
	case CLEAN:
		return "clean"
	}
	return "unknown"
}
