package clean_bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"

	. "cleanbot/reinforcement"

	"github.com/logrusorgru/aurora"
)

// A square grid in which some of the tiles are dirty. The bot starts in the top left corner,
// moves along the coordinate axes and is rewarded for cleaning dirty tiles: the sooner a
// tile is cleaned, the larger the reward. The episode ends when every tile is clean or the
// step budget is spent.

const (
	// Tile states, as they appear in observations.
	CLEAN_TILE = 0
	DIRTY_TILE = 1
	// The bot is only visible on a clean tile; on a dirty tile the tile shows as dirty.
	BOT_TILE = 2

	// Bot actions.
	NORTH Action = 0
	EAST  Action = 1
	SOUTH Action = 2
	WEST  Action = 3
	CLEAN Action = 4

	NUM_ACTIONS = 5

	DEFAULT_DIRTY_RATE = 0.5
)

// ErrEpisodeFinished is returned when stepping an episode that has already ended.
var ErrEpisodeFinished = errors.New("episode has finished")

// Env is the clean bot environment. It implements reinforcement.Environment.
type Env struct {
	Width int
	// DirtyRate is the upper bound of dirty tiles as a fraction of all tiles.
	DirtyRate float64
	// MaxSteps is the number of steps after which an episode ends.
	MaxSteps int

	rng *rand.Rand
	// layout, when set, replaces the random draw of dirty tiles on reset.
	layout []int

	// tiles holds the row-major state of every tile, without the bot.
	tiles []int
	// initial is the tile state the current episode started from.
	initial    []int
	botRow     int
	botCol     int
	stepCount  int
	dirtyCount int
}

// NewEnv returns an environment of the given width that draws its dirty tiles from rng.
// No episode is in progress until Reset is called.
func NewEnv(width int, rng *rand.Rand) *Env {
	return &Env{
		Width:     width,
		DirtyRate: DEFAULT_DIRTY_RATE,
		MaxSteps:  width * width * 2,
		rng:       rng,
		tiles:     make([]int, width*width),
	}
}

// SetLayout fixes the dirty tiles used on every reset, bypassing the random draw.
// A nil layout restores random layouts.
func (env *Env) SetLayout(dirty [][]bool) error {
	if dirty == nil {
		env.layout = nil
		return nil
	}
	if len(dirty) != env.Width {
		return fmt.Errorf("%w: layout has %d rows, want %d", ErrInvalidShape, len(dirty), env.Width)
	}
	layout := make([]int, env.Width*env.Width)
	for row, cols := range dirty {
		if len(cols) != env.Width {
			return fmt.Errorf("%w: layout row %d has %d tiles, want %d", ErrInvalidShape, row, len(cols), env.Width)
		}
		for col, isDirty := range cols {
			if isDirty {
				layout[row*env.Width+col] = DIRTY_TILE
			}
		}
	}
	env.layout = layout
	return nil
}

// ObservationSpace implements reinforcement.Environment.
func (env *Env) ObservationSpace() Space {
	return Space{Dims: []int{env.Width, env.Width}, High: BOT_TILE}
}

// ActionCount implements reinforcement.Environment.
func (env *Env) ActionCount() int {
	return NUM_ACTIONS
}

// Reset starts a new episode with the bot in the top left corner.
func (env *Env) Reset(ctx context.Context) (Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	env.stepCount = 0
	env.botRow, env.botCol = 0, 0
	env.tiles = make([]int, env.Width*env.Width)
	env.dirtyCount = 0

	if env.layout != nil {
		copy(env.tiles, env.layout)
		for _, tile := range env.tiles {
			if tile == DIRTY_TILE {
				env.dirtyCount++
			}
		}
	} else {
		// The same tile may be drawn more than once, so fewer tiles than the bound may be dirty.
		bound := int(float64(env.Width*env.Width) * env.DirtyRate)
		if bound < 1 {
			bound = 1
		}
		for i := 0; i < bound; i++ {
			row, col := env.rng.Intn(env.Width), env.rng.Intn(env.Width)
			if tile := &env.tiles[row*env.Width+col]; *tile != DIRTY_TILE {
				*tile = DIRTY_TILE
				env.dirtyCount++
			}
		}
	}

	env.initial = append([]int(nil), env.tiles...)
	return env.observe(env.tiles, env.botRow, env.botCol), nil
}

// Finished reports whether the current episode has ended.
func (env *Env) Finished() bool {
	return env.dirtyCount == 0 || env.stepCount == env.MaxSteps
}

// Step performs an action. Moves into the border leave the bot in place. Cleaning a dirty
// tile pays MaxSteps minus the number of steps taken so far, this one included.
func (env *Env) Step(ctx context.Context, action Action) (StepResult, error) {
	if err := ctx.Err(); err != nil {
		return StepResult{}, err
	}
	if env.Finished() {
		return StepResult{}, fmt.Errorf("%w (step %d, %d dirty)", ErrEpisodeFinished, env.stepCount, env.dirtyCount)
	}
	if action < 0 || action >= NUM_ACTIONS {
		return StepResult{}, fmt.Errorf("%w: action %d outside [0, %d)", ErrInvalidShape, action, NUM_ACTIONS)
	}

	env.stepCount++
	reward := 0.0
	switch action {
	case NORTH:
		if env.botRow > 0 {
			env.botRow--
		}
	case SOUTH:
		if env.botRow < env.Width-1 {
			env.botRow++
		}
	case EAST:
		if env.botCol < env.Width-1 {
			env.botCol++
		}
	case WEST:
		if env.botCol > 0 {
			env.botCol--
		}
	case CLEAN:
		if tile := &env.tiles[env.botRow*env.Width+env.botCol]; *tile == DIRTY_TILE {
			*tile = CLEAN_TILE
			env.dirtyCount--
			reward = float64(env.MaxSteps - env.stepCount)
		}
	}

	return StepResult{
		Observation: env.observe(env.tiles, env.botRow, env.botCol),
		Reward:      reward,
		Done:        env.Finished(),
	}, nil
}

// observe returns a fresh observation of tiles with the bot drawn on its tile, unless
// that tile is dirty.
func (env *Env) observe(tiles []int, botRow, botCol int) Observation {
	obs := make(Observation, len(tiles))
	copy(obs, tiles)
	if bot := &obs[botRow*env.Width+botCol]; *bot != DIRTY_TILE {
		*bot = BOT_TILE
	}
	return obs
}

// Render writes the grid, one row per line: '-' for clean, 'd' for dirty, 'b' for the bot.
func (env *Env) Render(w io.Writer, au aurora.Aurora) error {
	obs := env.observe(env.tiles, env.botRow, env.botCol)
	for row := 0; row < env.Width; row++ {
		for col := 0; col < env.Width; col++ {
			var glyph aurora.Value
			switch obs[row*env.Width+col] {
			case CLEAN_TILE:
				glyph = au.Faint("-")
			case DIRTY_TILE:
				glyph = au.Red("d")
			case BOT_TILE:
				glyph = au.Green("b")
			}
			if _, err := fmt.Fprint(w, glyph); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
