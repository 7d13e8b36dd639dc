package reinforcement

import (
	"context"
	"io"
)

// Model is an estimate of the state-action value function.
//
// Implementations differ in how updates take effect. The table model replaces the
// estimate immediately. The linear model batches updates and only fits them once its
// batch fills, so a read right after UpdateActionValue may still return the old estimate.
// Callers must not rely on read-after-write unless they know the concrete model.
type Model interface {
	// StateValues returns one value per action; len == ActionCount().
	StateValues(obs Observation) ([]float64, error)
	ActionValue(obs Observation, action Action) (float64, error)
	UpdateActionValue(obs Observation, action Action, value float64) error
	ActionCount() int
	// Save persists enough state to resume training. The format is model specific.
	Save(w io.Writer) error
}

// StepResult is what an environment reports for one action.
type StepResult struct {
	Observation Observation
	Reward      float64
	Done        bool
	Info        map[string]any
}

// Environment is a simulated, episodic task. The context marks the points at which a
// cooperative implementation may suspend; model updates never happen inside them.
// Environments must signal Done within a bounded number of steps for any policy run
// against them.
type Environment interface {
	Reset(ctx context.Context) (Observation, error)
	Step(ctx context.Context, action Action) (StepResult, error)
	ObservationSpace() Space
	ActionCount() int
}

// Record is a plain statistics record whose named numeric fields can be logged.
type Record interface {
	Fields() map[string]float64
}

// Method is a learning rule that consumes one episode per call.
// RunEpisode resets the per-episode statistics first; Stats is valid until the next call.
type Method interface {
	RunEpisode(ctx context.Context) (float64, error)
	Stats() Record
}
