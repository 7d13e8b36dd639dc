package reinforcement

import (
	"context"
	"errors"
)

// scriptedPolicy replays a fixed sequence of actions.
type scriptedPolicy struct {
	actions []Action
	current int
}

func (sp *scriptedPolicy) ChooseAction(obs Observation) (Action, error) {
	if sp.current >= len(sp.actions) {
		return 0, errors.New("script exhausted")
	}
	action := sp.actions[sp.current]
	sp.current++
	return action, nil
}

// constantPolicy always takes the same action.
type constantPolicy Action

func (cp constantPolicy) ChooseAction(obs Observation) (Action, error) {
	return Action(cp), nil
}

// chainEnv walks through a fixed sequence of observations, one per step, paying the
// reward of the step taken. The episode ends after the last observation is reached.
// With repeat set, every step reports the first observation instead, which models a
// single self-looping state.
type chainEnv struct {
	space   Space
	actions int
	chain   []Observation
	rewards []float64
	repeat  bool

	// episodeRewards, when set, scales every reward by a per-episode factor cycling
	// through the slice.
	episodeRewards []float64

	episode int
	step    int
}

func (ce *chainEnv) Reset(ctx context.Context) (Observation, error) {
	ce.step = 0
	ce.episode++
	return ce.chain[0].Clone(), nil
}

func (ce *chainEnv) Step(ctx context.Context, action Action) (StepResult, error) {
	if ce.step >= len(ce.rewards) {
		return StepResult{}, errors.New("stepped past the end")
	}
	reward := ce.rewards[ce.step]
	if len(ce.episodeRewards) > 0 {
		reward *= ce.episodeRewards[(ce.episode-1)%len(ce.episodeRewards)]
	}
	ce.step++

	next := ce.chain[0]
	if !ce.repeat {
		next = ce.chain[ce.step]
	}
	return StepResult{
		Observation: next.Clone(),
		Reward:      reward,
		Done:        ce.step == len(ce.rewards),
	}, nil
}

func (ce *chainEnv) ObservationSpace() Space {
	return ce.space
}

func (ce *chainEnv) ActionCount() int {
	return ce.actions
}

// endlessEnv never finishes an episode.
type endlessEnv struct{}

func (endlessEnv) Reset(ctx context.Context) (Observation, error) {
	return Observation{0}, nil
}

func (endlessEnv) Step(ctx context.Context, action Action) (StepResult, error) {
	return StepResult{Observation: Observation{0}, Reward: 1}, nil
}

func (endlessEnv) ObservationSpace() Space {
	return Space{Dims: []int{1}, High: 0}
}

func (endlessEnv) ActionCount() int {
	return 2
}

// randomEnv draws its single-element observation from a generator on every reset and
// finishes after one step, paying the observation value.
type randomEnv struct {
	gen *Generator
	obs Observation
}

func (re *randomEnv) Reset(ctx context.Context) (Observation, error) {
	re.obs = Observation{re.gen.Intn(10)}
	return re.obs.Clone(), nil
}

func (re *randomEnv) Step(ctx context.Context, action Action) (StepResult, error) {
	return StepResult{Observation: re.obs.Clone(), Reward: float64(re.obs[0]), Done: true}, nil
}

func (re *randomEnv) ObservationSpace() Space {
	return Space{Dims: []int{1}, High: 9}
}

func (re *randomEnv) ActionCount() int {
	return 1
}

type testRecord struct {
	Reward float64
	Steps  float64
}

func (tr testRecord) Fields() map[string]float64 {
	return map[string]float64{
		"Reward": tr.Reward,
		"Steps":  tr.Steps,
	}
}
