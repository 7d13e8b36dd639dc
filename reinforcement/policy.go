package reinforcement

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrNoComparableValue is returned when every action value of a state is NaN, which
// happens once an approximator has diverged.
var ErrNoComparableValue = errors.New("no comparable action value")

// Policy decides which action to take for an observation.
type Policy interface {
	ChooseAction(obs Observation) (Action, error)
}

// GreedyPolicy always takes a maximum-valued action per its model. When several actions
// tie for the maximum, one of them is drawn uniformly, so that no action index is favored.
type GreedyPolicy struct {
	model Model
	rng   *rand.Rand
}

// NewGreedyPolicy returns a greedy policy over model drawing ties from rng.
func NewGreedyPolicy(model Model, rng *rand.Rand) *GreedyPolicy {
	return &GreedyPolicy{
		model: model,
		rng:   rng,
	}
}

// Model returns the value function the policy acts on.
func (gp *GreedyPolicy) Model() Model {
	return gp.model
}

// ChooseAction returns one of the actions attaining the maximum value.
func (gp *GreedyPolicy) ChooseAction(obs Observation) (Action, error) {
	values, err := gp.model.StateValues(obs)
	if err != nil {
		return 0, fmt.Errorf("choose action: %w", err)
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("choose action: %w: model has no actions", ErrInvalidShape)
	}
	ties := argmaxAll(values)
	if len(ties) == 0 {
		return 0, fmt.Errorf("choose action: %w: values %v", ErrNoComparableValue, values)
	}
	return Action(ties[gp.rng.Intn(len(ties))]), nil
}

// argmaxAll returns the indices of every element equal to the maximum, ignoring NaNs.
// It is empty only when every value is NaN.
func argmaxAll(values []float64) (indices []int) {
	best := math.Inf(-1)
	for i, v := range values {
		switch {
		case math.IsNaN(v):
		case v > best:
			best = v
			indices = append(indices[:0], i)
		case v == best:
			indices = append(indices, i)
		}
	}
	return
}

// EpsilonGreedyPolicy explores with probability Exploration by taking a uniformly random
// action (the greedy action included), and otherwise acts greedily.
type EpsilonGreedyPolicy struct {
	*GreedyPolicy
	Exploration float64
}

// NewEpsilonGreedyPolicy returns an epsilon-greedy policy; exploration must lie in [0, 1].
func NewEpsilonGreedyPolicy(model Model, rng *rand.Rand, exploration float64) *EpsilonGreedyPolicy {
	return &EpsilonGreedyPolicy{
		GreedyPolicy: NewGreedyPolicy(model, rng),
		Exploration:  exploration,
	}
}

// ChooseAction explores or exploits.
func (ep *EpsilonGreedyPolicy) ChooseAction(obs Observation) (Action, error) {
	if ep.rng.Float64() < ep.Exploration {
		return Action(ep.rng.Intn(ep.model.ActionCount())), nil
	}
	return ep.GreedyPolicy.ChooseAction(obs)
}
