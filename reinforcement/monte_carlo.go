package reinforcement

import (
	"context"
	"fmt"
	"math"
)

// DefaultMonteCarloAlpha is the step size of AlphaMC unless configured otherwise.
const DefaultMonteCarloAlpha = 0.005

// AveragingMCStats describes the most recent AveragingMC episode.
type AveragingMCStats struct {
	// EpisodeReward is the total reward of the last episode.
	EpisodeReward float64
	// MaxActionValueDelta is the largest change of a state-action value in the last episode,
	// among pairs visited more than once.
	MaxActionValueDelta float64
	// FirstTimeVisited counts the state-action pairs visited at least once, over all episodes.
	FirstTimeVisited float64
	// FifthTimeVisited counts the state-action pairs visited at least five times, over all episodes.
	FifthTimeVisited float64
}

// Fields implements Record.
func (s AveragingMCStats) Fields() map[string]float64 {
	return map[string]float64{
		"EpisodeReward":       s.EpisodeReward,
		"MaxActionValueDelta": s.MaxActionValueDelta,
		"FirstTimeVisited":    s.FirstTimeVisited,
		"FifthTimeVisited":    s.FifthTimeVisited,
	}
}

// AveragingMC is first-visit Monte Carlo control in which every state-action value is the
// mean of the first-visit returns observed for that pair across all episodes.
type AveragingMC struct {
	env     Environment
	model   Model
	policy  Policy
	indexer *Indexer

	// MaxSteps caps recorded episodes.
	MaxSteps int

	// Absent keys are pairs never visited: zero total, zero count.
	totalReturns map[Key]float64
	visitCount   map[Key]int
	stats        AveragingMCStats
}

// NewAveragingMC returns an averaging learner that records episodes of policy against env
// and writes the running means into model.
func NewAveragingMC(env Environment, model Model, policy Policy) *AveragingMC {
	return &AveragingMC{
		env:          env,
		model:        model,
		policy:       policy,
		indexer:      NewIndexer(env.ObservationSpace(), env.ActionCount()),
		MaxSteps:     DefaultMaxEpisodeSteps,
		totalReturns: map[Key]float64{},
		visitCount:   map[Key]int{},
	}
}

// SetPolicy replaces the behavior policy for subsequent episodes.
func (mc *AveragingMC) SetPolicy(policy Policy) {
	mc.policy = policy
}

// Stats returns the statistics of the most recent episode.
func (mc *AveragingMC) Stats() Record {
	return mc.stats
}

// VisitCount returns the number of episodes in which the pair was visited.
func (mc *AveragingMC) VisitCount(obs Observation, action Action) (int, error) {
	key, err := mc.indexer.ActionKey(obs, action)
	if err != nil {
		return 0, err
	}
	return mc.visitCount[key], nil
}

// RunEpisode records one episode and folds its first-visit returns into the running means.
// Nothing is updated if the episode fails to record.
func (mc *AveragingMC) RunEpisode(ctx context.Context) (float64, error) {
	mc.stats.EpisodeReward = 0
	mc.stats.MaxActionValueDelta = 0

	episode, err := RecordEpisode(ctx, mc.env, mc.policy, mc.MaxSteps)
	if err != nil {
		return 0, fmt.Errorf("averaging mc: %w", err)
	}
	visits, total, err := FirstVisitRewards(mc.indexer, episode)
	if err != nil {
		return 0, fmt.Errorf("averaging mc: %w", err)
	}

	maxDelta := 0.0
	for _, visit := range visits {
		// Cannot fail, FirstVisitRewards already keyed every pair.
		key, _ := mc.indexer.ActionKey(visit.Observation, visit.Action)
		mc.totalReturns[key] += visit.Return
		mc.visitCount[key]++

		count := mc.visitCount[key]
		mean := mc.totalReturns[key] / float64(count)

		if count == 1 {
			mc.stats.FirstTimeVisited++
		} else {
			previous, err := mc.model.ActionValue(visit.Observation, visit.Action)
			if err != nil {
				return 0, fmt.Errorf("averaging mc: %w", err)
			}
			maxDelta = math.Max(maxDelta, math.Abs(mean-previous))
		}
		if count == 5 {
			mc.stats.FifthTimeVisited++
		}

		if err := mc.model.UpdateActionValue(visit.Observation, visit.Action, mean); err != nil {
			return 0, fmt.Errorf("averaging mc: %w", err)
		}
	}

	mc.stats.EpisodeReward = total
	mc.stats.MaxActionValueDelta = maxDelta
	return total, nil
}

// AlphaMCStats describes the most recent AlphaMC episode.
type AlphaMCStats struct {
	EpisodeReward       float64
	MaxActionValueDelta float64
	// RMS is the root mean square of the updates applied in the last episode.
	RMS float64
}

// Fields implements Record.
func (s AlphaMCStats) Fields() map[string]float64 {
	return map[string]float64{
		"EpisodeReward":       s.EpisodeReward,
		"MaxActionValueDelta": s.MaxActionValueDelta,
		"RMS":                 s.RMS,
	}
}

// AlphaMC is first-visit Monte Carlo control with a constant step size: every visited
// pair moves Alpha of the way toward its first-visit return.
type AlphaMC struct {
	env     Environment
	model   Model
	policy  Policy
	indexer *Indexer

	Alpha    float64
	MaxSteps int

	stats AlphaMCStats
}

// NewAlphaMC returns a constant step-size learner with DefaultMonteCarloAlpha.
func NewAlphaMC(env Environment, model Model, policy Policy) *AlphaMC {
	return &AlphaMC{
		env:      env,
		model:    model,
		policy:   policy,
		indexer:  NewIndexer(env.ObservationSpace(), env.ActionCount()),
		Alpha:    DefaultMonteCarloAlpha,
		MaxSteps: DefaultMaxEpisodeSteps,
	}
}

// SetPolicy replaces the behavior policy for subsequent episodes.
func (mc *AlphaMC) SetPolicy(policy Policy) {
	mc.policy = policy
}

// Stats returns the statistics of the most recent episode.
func (mc *AlphaMC) Stats() Record {
	return mc.stats
}

// RunEpisode records one episode and steps every first-visited pair toward its return.
func (mc *AlphaMC) RunEpisode(ctx context.Context) (float64, error) {
	mc.stats = AlphaMCStats{}

	episode, err := RecordEpisode(ctx, mc.env, mc.policy, mc.MaxSteps)
	if err != nil {
		return 0, fmt.Errorf("alpha mc: %w", err)
	}
	visits, total, err := FirstVisitRewards(mc.indexer, episode)
	if err != nil {
		return 0, fmt.Errorf("alpha mc: %w", err)
	}

	maxDelta, sumSquares := 0.0, 0.0
	for _, visit := range visits {
		estimate, err := mc.model.ActionValue(visit.Observation, visit.Action)
		if err != nil {
			return 0, fmt.Errorf("alpha mc: %w", err)
		}
		delta := mc.Alpha * (visit.Return - estimate)
		maxDelta = math.Max(maxDelta, math.Abs(delta))
		sumSquares += delta * delta

		if err := mc.model.UpdateActionValue(visit.Observation, visit.Action, estimate+delta); err != nil {
			return 0, fmt.Errorf("alpha mc: %w", err)
		}
	}

	mc.stats.EpisodeReward = total
	mc.stats.MaxActionValueDelta = maxDelta
	if len(visits) > 0 {
		mc.stats.RMS = math.Sqrt(sumSquares / float64(len(visits)))
	}
	return total, nil
}
