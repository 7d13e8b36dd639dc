package reinforcement

import (
	"context"
	"fmt"
	"math"
)

// Sarsa defaults.
const (
	DefaultSarsaAlpha    = 0.01
	DefaultSarsaGamma    = 0.9
	DefaultSarsaMaxSteps = 1000
)

// SarsaStats describes the most recent Sarsa episode.
type SarsaStats struct {
	EpisodeReward       float64
	MaxActionValueDelta float64
	Steps               float64
	// Truncated is 1 when the episode ran out of steps before the environment finished it.
	Truncated float64
}

// Fields implements Record.
func (s SarsaStats) Fields() map[string]float64 {
	return map[string]float64{
		"EpisodeReward":       s.EpisodeReward,
		"MaxActionValueDelta": s.MaxActionValueDelta,
		"Steps":               s.Steps,
		"Truncated":           s.Truncated,
	}
}

// Sarsa is one-step on-policy temporal-difference control. Unlike the Monte Carlo learners
// it drives the environment itself and updates the model after every step:
//
//	Q(s0,a0) += Alpha * (r + Gamma*Q(s1,a1) - Q(s0,a0))
//
// where a1 is the action the policy then actually takes in s1.
type Sarsa struct {
	env    Environment
	model  Model
	policy Policy

	Alpha float64
	Gamma float64
	// MaxSteps is a soft cap: an episode that reaches it ends without error and is flagged
	// in the stats as truncated.
	MaxSteps int

	stats SarsaStats
}

// NewSarsa returns a Sarsa learner with the default step size, discount and step cap.
func NewSarsa(env Environment, model Model, policy Policy) *Sarsa {
	return &Sarsa{
		env:      env,
		model:    model,
		policy:   policy,
		Alpha:    DefaultSarsaAlpha,
		Gamma:    DefaultSarsaGamma,
		MaxSteps: DefaultSarsaMaxSteps,
	}
}

// SetPolicy replaces the behavior policy for subsequent episodes.
func (s *Sarsa) SetPolicy(policy Policy) {
	s.policy = policy
}

// Stats returns the statistics of the most recent episode.
func (s *Sarsa) Stats() Record {
	return s.stats
}

// RunEpisode plays one episode, updating the model after every step. If ctx is cancelled
// mid-episode the updates already applied are kept and ctx.Err() is returned.
func (s *Sarsa) RunEpisode(ctx context.Context) (float64, error) {
	s.stats = SarsaStats{}

	s0, err := s.env.Reset(ctx)
	if err != nil {
		return 0, fmt.Errorf("sarsa: %w", err)
	}
	a0, err := s.policy.ChooseAction(s0)
	if err != nil {
		return 0, fmt.Errorf("sarsa: %w", err)
	}

	done := false
	for step := 0; step < s.MaxSteps && !done; step++ {
		if err := ctx.Err(); err != nil {
			return s.stats.EpisodeReward, err
		}

		result, err := s.env.Step(ctx, a0)
		if err != nil {
			return 0, fmt.Errorf("sarsa: %w", err)
		}
		s1 := result.Observation
		a1, err := s.policy.ChooseAction(s1)
		if err != nil {
			return 0, fmt.Errorf("sarsa: %w", err)
		}

		q0, err := s.model.ActionValue(s0, a0)
		if err != nil {
			return 0, fmt.Errorf("sarsa: %w", err)
		}
		q1, err := s.model.ActionValue(s1, a1)
		if err != nil {
			return 0, fmt.Errorf("sarsa: %w", err)
		}
		delta := s.Alpha * (result.Reward + s.Gamma*q1 - q0)
		if err := s.model.UpdateActionValue(s0, a0, q0+delta); err != nil {
			return 0, fmt.Errorf("sarsa: %w", err)
		}

		s.stats.MaxActionValueDelta = math.Max(s.stats.MaxActionValueDelta, math.Abs(delta))
		s.stats.EpisodeReward += result.Reward
		s.stats.Steps++
		done = result.Done
		s0, a0 = s1, a1
	}

	if !done {
		s.stats.Truncated = 1
	}
	return s.stats.EpisodeReward, nil
}
