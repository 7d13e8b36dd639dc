package reinforcement

import (
	"context"
	"errors"
	"fmt"
)

// DefaultMaxEpisodeSteps bounds recorded episodes.
const DefaultMaxEpisodeSteps = 10000

// ErrEpisodeDidNotTerminate is returned when an episode reaches its step cap before the
// environment signals completion. It indicates a cap that is too low, or an environment and
// policy that cannot terminate; it is never retried.
var ErrEpisodeDidNotTerminate = errors.New("episode did not terminate")

// Interaction is a single step of an episode: the observation acted upon, the action taken,
// and the reward received for it.
type Interaction struct {
	Observation Observation
	Action      Action
	Reward      float64
}

// Episode is the ordered sequence of interactions from reset to termination.
type Episode []Interaction

// RecordEpisode runs one full episode of policy against env. An episode that has not
// terminated after maxSteps steps fails with ErrEpisodeDidNotTerminate; a truncated
// trace is never returned.
func RecordEpisode(
	ctx context.Context,
	env Environment,
	policy Policy,
	maxSteps int,
) (Episode, error) {
	obs, err := env.Reset(ctx)
	if err != nil {
		return nil, fmt.Errorf("record episode: %w", err)
	}

	episode := Episode{}
	for step := 0; step < maxSteps; step++ {
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		action, err := policy.ChooseAction(obs)
		if err != nil {
			return nil, fmt.Errorf("record episode: %w", err)
		}
		result, err := env.Step(ctx, action)
		if err != nil {
			return nil, fmt.Errorf("record episode: %w", err)
		}

		episode = append(episode, Interaction{
			Observation: obs,
			Action:      action,
			Reward:      result.Reward,
		})
		if result.Done {
			return episode, nil
		}
		obs = result.Observation
	}

	return nil, fmt.Errorf("record episode: %w after %d steps", ErrEpisodeDidNotTerminate, maxSteps)
}

// FirstVisit is the return following the first occurrence of a state-action pair.
type FirstVisit struct {
	Observation Observation
	Action      Action
	Return      float64
}

// FirstVisitRewards computes, for every state-action pair in the episode, the cumulative
// reward from its first occurrence to the end of the episode, and the episode's total reward.
//
// The episode is scanned backward while accumulating the reward-to-go, and each pair's entry
// is overwritten on every occurrence. The last write happens at the earliest occurrence, so
// what remains is the first-visit return. Results are ordered by first occurrence.
func FirstVisitRewards(indexer *Indexer, episode Episode) ([]FirstVisit, float64, error) {
	type entry struct {
		step  int
		visit FirstVisit
	}

	visits := map[Key]entry{}
	total := 0.0
	for t := len(episode) - 1; t >= 0; t-- {
		step := episode[t]
		total += step.Reward
		key, err := indexer.ActionKey(step.Observation, step.Action)
		if err != nil {
			return nil, 0, fmt.Errorf("first visit rewards: %w", err)
		}
		visits[key] = entry{
			step: t,
			visit: FirstVisit{
				Observation: step.Observation,
				Action:      step.Action,
				Return:      total,
			},
		}
	}

	// Place each entry at its first-visit step; unused slots are skipped.
	ordered := make([]*FirstVisit, len(episode))
	for _, e := range visits {
		visit := e.visit
		ordered[e.step] = &visit
	}
	firstVisits := make([]FirstVisit, 0, len(visits))
	for _, visit := range ordered {
		if visit != nil {
			firstVisits = append(firstVisits, *visit)
		}
	}
	return firstVisits, total, nil
}
