package reinforcement

import (
	"context"
	"fmt"
)

// ValidationSeed seeds the generator during policy validation so that every validation
// observes the same environment layouts and tie-breaks.
const ValidationSeed = 52346

// ValidatePolicy returns the average total reward of policy over episodeCount episodes.
// The generator is reseeded with ValidationSeed for the duration of the evaluation and
// then restored to where it was, so validation does not perturb training. An episode that
// does not finish within maxSteps fails with ErrEpisodeDidNotTerminate.
func ValidatePolicy(
	ctx context.Context,
	env Environment,
	policy Policy,
	gen *Generator,
	episodeCount int,
	maxSteps int,
) (float64, error) {
	if episodeCount <= 0 {
		return 0, fmt.Errorf("validate policy: episode count must be positive, got %d", episodeCount)
	}

	resume := gen.Divert(ValidationSeed)
	defer resume()

	total := 0.0
	for i := 0; i < episodeCount; i++ {
		episode, err := RecordEpisode(ctx, env, policy, maxSteps)
		if err != nil {
			return 0, fmt.Errorf("validate policy: %w", err)
		}
		for _, step := range episode {
			total += step.Reward
		}
	}
	return total / float64(episodeCount), nil
}
