package experiment

import (
	. "cleanbot/reinforcement"
)

// DefaultSuite compares a lookup table with the linear approximator on a 4x4 grid, trained
// by constant-alpha Monte Carlo and by Sarsa.
func DefaultSuite() *SuiteConfig {
	env := EnvConfig{Width: 4, MaxSteps: 32}
	common := []HyperParameter{
		{Key: EPSILON, Val: 0.1},
		{Key: ALPHA, Val: 0.01},
	}
	approximator := append([]HyperParameter{{Key: EPOCHS, Val: 100}}, common...)

	return &SuiteConfig{
		Seed:                DEFAULT_SEED,
		EpisodeCount:        2000,
		ValidationFrequency: 100,
		TestingEpisodeCount: 20,
		StatsLength:         DefaultStatsLength,
		OutputDir:           "runs",
		Experiments: []ExperimentConfig{
			{
				Name:        "AlphaMCTableModel",
				Algorithm:   ALPHA_MC,
				Model:       TABLE_MODEL,
				Env:         env,
				HyperParams: common,
			},
			{
				Name:        "AlphaMCLinearModel",
				Algorithm:   ALPHA_MC,
				Model:       LINEAR_MODEL,
				Env:         env,
				HyperParams: approximator,
			},
			{
				Name:        "SarsaLinearModel",
				Algorithm:   SARSA,
				Model:       LINEAR_MODEL,
				Env:         env,
				HyperParams: approximator,
			},
		},
	}
}
