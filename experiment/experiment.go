package experiment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cleanbot/clean_bot"
	. "cleanbot/reinforcement"
)

// Algorithms and models an experiment may select.
const (
	AVERAGING_MC = "averaging-mc"
	ALPHA_MC     = "alpha-mc"
	SARSA        = "sarsa"

	TABLE_MODEL  = "table"
	LINEAR_MODEL = "linear"
)

// Hyper-parameter keys.
const (
	EPSILON       = "epsilon"
	ALPHA         = "alpha"
	GAMMA         = "gamma"
	MAX_STEPS     = "maxSteps"
	BATCH_SIZE    = "batchSize"
	EPOCHS        = "epochs"
	LEARNING_RATE = "learningRate"

	DEFAULT_EPSILON = 0.1
)

var (
	ErrUnknownSelector = errors.New("unknown selector")
	// ErrInvalidName is returned for experiment names that cannot name artifact files.
	ErrInvalidName = errors.New("invalid experiment name")
)

// Experiment is one learner and value representation trained against its own environment.
// Training acts epsilon-greedily, validation greedily, both on the same model.
type Experiment struct {
	Name           string
	Env            *clean_bot.Env
	Model          Model
	TrainingPolicy Policy
	TestingPolicy  Policy
	Method         Method
}

// NewExperiment builds the experiment described by cfg. Every random choice the experiment
// makes, the environment's layouts included, is drawn from gen.
func NewExperiment(cfg ExperimentConfig, gen *Generator) (*Experiment, error) {
	if err := checkName(cfg.Name); err != nil {
		return nil, err
	}
	width := cfg.Env.Width
	if width <= 0 {
		return nil, fmt.Errorf("experiment %s: width must be positive, got %d", cfg.Name, width)
	}
	env := clean_bot.NewEnv(width, gen.Rand)
	if cfg.Env.DirtyRate > 0 {
		env.DirtyRate = cfg.Env.DirtyRate
	}
	if cfg.Env.MaxSteps > 0 {
		env.MaxSteps = cfg.Env.MaxSteps
	}

	var model Model
	switch cfg.Model {
	case TABLE_MODEL, "":
		model = NewTableModel(env.ObservationSpace(), env.ActionCount())
	case LINEAR_MODEL:
		lm := NewLinearModel(
			env.ObservationSpace(),
			env.ActionCount(),
			int(cfg.GetHyperParamOrDefault(BATCH_SIZE, DefaultBatchSize)))
		lm.Epochs = int(cfg.GetHyperParamOrDefault(EPOCHS, DefaultEpochs))
		lm.LearningRate = cfg.GetHyperParamOrDefault(LEARNING_RATE, DefaultLearningRate)
		model = lm
	default:
		return nil, fmt.Errorf("experiment %s: %w: model %q", cfg.Name, ErrUnknownSelector, cfg.Model)
	}

	trainingPolicy := NewEpsilonGreedyPolicy(model, gen.Rand, cfg.GetHyperParamOrDefault(EPSILON, DEFAULT_EPSILON))
	testingPolicy := NewGreedyPolicy(model, gen.Rand)

	var method Method
	switch cfg.Algorithm {
	case AVERAGING_MC:
		mc := NewAveragingMC(env, model, trainingPolicy)
		mc.MaxSteps = int(cfg.GetHyperParamOrDefault(MAX_STEPS, DefaultMaxEpisodeSteps))
		method = mc
	case ALPHA_MC:
		mc := NewAlphaMC(env, model, trainingPolicy)
		mc.Alpha = cfg.GetHyperParamOrDefault(ALPHA, DefaultMonteCarloAlpha)
		mc.MaxSteps = int(cfg.GetHyperParamOrDefault(MAX_STEPS, DefaultMaxEpisodeSteps))
		method = mc
	case SARSA:
		sarsa := NewSarsa(env, model, trainingPolicy)
		sarsa.Alpha = cfg.GetHyperParamOrDefault(ALPHA, DefaultSarsaAlpha)
		sarsa.Gamma = cfg.GetHyperParamOrDefault(GAMMA, DefaultSarsaGamma)
		sarsa.MaxSteps = int(cfg.GetHyperParamOrDefault(MAX_STEPS, DefaultSarsaMaxSteps))
		method = sarsa
	default:
		return nil, fmt.Errorf("experiment %s: %w: algorithm %q", cfg.Name, ErrUnknownSelector, cfg.Algorithm)
	}

	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("%s-%s", cfg.Algorithm, cfg.Model)
	}

	return &Experiment{
		Name:           name,
		Env:            env,
		Model:          model,
		TrainingPolicy: trainingPolicy,
		TestingPolicy:  testingPolicy,
		Method:         method,
	}, nil
}

// checkName rejects names that would place artifacts outside the run directory.
func checkName(name string) error {
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Validate returns the average reward of the testing policy over episodeCount episodes.
// Pending approximator updates are fitted first so the policy sees the latest estimate.
func (exp *Experiment) Validate(ctx context.Context, gen *Generator, episodeCount int) (float64, error) {
	if lm, ok := exp.Model.(*LinearModel); ok {
		lm.Flush()
	}
	return ValidatePolicy(ctx, exp.Env, exp.TestingPolicy, gen, episodeCount, DefaultMaxEpisodeSteps)
}
