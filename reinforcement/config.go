package reinforcement

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// OuterConfig is the envelope of every config document: a kind selector and an untyped
// definition that is decoded once the kind is known.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// SuiteKind is the kind of an experiment suite document.
const SuiteKind = "suite"

// SuiteConfig describes a sequence of experiments trained and validated under identical
// conditions.
type SuiteConfig struct {
	// Seed seeds the generator shared by all experiments.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
	// EpisodeCount is the number of training episodes per experiment.
	EpisodeCount int `mapstructure:"episodeCount" yaml:"episodeCount"`
	// ValidationFrequency is the number of training episodes between validations.
	ValidationFrequency int `mapstructure:"validationFrequency" yaml:"validationFrequency"`
	// TestingEpisodeCount is the number of greedy episodes averaged per validation.
	TestingEpisodeCount int `mapstructure:"testingEpisodeCount" yaml:"testingEpisodeCount"`
	// StatsLength bounds the training statistics retained per experiment.
	StatsLength int `mapstructure:"statsLength" yaml:"statsLength"`
	// TrainingDeadline is a fixed duration after which training stops, e.g. {duration: 10m}.
	TrainingDeadline map[string]string `mapstructure:"trainingDeadline" yaml:"trainingDeadline"`
	// OutputDir is where run artifacts are written.
	OutputDir   string             `mapstructure:"outputDir" yaml:"outputDir"`
	Experiments []ExperimentConfig `mapstructure:"experiments" yaml:"experiments"`
}

// EnvConfig parametrizes the environment of an experiment. Zero values select defaults.
type EnvConfig struct {
	Width     int     `mapstructure:"width" yaml:"width"`
	DirtyRate float64 `mapstructure:"dirtyRate" yaml:"dirtyRate"`
	MaxSteps  int     `mapstructure:"maxSteps" yaml:"maxSteps"`
}

// ExperimentConfig selects the learner and representation of one experiment.
type ExperimentConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	// Algorithm is one of averaging-mc, alpha-mc or sarsa.
	Algorithm string `mapstructure:"algorithm" yaml:"algorithm"`
	// Model is one of table or linear.
	Model string    `mapstructure:"model" yaml:"model"`
	Env   EnvConfig `mapstructure:"env" yaml:"env"`
	// HyperParams is a key-val pair of param names and their value.
	HyperParams []HyperParameter `mapstructure:"hyperParams" yaml:"hyperParams"`
}

type HyperParameter struct {
	Key string  `mapstructure:"key" yaml:"key"`
	Val float64 `mapstructure:"val" yaml:"val"`
}

func (cfg *ExperimentConfig) GetHyperParamOrDefault(param string, defaultVal float64) float64 {
	for _, kvp := range cfg.HyperParams {
		if kvp.Key == param {
			return kvp.Val
		}
	}
	return defaultVal
}

// WithTrainingDeadline returns a context extended by the training deadline, if one is specified.
func (cfg *SuiteConfig) WithTrainingDeadline(
	ctx context.Context,
) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.TrainingDeadline["duration"]; ok {
		if duration, err := time.ParseDuration(val); err != nil {
			return nil, nil, fmt.Errorf("training deadline: %w", err)
		} else {
			innerCtx, cancel := context.WithTimeout(ctx, duration)
			return innerCtx, cancel, nil
		}
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// FromYaml reads a suite document from path.
func FromYaml(path string) (*SuiteConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	if err := vp.ReadInConfig(); err != nil {
		return nil, err
	}
	return decodeSuite(vp)
}

// ReadSuite reads a suite document from r.
func ReadSuite(r io.Reader) (*SuiteConfig, error) {
	vp := viper.New()
	vp.SetConfigType("yaml")
	if err := vp.ReadConfig(r); err != nil {
		return nil, err
	}
	return decodeSuite(vp)
}

// decodeSuite unwraps the envelope. viper folds key case, so the definition is decoded
// with case-insensitive mapstructure matching rather than through yaml tags.
func decodeSuite(vp *viper.Viper) (*SuiteConfig, error) {
	outerConfig := &OuterConfig{}
	if err := vp.Unmarshal(outerConfig); err != nil {
		return nil, err
	}
	if outerConfig.Kind != SuiteKind {
		return nil, fmt.Errorf("unexpected config kind %q, want %q", outerConfig.Kind, SuiteKind)
	}

	innerConfig := &SuiteConfig{}
	if err := vp.UnmarshalKey("def", innerConfig); err != nil {
		return nil, err
	}
	return innerConfig, nil
}

// WriteYaml writes the suite wrapped in its envelope, in the form FromYaml reads.
func (cfg *SuiteConfig) WriteYaml(w io.Writer) error {
	doc := struct {
		Kind string       `yaml:"kind"`
		Def  *SuiteConfig `yaml:"def"`
	}{
		Kind: SuiteKind,
		Def:  cfg,
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("write suite: %w", err)
	}
	return nil
}
