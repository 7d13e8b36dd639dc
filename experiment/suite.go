package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"cleanbot/clean_bot"
	. "cleanbot/reinforcement"

	"github.com/google/uuid"
	"github.com/logrusorgru/aurora"
)

const (
	// Suite seed used when the config leaves it unset.
	DEFAULT_SEED = 643674
	// Validations retained per experiment.
	VALIDATION_STATS_LENGTH = 10000
	// Number of recent training rewards carried by each progress snapshot.
	TRACE_LENGTH = 200
	// Episodes between progress snapshots.
	DEFAULT_PROGRESS_FREQUENCY = 50

	EPISODE_REWARD = "EpisodeReward"
)

// ValidationStats is recorded every ValidationFrequency training episodes.
type ValidationStats struct {
	// TrainingAvgReward is the average training reward since the previous validation.
	TrainingAvgReward float64
	// ValidationAvgReward is the average reward of the greedy policy.
	ValidationAvgReward float64
}

// Fields implements reinforcement.Record.
func (vs ValidationStats) Fields() map[string]float64 {
	return map[string]float64{
		"TrainingAvgReward":   vs.TrainingAvgReward,
		"ValidationAvgReward": vs.ValidationAvgReward,
	}
}

// Snapshot is a point-in-time view of a running experiment, built on the training goroutine
// so that consumers never touch the environment or model directly.
type Snapshot struct {
	RunID      string
	Experiment string
	Episode    int
	Episodes   int
	Width      int
	Cells      []clean_bot.ValueCell
	// Rewards are the most recent training episode rewards, oldest first.
	Rewards             []float64
	ValidationAvgReward float64
}

// ProgressFunc is called with training progress. It may block; it should return promptly
// once ctx is done.
type ProgressFunc func(ctx context.Context, snapshot Snapshot)

// Result summarizes a trained experiment.
type Result struct {
	Name     string
	Episodes int
	// Interrupted is set when the suite context ended before training completed.
	Interrupted         bool
	TrainingAvgReward   []float64
	ValidationAvgReward []float64
}

// Final returns the last validation reward, or zero if none was recorded.
func (res *Result) Final() float64 {
	if len(res.ValidationAvgReward) == 0 {
		return 0
	}
	return res.ValidationAvgReward[len(res.ValidationAvgReward)-1]
}

// Suite trains a sequence of experiments under identical conditions: every experiment
// starts from the same generator state and so sees the same sequence of random numbers.
type Suite struct {
	Config *SuiteConfig
	RunID  uuid.UUID
	// Progress, if set, receives a snapshot every ProgressFrequency episodes.
	Progress          ProgressFunc
	ProgressFrequency int
	// Console receives the per-experiment summary lines.
	Console io.Writer
	Colors  aurora.Aurora

	gen *Generator
}

// NewSuite returns a suite for cfg with a fresh run id.
func NewSuite(cfg *SuiteConfig) *Suite {
	if cfg.Seed == 0 {
		cfg.Seed = DEFAULT_SEED
	}
	return &Suite{
		Config:            cfg,
		RunID:             uuid.New(),
		ProgressFrequency: DEFAULT_PROGRESS_FREQUENCY,
		Console:           os.Stdout,
		Colors:            aurora.NewAurora(true),
		gen:               NewGenerator(cfg.Seed),
	}
}

// RunDir is the directory the suite writes its artifacts to, or "" if artifacts are disabled.
func (s *Suite) RunDir() string {
	if s.Config.OutputDir == "" {
		return ""
	}
	return filepath.Join(s.Config.OutputDir, s.RunID.String())
}

// Run trains every experiment in turn. Cancelling ctx stops training between episodes;
// whatever completed is still saved and reported, and Run returns without error.
func (s *Suite) Run(ctx context.Context) ([]Result, error) {
	if err := s.validateConfig(); err != nil {
		return nil, err
	}

	dir := s.RunDir()
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create run dir: %w", err)
		}
		if err := saveSuite(dir, s.Config); err != nil {
			return nil, err
		}
	}

	s.gen.Reseed(s.Config.Seed)
	initial := s.gen.Snapshot()

	results := []Result{}
	for _, expConfig := range s.Config.Experiments {
		if ctx.Err() != nil {
			break
		}

		s.gen.Restore(initial)
		exp, err := NewExperiment(expConfig, s.gen)
		if err != nil {
			return results, err
		}

		log.Printf("run %s: training %s for %d episodes", s.RunID, exp.Name, s.Config.EpisodeCount)
		result, err := s.train(ctx, exp)
		if err != nil {
			return results, err
		}
		results = append(results, result)

		if dir != "" {
			if err = saveModel(dir, exp); err != nil {
				return results, err
			}
			if err = saveValidation(dir, s.Config.ValidationFrequency, &result); err != nil {
				return results, err
			}
			if err = writeReport(filepath.Join(dir, REPORT_FILE), s.Config.ValidationFrequency, results); err != nil {
				return results, err
			}
		}
		s.summarize(&result)
	}
	return results, nil
}

func (s *Suite) validateConfig() error {
	cfg := s.Config
	if cfg.EpisodeCount < 0 {
		return fmt.Errorf("episode count must not be negative, got %d", cfg.EpisodeCount)
	}
	if cfg.ValidationFrequency <= 0 {
		return fmt.Errorf("validation frequency must be positive, got %d", cfg.ValidationFrequency)
	}
	if cfg.TestingEpisodeCount <= 0 {
		return fmt.Errorf("testing episode count must be positive, got %d", cfg.TestingEpisodeCount)
	}
	return nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// train runs the training loop of one experiment. Cancellation ends it early and is not
// an error.
func (s *Suite) train(ctx context.Context, exp *Experiment) (Result, error) {
	cfg := s.Config
	result := Result{Name: exp.Name}
	training := NewStatsLogger(exp.Method.Stats(), cfg.StatsLength)
	validation := NewStatsLogger(ValidationStats{}, VALIDATION_STATS_LENGTH)

	for episode := 0; episode < cfg.EpisodeCount; episode++ {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}

		if _, err := exp.Method.RunEpisode(ctx); err != nil {
			if isCancellation(err) {
				result.Interrupted = true
				break
			}
			return result, fmt.Errorf("%s episode %d: %w", exp.Name, episode, err)
		}
		training.Append(exp.Method.Stats())
		result.Episodes++

		if episode%cfg.ValidationFrequency == cfg.ValidationFrequency-1 {
			stats := ValidationStats{TrainingAvgReward: training.Mean(EPISODE_REWARD, cfg.ValidationFrequency)}
			var err error
			if stats.ValidationAvgReward, err = exp.Validate(ctx, s.gen, cfg.TestingEpisodeCount); err != nil {
				if isCancellation(err) {
					result.Interrupted = true
					break
				}
				return result, fmt.Errorf("%s validation: %w", exp.Name, err)
			}
			validation.Append(stats)
			log.Printf("%s episode %d: training avg %.3f, validation avg %.3f",
				exp.Name, episode+1, stats.TrainingAvgReward, stats.ValidationAvgReward)
		}

		if s.Progress != nil && (episode%s.progressFrequency() == 0 || episode == cfg.EpisodeCount-1) {
			if err := s.publish(ctx, exp, episode+1, training, validation); err != nil {
				return result, err
			}
		}
	}

	result.TrainingAvgReward = validation.Data("TrainingAvgReward")
	result.ValidationAvgReward = validation.Data("ValidationAvgReward")
	return result, nil
}

func (s *Suite) progressFrequency() int {
	if s.ProgressFrequency <= 0 {
		return DEFAULT_PROGRESS_FREQUENCY
	}
	return s.ProgressFrequency
}

func (s *Suite) publish(
	ctx context.Context,
	exp *Experiment,
	episode int,
	training *StatsLogger,
	validation *StatsLogger,
) error {
	cells, err := exp.Env.ValueCells(exp.Model)
	if err != nil {
		return fmt.Errorf("%s progress: %w", exp.Name, err)
	}
	snapshot := Snapshot{
		RunID:      s.RunID.String(),
		Experiment: exp.Name,
		Episode:    episode,
		Episodes:   s.Config.EpisodeCount,
		Width:      exp.Env.Width,
		Cells:      cells,
		Rewards:    training.Tail(EPISODE_REWARD, TRACE_LENGTH),
	}
	if validation.Count() > 0 {
		snapshot.ValidationAvgReward = validation.Tail("ValidationAvgReward", 1)[0]
	}
	s.Progress(ctx, snapshot)
	return nil
}

func (s *Suite) summarize(result *Result) {
	if s.Console == nil {
		return
	}
	status := s.Colors.Green("done")
	if result.Interrupted {
		status = s.Colors.Yellow("interrupted")
	}
	fmt.Fprintf(s.Console, "%s: %10.3f (%s after %d episodes)\n",
		s.Colors.Bold(s.Colors.Cyan(result.Name)), result.Final(), status, result.Episodes)
}
