/*
Cleanbot trains value-learning agents on the CleanBot grid world: a bot walks a square grid and is
rewarded for cleaning dirty tiles, sooner being better. A suite of experiments compares Monte Carlo
and Sarsa learners over an exact lookup table and a linear approximator, under an identical sequence
of random numbers. Training progress can be watched live in the browser, and every run leaves its
models, validation series and a chart report behind under its run id.
*/

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"

	"cleanbot/clean_bot"
	"cleanbot/experiment"
	"cleanbot/reinforcement"
	"cleanbot/server"

	"github.com/joho/godotenv"
	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const (
	ENV_PREFIX   = "CLEANBOT"
	DEFAULT_ADDR = "localhost:8080"
)

func main() {
	for _, envFile := range []string{
		".env",
		"../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "cleanbot",
		Short:        "Train and compare value-learning agents on the CleanBot grid world",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newTrainCmd(), newRenderCmd())
	return rootCmd
}

// newSettings returns a viper instance over the command's flags, overridable by
// CLEANBOT_* environment variables.
func newSettings(cmd *cobra.Command) (*viper.Viper, error) {
	settings := viper.New()
	settings.SetEnvPrefix(ENV_PREFIX)
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
	if err := settings.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	return settings, nil
}

func newTrainCmd() *cobra.Command {
	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Run an experiment suite",
		Long: "Run an experiment suite described by a suite config, or the built-in table versus " +
			"linear model comparison when no config is given. Interrupting stops training between " +
			"episodes; what completed is still saved.",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := newSettings(cmd)
			if err != nil {
				return err
			}
			return runTrain(cmd.Context(), settings)
		},
	}
	trainCmd.Flags().String("config", "", "path to a suite config (yaml)")
	trainCmd.Flags().Bool("serve", false, "serve live training views")
	trainCmd.Flags().String("addr", DEFAULT_ADDR, "listen address of the live views")
	trainCmd.Flags().String("out", "", "output directory, overriding the suite config")
	return trainCmd
}

func loadSuite(path string) (*reinforcement.SuiteConfig, error) {
	if path == "" {
		return experiment.DefaultSuite(), nil
	}
	cfg, err := reinforcement.FromYaml(path)
	if err != nil {
		return nil, fmt.Errorf("load suite %s: %w", path, err)
	}
	return cfg, nil
}

func runTrain(parent context.Context, settings *viper.Viper) error {
	cfg, err := loadSuite(settings.GetString("config"))
	if err != nil {
		return err
	}
	if out := settings.GetString("out"); out != "" {
		cfg.OutputDir = out
	}
	if len(cfg.Experiments) == 0 {
		return fmt.Errorf("suite has no experiments")
	}

	if parent == nil {
		parent = context.Background()
	}
	appCtx, appCancel := signal.NotifyContext(parent, os.Interrupt)
	defer appCancel()

	suite := experiment.NewSuite(cfg)
	if !settings.GetBool("serve") {
		trainingCtx, trainingCancel, err := cfg.WithTrainingDeadline(appCtx)
		if err != nil {
			return err
		}
		defer trainingCancel()
		return runSuite(trainingCtx, suite)
	}

	snapshots := make(chan experiment.Snapshot)
	suite.Progress = exportSnapshots(snapshots)
	srv, err := server.NewServer(appCtx, settings.GetString("addr"), cfg.Experiments[0].Env.Width, snapshots)
	if err != nil {
		return err
	}

	// The views stay up after training so the final state can be inspected; interrupt to exit.
	group, groupCtx := errgroup.WithContext(appCtx)
	trainingCtx, trainingCancel, err := cfg.WithTrainingDeadline(groupCtx)
	if err != nil {
		return err
	}
	defer trainingCancel()

	group.Go(func() error {
		return srv.Serve(groupCtx)
	})
	group.Go(func() error {
		if err := runSuite(trainingCtx, suite); err != nil {
			return err
		}
		log.Printf("training finished, serving views on %s until interrupted", settings.GetString("addr"))
		return nil
	})
	return group.Wait()
}

func runSuite(ctx context.Context, suite *experiment.Suite) error {
	results, err := suite.Run(ctx)
	if err != nil {
		return err
	}
	if dir := suite.RunDir(); dir != "" {
		log.Printf("run %s: %d experiments, artifacts in %s", suite.RunID, len(results), dir)
	}
	return nil
}

// exportSnapshots returns a progress hook that blocks until the views take the snapshot,
// or the context is done.
func exportSnapshots(snapshots chan<- experiment.Snapshot) experiment.ProgressFunc {
	return func(ctx context.Context, snapshot experiment.Snapshot) {
		select {
		case snapshots <- snapshot:
		case <-ctx.Done():
		}
	}
}

func newRenderCmd() *cobra.Command {
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Print a freshly reset grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := newSettings(cmd)
			if err != nil {
				return err
			}
			return runRender(cmd.Context(), cmd.OutOrStdout(), settings)
		},
	}
	renderCmd.Flags().Int("width", 4, "grid width")
	renderCmd.Flags().Int64("seed", experiment.DEFAULT_SEED, "seed of the dirty tile layout")
	renderCmd.Flags().Float64("dirty-rate", clean_bot.DEFAULT_DIRTY_RATE, "upper bound of the dirty fraction of tiles")
	renderCmd.Flags().Bool("color", true, "colour the output")
	return renderCmd
}

func runRender(ctx context.Context, w io.Writer, settings *viper.Viper) error {
	width := settings.GetInt("width")
	if width <= 0 {
		return fmt.Errorf("width must be positive, got %d", width)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	env := clean_bot.NewEnv(width, rand.New(rand.NewSource(settings.GetInt64("seed"))))
	env.DirtyRate = settings.GetFloat64("dirty-rate")
	if _, err := env.Reset(ctx); err != nil {
		return err
	}
	return env.Render(w, aurora.NewAurora(settings.GetBool("color")))
}
