package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cleanbot/experiment"
	"cleanbot/reinforcement"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRender(t *testing.T) {
	Convey("When a grid is rendered from the command line", t, func() {
		var out bytes.Buffer
		root := newRootCmd()
		root.SetOut(&out)
		root.SetArgs([]string{"render", "--width", "3", "--color=false", "--seed", "7"})
		So(root.Execute(), ShouldBeNil)

		lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
		So(len(lines), ShouldEqual, 3)
		for _, line := range lines {
			So(len(line), ShouldEqual, 3)
		}
		So(out.String(), ShouldContainSubstring, "d")

		Convey("The same seed renders the same grid", func() {
			var again bytes.Buffer
			root := newRootCmd()
			root.SetOut(&again)
			root.SetArgs([]string{"render", "--width", "3", "--color=false", "--seed", "7"})
			So(root.Execute(), ShouldBeNil)
			So(again.String(), ShouldEqual, out.String())
		})
	})

	Convey("A grid without tiles is rejected", t, func() {
		root := newRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs([]string{"render", "--width", "0"})
		So(root.Execute(), ShouldNotBeNil)
	})
}

func TestTrain(t *testing.T) {
	Convey("Given a suite config on disk", t, func() {
		dir := t.TempDir()
		cfg := &reinforcement.SuiteConfig{
			Seed:                11,
			EpisodeCount:        10,
			ValidationFrequency: 5,
			TestingEpisodeCount: 2,
			StatsLength:         50,
			OutputDir:           filepath.Join(dir, "ignored"),
			Experiments: []reinforcement.ExperimentConfig{
				{
					Name:      "tiny",
					Algorithm: experiment.SARSA,
					Model:     experiment.TABLE_MODEL,
					Env:       reinforcement.EnvConfig{Width: 2},
				},
			},
		}
		path := filepath.Join(dir, "suite.yaml")
		f, err := os.Create(path)
		So(err, ShouldBeNil)
		So(cfg.WriteYaml(f), ShouldBeNil)
		So(f.Close(), ShouldBeNil)

		Convey("Training writes its artifacts to the output directory", func() {
			out := filepath.Join(dir, "runs")
			root := newRootCmd()
			root.SetArgs([]string{"train", "--config", path, "--out", out})
			So(root.Execute(), ShouldBeNil)

			runs, err := os.ReadDir(out)
			So(err, ShouldBeNil)
			So(len(runs), ShouldEqual, 1)
			_, err = os.Stat(filepath.Join(out, runs[0].Name(), "tiny"+experiment.MODEL_SUFFIX))
			So(err, ShouldBeNil)

			_, err = os.Stat(filepath.Join(dir, "ignored"))
			So(os.IsNotExist(err), ShouldBeTrue)
		})

		Convey("The default suite is used without a config", func() {
			cfg, err := loadSuite("")
			So(err, ShouldBeNil)
			So(len(cfg.Experiments), ShouldEqual, 3)
		})

		Convey("A missing config is an error", func() {
			_, err := loadSuite(filepath.Join(dir, "missing.yaml"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestExportSnapshots(t *testing.T) {
	Convey("The progress hook hands snapshots to the views", t, func() {
		snapshots := make(chan experiment.Snapshot, 1)
		hook := exportSnapshots(snapshots)
		hook(context.Background(), experiment.Snapshot{Episode: 3})
		So((<-snapshots).Episode, ShouldEqual, 3)

		Convey("And gives up once the context is done", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			blocked := make(chan experiment.Snapshot)
			exportSnapshots(blocked)(ctx, experiment.Snapshot{})
		})
	})
}
