package experiment

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	. "cleanbot/reinforcement"

	"gopkg.in/yaml.v3"
)

const (
	SUITE_FILE        = "suite.yaml"
	REPORT_FILE       = "report.html"
	MODEL_SUFFIX      = ".model.yaml"
	VALIDATION_SUFFIX = ".validation.yaml"
)

// ValidationSeries is the persisted validation history of an experiment.
type ValidationSeries struct {
	Experiment          string    `yaml:"experiment"`
	Episodes            int       `yaml:"episodes"`
	Interrupted         bool      `yaml:"interrupted"`
	ValidationFrequency int       `yaml:"validationFrequency"`
	TrainingAvgReward   []float64 `yaml:"trainingAvgReward,flow"`
	ValidationAvgReward []float64 `yaml:"validationAvgReward,flow"`
}

// writeFile creates path and hands it to write, closing it afterward.
func writeFile(path string, write func(io.Writer) error) (err error) {
	var f *os.File
	if f, err = os.Create(path); err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return write(f)
}

func saveSuite(dir string, cfg *SuiteConfig) error {
	if err := writeFile(filepath.Join(dir, SUITE_FILE), cfg.WriteYaml); err != nil {
		return fmt.Errorf("save suite: %w", err)
	}
	return nil
}

// saveModel writes the model of exp, fitting any pending approximator updates first.
func saveModel(dir string, exp *Experiment) error {
	if lm, ok := exp.Model.(*LinearModel); ok {
		lm.Flush()
	}
	if err := writeFile(filepath.Join(dir, exp.Name+MODEL_SUFFIX), exp.Model.Save); err != nil {
		return fmt.Errorf("save model %s: %w", exp.Name, err)
	}
	return nil
}

func saveValidation(dir string, validationFrequency int, result *Result) error {
	series := ValidationSeries{
		Experiment:          result.Name,
		Episodes:            result.Episodes,
		Interrupted:         result.Interrupted,
		ValidationFrequency: validationFrequency,
		TrainingAvgReward:   result.TrainingAvgReward,
		ValidationAvgReward: result.ValidationAvgReward,
	}
	err := writeFile(filepath.Join(dir, result.Name+VALIDATION_SUFFIX), func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(&series)
	})
	if err != nil {
		return fmt.Errorf("save validation %s: %w", result.Name, err)
	}
	return nil
}

// LoadValidation reads a validation series written by a suite run.
func LoadValidation(path string) (*ValidationSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	series := &ValidationSeries{}
	if err = yaml.NewDecoder(f).Decode(series); err != nil {
		return nil, fmt.Errorf("load validation %s: %w", path, err)
	}
	return series, nil
}
