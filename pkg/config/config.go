// Package config loads optimization run configuration from YAML files.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/evolvekit/revolve/pkg/errors"
	"github.com/evolvekit/revolve/pkg/optimizer"
)

// ModelConfig names a provider-hosted model.
type ModelConfig struct {
	Provider string `yaml:"provider" validate:"omitempty,oneof=anthropic"`
	Model    string `yaml:"model,omitempty"`
}

// EvolutionConfig holds the evolutionary parameters of a run.
type EvolutionConfig struct {
	NumGenerations     int      `yaml:"num_generations" validate:"gt=0"`
	PopulationSize     int      `yaml:"population_size" validate:"gt=0"`
	MutationRate       float64  `yaml:"mutation_rate" validate:"gte=0,lte=1"`
	CrossoverRate      float64  `yaml:"crossover_rate" validate:"gte=0,lte=1"`
	ElitismCount       int      `yaml:"elitism_count" validate:"gte=0"`
	UseParetoSelection bool     `yaml:"use_pareto_selection"`
	TargetScore        *float64 `yaml:"target_score,omitempty"`
	Concurrency        int      `yaml:"concurrency" validate:"gte=1"`
	FailureBudget      float64  `yaml:"failure_budget" validate:"gte=0,lte=1"`
	Seed               int64    `yaml:"seed"`
}

// DatasetConfig points at training and validation data.
type DatasetConfig struct {
	TrainPath     string  `yaml:"train_path,omitempty"`
	ValPath       string  `yaml:"val_path,omitempty"`
	TrainFraction float64 `yaml:"train_fraction,omitempty" validate:"gte=0,lte=1"`
}

// Config is the full run configuration.
type Config struct {
	Generation ModelConfig     `yaml:"generation_model,omitempty"`
	Reflection ModelConfig     `yaml:"reflection_model,omitempty"`
	Evolution  EvolutionConfig `yaml:"evolution"`
	Dataset    DatasetConfig   `yaml:"dataset,omitempty"`

	// HistoryPath enables SQLite run-history persistence when set.
	HistoryPath string `yaml:"history_path,omitempty"`
}

// Default returns a configuration mirroring the optimizer defaults.
func Default() *Config {
	opt := optimizer.DefaultConfig()
	return &Config{
		Generation: ModelConfig{Provider: "anthropic"},
		Reflection: ModelConfig{Provider: "anthropic"},
		Evolution: EvolutionConfig{
			NumGenerations:     opt.NumGenerations,
			PopulationSize:     opt.PopulationSize,
			MutationRate:       opt.MutationRate,
			CrossoverRate:      opt.CrossoverRate,
			ElitismCount:       opt.ElitismCount,
			UseParetoSelection: opt.UseParetoSelection,
			Concurrency:        opt.Concurrency,
			FailureBudget:      opt.FailureBudget,
		},
		Dataset: DatasetConfig{TrainFraction: 0.8},
	}
}

var configValidator = validator.New()

// Load reads a YAML config file over the defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.InvalidConfig, "failed to read config file")
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, errors.InvalidConfig, "failed to parse config YAML")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration against its constraints.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		if violations, ok := err.(validator.ValidationErrors); ok && len(violations) > 0 {
			v := violations[0]
			return errors.WithFields(
				errors.New(errors.InvalidConfig, "invalid run configuration"),
				errors.Fields{
					"field":      v.Namespace(),
					"constraint": v.Tag(),
				})
		}
		return errors.Wrap(err, errors.InvalidConfig, "invalid run configuration")
	}
	return nil
}

// Optimizer converts the evolution section to an optimizer.Config. Models are
// wired separately by the caller.
func (c *Config) Optimizer() *optimizer.Config {
	return &optimizer.Config{
		NumGenerations:     c.Evolution.NumGenerations,
		PopulationSize:     c.Evolution.PopulationSize,
		MutationRate:       c.Evolution.MutationRate,
		CrossoverRate:      c.Evolution.CrossoverRate,
		ElitismCount:       c.Evolution.ElitismCount,
		UseParetoSelection: c.Evolution.UseParetoSelection,
		TargetScore:        c.Evolution.TargetScore,
		Concurrency:        c.Evolution.Concurrency,
		FailureBudget:      c.Evolution.FailureBudget,
		Seed:               c.Evolution.Seed,
	}
}
