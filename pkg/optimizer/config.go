package optimizer

import (
	"github.com/go-playground/validator/v10"

	"github.com/evolvekit/revolve/pkg/core"
	"github.com/evolvekit/revolve/pkg/errors"
)

// Config contains the evolutionary parameters for one optimization run.
// It is treated as immutable once a run starts.
type Config struct {
	// Models. GenerationLM drives paraphrase mutations and initial
	// variations; ReflectionLM diagnoses traces. Either may be nil, in
	// which case the affected stages degrade to their deterministic
	// fallbacks.
	GenerationLM core.LLM `json:"-"`
	ReflectionLM core.LLM `json:"-"`

	// Evolutionary parameters
	NumGenerations int     `json:"num_generations" validate:"gt=0"`
	PopulationSize int     `json:"population_size" validate:"gt=0"`
	MutationRate   float64 `json:"mutation_rate" validate:"gte=0,lte=1"`
	CrossoverRate  float64 `json:"crossover_rate" validate:"gte=0,lte=1"`
	ElitismCount   int     `json:"elitism_count" validate:"gte=0"`

	// Selection
	UseParetoSelection bool `json:"use_pareto_selection"`

	// Early stop: the run ends once the best primary score reaches the
	// target. Nil disables early stopping.
	TargetScore *float64 `json:"target_score,omitempty"`

	// Evaluation
	Concurrency   int     `json:"concurrency" validate:"gte=1"`
	FailureBudget float64 `json:"failure_budget" validate:"gte=0,lte=1"`

	// Seed fixes the random source for reproducible runs; 0 seeds from the
	// clock.
	Seed int64 `json:"seed"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		NumGenerations:     10,
		PopulationSize:     8,
		MutationRate:       0.3,
		CrossoverRate:      0.7,
		ElitismCount:       1,
		UseParetoSelection: true,
		Concurrency:        4,
		FailureBudget:      0.5,
	}
}

var configValidator = validator.New()

// Validate checks the configuration, returning an InvalidConfig error
// describing the first violated constraint.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		if violations, ok := err.(validator.ValidationErrors); ok && len(violations) > 0 {
			v := violations[0]
			return errors.WithFields(
				errors.New(errors.InvalidConfig, "invalid optimizer configuration"),
				errors.Fields{
					"field":      v.Field(),
					"constraint": v.Tag(),
					"value":      v.Value(),
				})
		}
		return errors.Wrap(err, errors.InvalidConfig, "invalid optimizer configuration")
	}

	if c.ElitismCount > c.PopulationSize {
		return errors.WithFields(
			errors.New(errors.InvalidConfig, "invalid optimizer configuration"),
			errors.Fields{"field": "ElitismCount", "constraint": "lte=PopulationSize"})
	}

	return nil
}
