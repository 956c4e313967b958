// Package optimizer implements a reflective genetic optimizer for LM program
// instructions: a population of candidate instruction sets is evaluated
// against a dataset, diagnosed by a reflection language model, evolved
// through guided mutation and crossover, and reduced by multi-objective
// Pareto selection each generation.
package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/evolvekit/revolve/pkg/core"
	"github.com/evolvekit/revolve/pkg/logging"
	"github.com/evolvekit/revolve/pkg/utils"
)

// RunStore persists run progress. Persistence stays outside Compile's
// contract: store failures are logged and never affect the result.
type RunStore interface {
	SaveGeneration(runID string, record GenerationRecord) error
	SaveResult(runID string, result *OptimizationResult) error
}

// Optimizer owns the configuration and wiring for optimization runs.
type Optimizer struct {
	config *Config
	store  RunStore
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithRunStore attaches a persistence backend for run history.
func WithRunStore(store RunStore) Option {
	return func(o *Optimizer) {
		o.store = store
	}
}

// New creates an Optimizer. A nil config uses defaults; validation happens at
// Compile time so that a bad config yields a recovered result, not an error.
func New(config *Config, opts ...Option) *Optimizer {
	if config == nil {
		config = DefaultConfig()
	}
	o := &Optimizer{config: config}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Compile runs the full optimization and is guaranteed not to fail: on any
// internal error or panic it returns a recovery result wrapping the original,
// unmodified program. Callers inspect Metadata.ImplementationStatus.
func (o *Optimizer) Compile(ctx context.Context, program core.Program, trainset, valset core.Dataset, metric core.Metric) (result *OptimizationResult) {
	logger := logging.GetLogger()
	runID := uuid.New().String()

	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "Optimization run %s panicked, recovering to original program: %v", runID, r)
			result = o.recoveryResult(program, runID, fmt.Sprintf("panic: %v", r))
		}
		if o.store != nil && result != nil {
			if err := o.store.SaveResult(runID, result); err != nil {
				logger.Warn(ctx, "Failed to persist result for run %s: %v", runID, err)
			}
		}
	}()

	if err := o.validateInputs(program, trainset, metric); err != nil {
		logger.Error(ctx, "Optimization run %s rejected: %v", runID, err)
		return o.recoveryResult(program, runID, err.Error())
	}

	logger.Info(ctx, "Starting optimization run %s: generations=%d, population=%d",
		runID, o.config.NumGenerations, o.config.PopulationSize)

	engine := NewGeneticEngine(o.config, metric)
	trainExamples := core.CollectExamples(trainset)
	var valExamples []core.Example
	if valset != nil {
		valExamples = core.CollectExamples(valset)
	}

	population := o.seedPopulation(ctx, program)

	var (
		history        []GenerationRecord
		lastReflection *ReflectionResult
		lastCompleted  *Population
		totalTraces    int
		totalTimespan  time.Duration
		earlyStop      string
	)

	for generation := 0; generation < o.config.NumGenerations; generation++ {
		next, stats, reflection, err := engine.RunGeneration(ctx, population, program, trainExamples, valExamples)
		if err != nil {
			// A canceled or partially completed generation is discarded;
			// the run reports the last fully completed generation.
			if ctx.Err() != nil {
				earlyStop = "run canceled"
				logger.Warn(ctx, "Run %s canceled during generation %d, discarding partial results", runID, generation)
				break
			}
			return o.recoveryResult(program, runID, err.Error())
		}

		population = next
		lastCompleted = next
		lastReflection = reflection
		totalTraces += stats.TraceCount
		totalTimespan += stats.TraceTimespan

		record := statsToRecord(stats)
		history = append(history, record)
		if o.store != nil {
			if err := o.store.SaveGeneration(runID, record); err != nil {
				logger.Warn(ctx, "Failed to persist generation %d for run %s: %v", generation, runID, err)
			}
		}

		if o.config.TargetScore != nil {
			if best := population.Best(); best != nil && best.Scores.PrimaryScore >= *o.config.TargetScore {
				earlyStop = fmt.Sprintf("target score %.3f reached at generation %d", *o.config.TargetScore, generation)
				logger.Info(ctx, "Run %s: %s", runID, earlyStop)
				break
			}
		}
	}

	if lastCompleted == nil || lastCompleted.Best() == nil {
		return o.recoveryResult(program, runID, "no generation completed")
	}

	best := lastCompleted.Best()
	optimized := core.ApplyInstructions(program, best.Instructions)

	result = &OptimizationResult{
		OptimizedProgram: optimized,
		BestScoreValue:   best.Scores.PrimaryScore,
		Scores: map[string]float64{
			"primary_score":    best.Scores.PrimaryScore,
			"fitness_score":    best.Scores.FitnessScore,
			"token_efficiency": best.Scores.TokenEfficiency,
			"consistency":      best.Scores.Consistency,
			"latency":          best.Scores.Latency,
			"validation_score": best.ValidationScore,
		},
		Metadata: ResultMetadata{
			ImplementationStatus: StatusComplete,
			OptimizationRunID:    runID,
			TraceAnalysis: TraceAnalysis{
				TotalTraces:       totalTraces,
				ExecutionTimespan: totalTimespan.Seconds(),
			},
			ComponentVersions: componentVersions,
		},
		History: RunHistory{
			Phase:             "Optimization Complete",
			NumGenerations:    o.config.NumGenerations,
			PopulationSize:    o.config.PopulationSize,
			GenerationHistory: history,
			MutationRate:      o.config.MutationRate,
			CrossoverRate:     o.config.CrossoverRate,
			SelectionStrategy: o.selectionStrategy(),
			EarlyStopReason:   earlyStop,
		},
	}
	if lastReflection != nil {
		result.Metadata.ReflectionInsights = &ReflectionInsights{
			Diagnosis:          lastReflection.Diagnosis,
			Improvements:       lastReflection.Improvements,
			Confidence:         lastReflection.Confidence,
			SuggestedMutations: lastReflection.SuggestedMutations,
		}
	}

	logger.Info(ctx, "Optimization run %s complete: best_score=%.3f, generations=%d",
		runID, result.BestScoreValue, len(history))

	return result
}

func (o *Optimizer) validateInputs(program core.Program, trainset core.Dataset, metric core.Metric) error {
	if err := o.config.Validate(); err != nil {
		return err
	}
	if program == nil {
		return fmt.Errorf("program is required")
	}
	if len(program.Predictors()) == 0 {
		return fmt.Errorf("program exposes no instruction slots")
	}
	if trainset == nil {
		return fmt.Errorf("trainset is required")
	}
	if metric == nil {
		return fmt.Errorf("metric is required")
	}
	return nil
}

// seedPopulation builds generation 0: the baseline instruction set plus
// model-generated variations, degrading to baseline clones when the
// generation model is unavailable or fails.
func (o *Optimizer) seedPopulation(ctx context.Context, program core.Program) *Population {
	logger := logging.GetLogger()
	baseline := NewBaselineCandidate(program)
	candidates := []*Candidate{baseline}

	variations := o.instructionVariations(ctx, baseline.Instructions, o.config.PopulationSize-1)
	for _, varied := range variations {
		c := baseline.Clone()
		c.Instructions = varied
		candidates = append(candidates, c)
	}

	for len(candidates) < o.config.PopulationSize {
		candidates = append(candidates, baseline.Clone())
	}

	logger.Debug(ctx, "Seeded initial population: size=%d, variations=%d",
		len(candidates), len(variations))

	return &Population{Candidates: candidates, Generation: 0}
}

// instructionVariations asks the generation model for rewrites of each slot.
func (o *Optimizer) instructionVariations(ctx context.Context, baseline []string, count int) [][]string {
	if o.config.GenerationLM == nil || count <= 0 || len(baseline) == 0 {
		return nil
	}
	logger := logging.GetLogger()

	prompt := fmt.Sprintf(`Generate %d diverse variations of this instruction for a language model pipeline step.
Each variation should keep the intent but take a different approach.

INSTRUCTION: %s

Respond with a numbered list of variations only.`, count, baseline[0])

	response, err := o.config.GenerationLM.Generate(ctx, prompt, core.WithTemperature(0.9))
	if err != nil {
		logger.Warn(ctx, "Initial variation generation failed, seeding with baseline clones: %v", err)
		return nil
	}

	var variations [][]string
	for _, line := range utils.ParseNumberedList(response.Content) {
		if len(variations) >= count {
			break
		}
		varied := make([]string, len(baseline))
		copy(varied, baseline)
		varied[0] = line
		variations = append(variations, varied)
	}
	return variations
}

func (o *Optimizer) selectionStrategy() string {
	if o.config.UseParetoSelection {
		return "pareto"
	}
	return "fitness_truncation"
}

// recoveryResult builds the fallback result: the original program untouched,
// with the failure summarized for the caller.
func (o *Optimizer) recoveryResult(program core.Program, runID, cause string) *OptimizationResult {
	return &OptimizationResult{
		OptimizedProgram: program,
		BestScoreValue:   0,
		Scores: map[string]float64{
			"primary_score":    0,
			"fitness_score":    0,
			"token_efficiency": 0,
			"consistency":      0,
			"latency":          0,
			"validation_score": 0,
		},
		Metadata: ResultMetadata{
			ImplementationStatus: StatusErrorRecovery,
			OptimizationRunID:    runID,
			ComponentVersions:    componentVersions,
			ErrorDetails:         &ErrorDetails{RecoveryStrategy: recoveryStrategyFallback},
		},
		History: RunHistory{
			Phase:             StatusErrorRecovery,
			NumGenerations:    o.config.NumGenerations,
			PopulationSize:    o.config.PopulationSize,
			MutationRate:      o.config.MutationRate,
			CrossoverRate:     o.config.CrossoverRate,
			SelectionStrategy: o.selectionStrategy(),
			Error:             cause,
		},
	}
}
