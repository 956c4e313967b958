package optimizer

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolvekit/revolve/internal/testutil"
	"github.com/evolvekit/revolve/pkg/core"
	"github.com/evolvekit/revolve/pkg/errors"
)

func engineConfig() *Config {
	config := DefaultConfig()
	config.PopulationSize = 4
	config.NumGenerations = 2
	config.Concurrency = 2
	config.Seed = 42
	return config
}

func seededPopulation(program core.Program, size int) *Population {
	baseline := NewBaselineCandidate(program)
	candidates := []*Candidate{baseline}
	for len(candidates) < size {
		candidates = append(candidates, baseline.Clone())
	}
	return &Population{Candidates: candidates, Generation: 0}
}

func TestRunGenerationPreservesPopulationSize(t *testing.T) {
	program := testutil.ExactAnswerProgram()
	config := engineConfig()
	engine := NewGeneticEngine(config, exactMatchMetric)
	population := seededPopulation(program, config.PopulationSize)

	next, stats, reflection, err := engine.RunGeneration(context.Background(), population, program, qaExamples(), nil)

	require.NoError(t, err)
	assert.Len(t, next.Candidates, config.PopulationSize)
	assert.Equal(t, 1, next.Generation)
	require.NotNil(t, stats)
	require.NotNil(t, reflection)
}

func TestRunGenerationStats(t *testing.T) {
	program := testutil.ExactAnswerProgram()
	config := engineConfig()
	engine := NewGeneticEngine(config, exactMatchMetric)
	population := seededPopulation(program, config.PopulationSize)

	_, stats, _, err := engine.RunGeneration(context.Background(), population, program, qaExamples(), qaExamples())

	require.NoError(t, err)
	assert.Equal(t, 0, stats.Generation)
	// parents and offspring both traced against the same collector
	assert.Greater(t, stats.TraceCount, 0)
	assert.Greater(t, stats.Duration.Nanoseconds(), int64(0))
	assert.GreaterOrEqual(t, stats.FitnessMax, stats.FitnessMean)
	assert.GreaterOrEqual(t, stats.FitnessMean, stats.FitnessMin)
	assert.Greater(t, stats.BestValidationScore, 0.0)
}

func TestRunGenerationAllCandidatesEvaluated(t *testing.T) {
	program := testutil.ExactAnswerProgram()
	config := engineConfig()
	engine := NewGeneticEngine(config, exactMatchMetric)
	population := seededPopulation(program, config.PopulationSize)

	next, _, _, err := engine.RunGeneration(context.Background(), population, program, qaExamples(), nil)

	require.NoError(t, err)
	for _, c := range next.Candidates {
		assert.True(t, c.Evaluated, "survivor %s must carry scores", c.ID)
	}
}

func TestRunGenerationEmptyPopulation(t *testing.T) {
	engine := NewGeneticEngine(engineConfig(), exactMatchMetric)

	_, _, _, err := engine.RunGeneration(context.Background(), &Population{}, testutil.ExactAnswerProgram(), qaExamples(), nil)

	require.Error(t, err)
	assert.Equal(t, errors.EngineFailure, errors.CodeOf(err))
}

func TestRunGenerationCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	program := testutil.ExactAnswerProgram()
	config := engineConfig()
	engine := NewGeneticEngine(config, exactMatchMetric)
	population := seededPopulation(program, config.PopulationSize)

	_, _, _, err := engine.RunGeneration(ctx, population, program, qaExamples(), nil)

	require.Error(t, err)
	assert.Equal(t, errors.Canceled, errors.CodeOf(err))
}

func TestRunGenerationConcurrencyBound(t *testing.T) {
	var inFlight, peak int64
	program := testutil.EchoProgram([]string{"answer"}, func(_ []string, inputs map[string]any) (map[string]any, error) {
		current := atomic.AddInt64(&inFlight, 1)
		for {
			observed := atomic.LoadInt64(&peak)
			if current <= observed || atomic.CompareAndSwapInt64(&peak, observed, current) {
				break
			}
		}
		defer atomic.AddInt64(&inFlight, -1)
		return map[string]any{"answer": "4"}, nil
	})

	config := engineConfig()
	config.Concurrency = 2
	config.PopulationSize = 8
	engine := NewGeneticEngine(config, exactMatchMetric)
	population := seededPopulation(program, config.PopulationSize)

	_, _, _, err := engine.RunGeneration(context.Background(), population, program, qaExamples(), nil)

	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(config.Concurrency))
}

func TestBreedElitesPassThrough(t *testing.T) {
	program := testutil.ExactAnswerProgram()
	config := engineConfig()
	config.ElitismCount = 1
	config.MutationRate = 1.0
	engine := NewGeneticEngine(config, exactMatchMetric)

	population := seededPopulation(program, config.PopulationSize)
	best := population.Candidates[0]
	best.Scores.FitnessScore = 0.99
	best.Instructions = []string{"the proven instruction wording"}

	offspring, _, _ := engine.breed(context.Background(), population, nil)

	require.NotEmpty(t, offspring)
	assert.Equal(t, best.Instructions, offspring[0].Instructions,
		"elite slot carries the best candidate unchanged")
	assert.Len(t, offspring, config.PopulationSize)
}

func TestSampleParentFavorsFitness(t *testing.T) {
	config := engineConfig()
	engine := NewGeneticEngine(config, exactMatchMetric)

	strong := &Candidate{ID: "strong", Scores: ScoreVector{FitnessScore: 0.9}}
	weak := &Candidate{ID: "weak", Scores: ScoreVector{FitnessScore: 0.1}}
	pool := []*Candidate{weak, strong}

	strongDraws := 0
	const draws = 500
	for i := 0; i < draws; i++ {
		if engine.sampleParent(pool).ID == "strong" {
			strongDraws++
		}
	}
	assert.Greater(t, strongDraws, draws/2)
}

func TestSampleParentUniformWithoutSignal(t *testing.T) {
	engine := NewGeneticEngine(engineConfig(), exactMatchMetric)
	pool := []*Candidate{{ID: "a"}, {ID: "b"}}

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		seen[engine.sampleParent(pool).ID] = true
	}
	assert.True(t, seen["a"])
	assert.True(t, seen["b"])
}
