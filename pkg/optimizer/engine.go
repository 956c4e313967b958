package optimizer

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/evolvekit/revolve/pkg/core"
	"github.com/evolvekit/revolve/pkg/errors"
	"github.com/evolvekit/revolve/pkg/logging"
)

// GenerationStats records what happened in one generation cycle.
type GenerationStats struct {
	Generation           int           `json:"generation"`
	FitnessMin           float64       `json:"fitness_min"`
	FitnessMean          float64       `json:"fitness_mean"`
	FitnessMax           float64       `json:"fitness_max"`
	BestValidationScore  float64       `json:"best_validation_score"`
	ReflectionConfidence float64       `json:"reflection_confidence"`
	MutationCount        int           `json:"mutation_count"`
	CrossoverCount       int           `json:"crossover_count"`
	TraceCount           int           `json:"trace_count"`
	TraceTimespan        time.Duration `json:"trace_timespan"`
	Duration             time.Duration `json:"duration"`
}

// GeneticEngine orchestrates one full generation cycle: evaluate, reflect
// once, breed offspring, select survivors.
type GeneticEngine struct {
	config    *Config
	evaluator *FitnessEvaluator
	reflector *ReflectionEngine
	mutator   *MutationEngine
	crosser   *CrossoverEngine
	selector  *ParetoSelector

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGeneticEngine wires the generation cycle from a validated config and
// metric.
func NewGeneticEngine(config *Config, metric core.Metric) *GeneticEngine {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &GeneticEngine{
		config:    config,
		evaluator: NewFitnessEvaluator(metric, config.FailureBudget),
		reflector: NewReflectionEngine(config.ReflectionLM),
		mutator:   NewMutationEngine(config.GenerationLM, config.MutationRate, seed),
		crosser:   NewCrossoverEngine(config.CrossoverRate, seed+1),
		selector:  NewParetoSelector(config.UseParetoSelection),
		rng:       rand.New(rand.NewSource(seed + 2)),
	}
}

// RunGeneration executes one generation cycle and returns the selected next
// population, its stats and the generation's reflection result.
func (g *GeneticEngine) RunGeneration(ctx context.Context, population *Population, program core.Program, trainset, valset []core.Example) (*Population, *GenerationStats, *ReflectionResult, error) {
	logger := logging.GetLogger()
	start := time.Now()

	if population == nil || len(population.Candidates) == 0 {
		return nil, nil, nil, errors.New(errors.EngineFailure, "no population to evolve")
	}
	if err := errors.CheckContext(ctx, "generation"); err != nil {
		return nil, nil, nil, err
	}

	logger.Info(ctx, "Starting generation %d: population=%d, trainset=%d, valset=%d",
		population.Generation, len(population.Candidates), len(trainset), len(valset))

	// Fresh collector per generation; it does not outlive this call.
	collector := NewTraceCollector()
	raws := make(map[string]rawEvaluation)
	var rawsMu sync.Mutex

	// Evaluate the parent population concurrently. Wait() is the barrier
	// that makes the collector safe to read afterwards.
	g.evaluatePool(ctx, population.Candidates, program, trainset, valset, collector, raws, &rawsMu)
	g.evaluator.Finalize(population.Candidates, raws)

	if err := errors.CheckContext(ctx, "generation"); err != nil {
		return nil, nil, nil, err
	}

	// Exactly one reflection per generation bounds reflection-model cost.
	reflection := g.reflector.ReflectOnTraces(ctx, collector.All())

	// Breed offspring from fitness-weighted parents.
	offspring, mutations, crossovers := g.breed(ctx, population, reflection)
	g.evaluatePool(ctx, offspring, program, trainset, valset, collector, raws, &rawsMu)

	if err := errors.CheckContext(ctx, "generation"); err != nil {
		return nil, nil, nil, err
	}

	// Re-finalize the combined pool so secondary objectives are normalized
	// against the same population the selector sees.
	combined := append(append([]*Candidate{}, population.Candidates...), offspring...)
	g.evaluator.Finalize(combined, raws)

	survivors := g.selector.Select(combined, g.config.PopulationSize)
	next := &Population{
		Candidates: survivors,
		Generation: population.Generation + 1,
	}

	fitnessMin, fitnessMean, fitnessMax := population.FitnessSummary()
	stats := &GenerationStats{
		Generation:           population.Generation,
		FitnessMin:           fitnessMin,
		FitnessMean:          fitnessMean,
		FitnessMax:           fitnessMax,
		ReflectionConfidence: reflection.Confidence,
		MutationCount:        mutations,
		CrossoverCount:       crossovers,
		TraceCount:           collector.Count(),
		TraceTimespan:        collector.Timespan(),
		Duration:             time.Since(start),
	}
	if best := population.Best(); best != nil {
		stats.BestValidationScore = best.ValidationScore
	}

	logger.Info(ctx, "Generation %d complete: fitness=[%.3f %.3f %.3f], reflection_confidence=%.2f, traces=%d, survivors=%d",
		stats.Generation, stats.FitnessMin, stats.FitnessMean, stats.FitnessMax,
		stats.ReflectionConfidence, stats.TraceCount, len(survivors))

	return next, stats, reflection, nil
}

// evaluatePool scores candidates concurrently through a bounded worker pool.
func (g *GeneticEngine) evaluatePool(ctx context.Context, candidates []*Candidate, program core.Program, trainset, valset []core.Example, collector *TraceCollector, raws map[string]rawEvaluation, rawsMu *sync.Mutex) {
	p := pool.New().WithMaxGoroutines(g.config.Concurrency)

	for _, candidate := range candidates {
		candidate := candidate
		p.Go(func() {
			raw := g.evaluator.Evaluate(ctx, candidate, program, trainset, collector)
			validation := g.evaluator.ValidationScore(ctx, candidate, program, valset)

			rawsMu.Lock()
			raws[candidate.ID] = raw
			rawsMu.Unlock()
			candidate.ValidationScore = validation
		})
	}

	p.Wait()
}

// breed produces population_size offspring from fitness-weighted parent
// sampling, applying crossover then mutation. Elite candidates pass through
// unchanged ahead of bred offspring.
func (g *GeneticEngine) breed(ctx context.Context, population *Population, reflection *ReflectionResult) (offspring []*Candidate, mutations, crossovers int) {
	target := g.config.PopulationSize

	for _, elite := range g.topByFitness(population.Candidates, g.config.ElitismCount) {
		keep := elite.Clone()
		keep.Generation = population.Generation + 1
		offspring = append(offspring, keep)
	}

	for len(offspring) < target {
		parentA := g.sampleParent(population.Candidates)
		parentB := g.sampleParent(population.Candidates)

		child := g.crosser.Crossover(parentA, parentB)
		if len(child.ParentIDs) == 2 {
			crossovers++
		}

		mutated := g.mutator.Mutate(ctx, child, reflection)
		if !sameInstructions(mutated.Instructions, child.Instructions) {
			mutations++
		}
		mutated.Generation = population.Generation + 1
		// Offspring lineage points at the real parents, not the
		// intermediate crossover product.
		mutated.ParentIDs = child.ParentIDs

		offspring = append(offspring, mutated)
	}

	return offspring, mutations, crossovers
}

// sampleParent draws a parent with probability proportional to fitness,
// falling back to uniform sampling when the population has no fitness signal.
func (g *GeneticEngine) sampleParent(candidates []*Candidate) *Candidate {
	total := 0.0
	for _, c := range candidates {
		total += c.Scores.FitnessScore
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if total == 0 {
		return candidates[g.rng.Intn(len(candidates))]
	}

	spin := g.rng.Float64() * total
	cumulative := 0.0
	for _, c := range candidates {
		cumulative += c.Scores.FitnessScore
		if cumulative >= spin {
			return c
		}
	}
	return candidates[len(candidates)-1]
}

func (g *GeneticEngine) topByFitness(candidates []*Candidate, count int) []*Candidate {
	if count <= 0 {
		return nil
	}
	if count > len(candidates) {
		count = len(candidates)
	}
	return truncateByFitness(candidates, count)
}

func sameInstructions(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
