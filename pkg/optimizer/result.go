package optimizer

import (
	"github.com/evolvekit/revolve/pkg/core"
)

// Implementation status values reported in result metadata. Callers inspect
// these rather than catching errors: Compile never fails outright.
const (
	StatusComplete      = "Complete Implementation"
	StatusErrorRecovery = "Error Recovery"
)

const recoveryStrategyFallback = "fallback_to_original"

// componentVersions identifies the core components that produced a result.
var componentVersions = map[string]string{
	"genetic_engine":    "1.0.0",
	"reflection_engine": "1.0.0",
	"fitness_evaluator": "1.0.0",
	"pareto_selector":   "1.0.0",
}

// ReflectionInsights is the last generation's reflection, surfaced on the
// result.
type ReflectionInsights struct {
	Diagnosis          string   `json:"diagnosis"`
	Improvements       []string `json:"improvements"`
	Confidence         float64  `json:"confidence"`
	SuggestedMutations []string `json:"suggested_mutations"`
}

// TraceAnalysis summarizes trace volume across the whole run.
type TraceAnalysis struct {
	TotalTraces       int     `json:"total_traces"`
	ExecutionTimespan float64 `json:"execution_timespan"` // seconds
}

// ErrorDetails describes how a failed run was recovered.
type ErrorDetails struct {
	RecoveryStrategy string `json:"recovery_strategy"`
}

// ResultMetadata carries run provenance and, on failure, recovery details.
type ResultMetadata struct {
	ImplementationStatus string              `json:"implementation_status"`
	OptimizationRunID    string              `json:"optimization_run_id"`
	ReflectionInsights   *ReflectionInsights `json:"reflection_insights,omitempty"`
	TraceAnalysis        TraceAnalysis       `json:"trace_analysis"`
	ComponentVersions    map[string]string   `json:"component_versions"`
	ErrorDetails         *ErrorDetails       `json:"error_details,omitempty"`
}

// GenerationRecord is one entry of the per-generation history.
type GenerationRecord struct {
	Generation           int     `json:"generation"`
	FitnessMin           float64 `json:"fitness_min"`
	FitnessMean          float64 `json:"fitness_mean"`
	FitnessMax           float64 `json:"fitness_max"`
	BestValidationScore  float64 `json:"best_validation_score"`
	ReflectionConfidence float64 `json:"reflection_confidence"`
	MutationCount        int     `json:"mutation_count"`
	CrossoverCount       int     `json:"crossover_count"`
	TraceCount           int     `json:"trace_count"`
	DurationSeconds      float64 `json:"duration_seconds"`
}

// RunHistory records what the optimization loop did.
type RunHistory struct {
	Phase             string             `json:"phase"`
	NumGenerations    int                `json:"num_generations"`
	PopulationSize    int                `json:"population_size"`
	GenerationHistory []GenerationRecord `json:"generation_history"`
	MutationRate      float64            `json:"mutation_rate"`
	CrossoverRate     float64            `json:"crossover_rate"`
	SelectionStrategy string             `json:"selection_strategy"`
	EarlyStopReason   string             `json:"early_stop_reason,omitempty"`
	Error             string             `json:"error,omitempty"` // on failure only
}

// OptimizationResult is the tagged outcome of a run. It is produced exactly
// once per run and immutable thereafter.
type OptimizationResult struct {
	OptimizedProgram core.Program       `json:"-"`
	BestScoreValue   float64            `json:"best_score_value"`
	Scores           map[string]float64 `json:"scores"`
	Metadata         ResultMetadata     `json:"metadata"`
	History          RunHistory         `json:"history"`
}

// Succeeded reports whether the run completed without falling back to the
// original program.
func (r *OptimizationResult) Succeeded() bool {
	return r.Metadata.ImplementationStatus == StatusComplete
}

func statsToRecord(stats *GenerationStats) GenerationRecord {
	return GenerationRecord{
		Generation:           stats.Generation,
		FitnessMin:           stats.FitnessMin,
		FitnessMean:          stats.FitnessMean,
		FitnessMax:           stats.FitnessMax,
		BestValidationScore:  stats.BestValidationScore,
		ReflectionConfidence: stats.ReflectionConfidence,
		MutationCount:        stats.MutationCount,
		CrossoverCount:       stats.CrossoverCount,
		TraceCount:           stats.TraceCount,
		DurationSeconds:      stats.Duration.Seconds(),
	}
}
