// Package revolve is a reflective genetic optimizer for language-model
// programs: it evolves the instruction text of a program's pipeline steps
// against a dataset instead of hand-tuning prompts.
//
// Each generation, a population of candidate instruction sets is evaluated
// concurrently, execution traces are collected and diagnosed by a reflection
// model, offspring are bred through guided mutation and crossover, and
// survivors are chosen by multi-objective Pareto selection over answer
// quality, token efficiency, consistency and latency.
//
// Key packages:
//
//   - core: the Program, Predictor, LLM, Dataset and Metric abstractions an
//     application implements to plug into the optimizer.
//
//   - optimizer: the genetic engine itself. Optimizer.Compile runs the full
//     loop and never fails outright; any internal error degrades to a result
//     wrapping the original program.
//
//   - metrics: ready-made evaluation metrics (exact match, normalized exact
//     match, token-overlap F1, weighted blends).
//
//   - datasets: in-memory datasets plus JSON and Parquet QA loaders with
//     local download caching.
//
//   - llms: hosted-provider LLM implementations (Anthropic).
//
//   - history: SQLite persistence for run results and per-generation records.
//
//   - config: YAML run configuration mapped onto optimizer settings.
//
// Example usage:
//
//	cfg := optimizer.DefaultConfig()
//	cfg.GenerationLM = generationModel
//	cfg.ReflectionLM = reflectionModel
//
//	result := optimizer.New(cfg).Compile(ctx, program, trainset, valset, metrics.NormalizedExactMatch)
//	if result.Succeeded() {
//		optimized := result.OptimizedProgram
//		_ = optimized
//	}
package revolve
