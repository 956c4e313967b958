package optimizer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/evolvekit/revolve/pkg/core"
	"github.com/evolvekit/revolve/pkg/logging"
)

// rawEvaluation holds the per-candidate measurements taken during one
// evaluation pass, before population-relative normalization.
type rawEvaluation struct {
	Scores         []float64
	MeanScore      float64
	ScoreStdDev    float64
	TotalExamples  int
	FailedExamples int
	TotalTokens    int
	MeanLatency    float64 // seconds
}

func (r rawEvaluation) failureFraction() float64 {
	if r.TotalExamples == 0 {
		return 0
	}
	return float64(r.FailedExamples) / float64(r.TotalExamples)
}

// FitnessEvaluator scores candidates against a dataset with a caller-supplied
// metric. A single failing example is scored as worst case for that example
// only; a candidate whose failure fraction exceeds the budget has its fitness
// floored to zero and is flagged for the reflection stage.
type FitnessEvaluator struct {
	metric        core.Metric
	failureBudget float64
}

// NewFitnessEvaluator creates an evaluator for the given metric.
func NewFitnessEvaluator(metric core.Metric, failureBudget float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		metric:        metric,
		failureBudget: failureBudget,
	}
}

// Evaluate runs the candidate's instructions through the program for every
// example, emitting traces to the sink, and returns raw measurements.
func (e *FitnessEvaluator) Evaluate(ctx context.Context, candidate *Candidate, program core.Program, examples []core.Example, sink TraceSink) rawEvaluation {
	logger := logging.GetLogger()
	applied := core.ApplyInstructions(program, candidate.Instructions)

	raw := rawEvaluation{TotalExamples: len(examples)}

	for i, example := range examples {
		start := time.Now()
		outputs, err := applied.Execute(ctx, example.Inputs)
		latency := time.Since(start)

		tokens := estimateTokens(example.Inputs) + estimateTokens(outputs)
		raw.TotalTokens += tokens
		raw.MeanLatency += latency.Seconds()

		record := map[string]interface{}{
			"candidate_id":  candidate.ID,
			"example_index": i,
			"latency_ms":    float64(latency.Microseconds()) / 1000.0,
			"tokens":        tokens,
			"response":      fmt.Sprintf("%v", outputs),
		}

		if err != nil {
			// Worst case for this example only; the batch continues.
			raw.Scores = append(raw.Scores, 0.0)
			raw.FailedExamples++
			record["error"] = err.Error()
			if sink != nil {
				sink.Collect("program.example_failure", record)
			}
			logger.Debug(ctx, "Example %d failed for candidate %s: %v", i, candidate.ID, err)
			continue
		}

		score := clamp01(e.metric(example.Outputs, outputs))
		raw.Scores = append(raw.Scores, score)
		record["score"] = score
		if sink != nil {
			sink.Collect(modelCallNamespace+"predict", record)
		}
	}

	if len(examples) > 0 {
		raw.MeanLatency /= float64(len(examples))
	}
	raw.MeanScore = mean(raw.Scores)
	raw.ScoreStdDev = stddev(raw.Scores)

	if sink != nil {
		sink.Collect("program.evaluation", map[string]interface{}{
			"candidate_id":    candidate.ID,
			"mean_score":      raw.MeanScore,
			"failed_examples": raw.FailedExamples,
			"total_examples":  raw.TotalExamples,
		})
	}

	return raw
}

// ValidationScore computes the mean metric outcome on a validation set,
// without trace emission or failure accounting.
func (e *FitnessEvaluator) ValidationScore(ctx context.Context, candidate *Candidate, program core.Program, examples []core.Example) float64 {
	if len(examples) == 0 {
		return 0
	}
	applied := core.ApplyInstructions(program, candidate.Instructions)

	total := 0.0
	for _, example := range examples {
		outputs, err := applied.Execute(ctx, example.Inputs)
		if err != nil {
			continue
		}
		total += clamp01(e.metric(example.Outputs, outputs))
	}
	return total / float64(len(examples))
}

// Finalize assigns score vectors across a pool using population-relative
// min-max normalization for the secondary objectives: fewer tokens, lower
// latency and lower score variance all normalize toward 1.0. A column that is
// constant across the pool normalizes to 1.0 so uniform populations are not
// penalized.
func (e *FitnessEvaluator) Finalize(candidates []*Candidate, raws map[string]rawEvaluation) {
	tokenLo, tokenHi := math.Inf(1), math.Inf(-1)
	latencyLo, latencyHi := math.Inf(1), math.Inf(-1)
	spreadLo, spreadHi := math.Inf(1), math.Inf(-1)

	for _, c := range candidates {
		raw, ok := raws[c.ID]
		if !ok {
			continue
		}
		tokenLo = math.Min(tokenLo, float64(raw.TotalTokens))
		tokenHi = math.Max(tokenHi, float64(raw.TotalTokens))
		latencyLo = math.Min(latencyLo, raw.MeanLatency)
		latencyHi = math.Max(latencyHi, raw.MeanLatency)
		spreadLo = math.Min(spreadLo, raw.ScoreStdDev)
		spreadHi = math.Max(spreadHi, raw.ScoreStdDev)
	}

	for _, c := range candidates {
		raw, ok := raws[c.ID]
		if !ok {
			continue
		}

		c.Scores.PrimaryScore = raw.MeanScore
		c.Scores.TokenEfficiency = 1 - normalize(float64(raw.TotalTokens), tokenLo, tokenHi)
		c.Scores.Latency = 1 - normalize(raw.MeanLatency, latencyLo, latencyHi)
		c.Scores.Consistency = 1 - normalize(raw.ScoreStdDev, spreadLo, spreadHi)

		if raw.failureFraction() > e.failureBudget {
			c.Scores.FitnessScore = 0
			c.EvalDegraded = true
		} else {
			c.Scores.FitnessScore = raw.MeanScore
			c.EvalDegraded = false
		}
		c.Evaluated = true
	}
}

// normalize maps v into [0,1] relative to [lo,hi]; a degenerate range maps to 0
// so that 1-normalize yields the neutral 1.0.
func normalize(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return (v - lo) / (hi - lo)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// estimateTokens approximates token usage from payload size. Four characters
// per token is the usual rough cut for English text.
func estimateTokens(payload map[string]interface{}) int {
	size := 0
	for k, v := range payload {
		size += len(k) + len(fmt.Sprintf("%v", v))
	}
	return size / 4
}
