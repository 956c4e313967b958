package optimizer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/evolvekit/revolve/pkg/core"
	"github.com/evolvekit/revolve/pkg/logging"
)

// Heuristic thresholds for deterministic suggestions derived from the
// pattern summary. These fire independently of the reflection model.
const (
	maxTokensPerCall      = 1000
	minAvgResponseLength  = 20
	reflectionSampleLimit = 5
)

const emptyTraceDiagnosis = "No traces available for analysis"

// PatternSummary aggregates one generation's traces for reflection.
type PatternSummary struct {
	ModelCallCount    int           `json:"model_call_count"`
	InternalCount     int           `json:"internal_count"`
	TotalTokens       int           `json:"total_tokens"`
	DistinctModels    []string      `json:"distinct_models"`
	AvgResponseLength float64       `json:"avg_response_length"`
	Timespan          time.Duration `json:"timespan"`
}

// TokensPerCall returns mean token usage per model call.
func (s PatternSummary) TokensPerCall() float64 {
	if s.ModelCallCount == 0 {
		return 0
	}
	return float64(s.TotalTokens) / float64(s.ModelCallCount)
}

// ReflectionMetadata records provenance for a reflection result.
type ReflectionMetadata struct {
	Model      string    `json:"model"`
	Timestamp  time.Time `json:"timestamp"`
	TraceCount int       `json:"trace_count"`
}

// ReflectionResult is the structured diagnosis of one generation's traces.
type ReflectionResult struct {
	TraceID            string             `json:"trace_id"`
	Confidence         float64            `json:"confidence"`
	Diagnosis          string             `json:"diagnosis"`
	Improvements       []string           `json:"improvements"`
	SuggestedMutations []string           `json:"suggested_mutations"`
	Metadata           ReflectionMetadata `json:"metadata"`
}

// ReflectionEngine diagnoses execution traces with a reflection language
// model, backed by deterministic rule-based suggestions. It never fails: any
// model error degrades to a low-confidence result.
type ReflectionEngine struct {
	llm core.LLM
}

// NewReflectionEngine creates an engine around the given reflection model.
func NewReflectionEngine(llm core.LLM) *ReflectionEngine {
	return &ReflectionEngine{llm: llm}
}

// ReflectOnTraces produces a structured diagnosis for the generation's traces.
func (e *ReflectionEngine) ReflectOnTraces(ctx context.Context, traces []Trace) *ReflectionResult {
	logger := logging.GetLogger()
	summary := Summarize(traces)

	modelID := ""
	if e.llm != nil {
		modelID = e.llm.ModelID()
	}

	result := &ReflectionResult{
		Improvements:       []string{},
		SuggestedMutations: []string{},
		Metadata: ReflectionMetadata{
			Model:      modelID,
			Timestamp:  time.Now(),
			TraceCount: len(traces),
		},
	}

	if len(traces) == 0 {
		result.Confidence = 0.0
		result.Diagnosis = emptyTraceDiagnosis
		return result
	}
	result.TraceID = traces[0].ID

	heuristics := heuristicSuggestions(summary)

	if e.llm == nil {
		result.Confidence = 0.1
		result.Diagnosis = "no reflection model configured"
		result.Improvements = heuristics
		return result
	}

	prompt := buildReflectionPrompt(summary, traces)
	response, err := e.llm.Generate(ctx, prompt, core.WithTemperature(0.7))
	if err != nil {
		logger.Warn(ctx, "Reflection model call failed, degrading to heuristics: %v", err)
		result.Confidence = 0.1
		result.Diagnosis = fmt.Sprintf("reflection model call failed: %v", err)
		result.Improvements = heuristics
		return result
	}

	parseReflectionResponse(response.Content, result)
	result.Improvements = mergeSuggestions(result.Improvements, heuristics)
	result.Confidence = clamp01(result.Confidence)

	logger.Debug(ctx, "Reflection completed: confidence=%.2f, improvements=%d, mutations=%d",
		result.Confidence, len(result.Improvements), len(result.SuggestedMutations))

	return result
}

// Summarize computes the pattern summary over a set of traces.
func Summarize(traces []Trace) PatternSummary {
	summary := PatternSummary{}
	if len(traces) == 0 {
		return summary
	}

	models := make(map[string]struct{})
	responseLengths := 0
	responseCount := 0
	earliest := traces[0].Timestamp
	latest := earliest

	for _, t := range traces {
		if t.IsModelCall() {
			summary.ModelCallCount++
		} else {
			summary.InternalCount++
		}

		if tokens, ok := numericAttribute(t.Attributes, "tokens"); ok {
			summary.TotalTokens += int(tokens)
		}
		if model, ok := t.Attributes["model"].(string); ok && model != "" {
			models[model] = struct{}{}
		}
		if response, ok := t.Attributes["response"].(string); ok {
			responseLengths += len(response)
			responseCount++
		}
		if t.Timestamp.Before(earliest) {
			earliest = t.Timestamp
		}
		if t.Timestamp.After(latest) {
			latest = t.Timestamp
		}
	}

	for model := range models {
		summary.DistinctModels = append(summary.DistinctModels, model)
	}
	sort.Strings(summary.DistinctModels)

	if responseCount > 0 {
		summary.AvgResponseLength = float64(responseLengths) / float64(responseCount)
	}
	summary.Timespan = latest.Sub(earliest)

	return summary
}

// heuristicSuggestions derives deterministic improvements from the summary,
// independent of the reflection model's own output.
func heuristicSuggestions(summary PatternSummary) []string {
	var suggestions []string
	if summary.TokensPerCall() > maxTokensPerCall {
		suggestions = append(suggestions, "Reduce prompt length: token usage per model call is above budget")
	}
	if len(summary.DistinctModels) > 1 {
		suggestions = append(suggestions, "Standardize on one model: multiple distinct models were used across calls")
	}
	if summary.AvgResponseLength > 0 && summary.AvgResponseLength < minAvgResponseLength {
		suggestions = append(suggestions, "Ask for more detail: average response length is very short")
	}
	return suggestions
}

func buildReflectionPrompt(summary PatternSummary, traces []Trace) string {
	var sample strings.Builder
	limit := len(traces)
	if limit > reflectionSampleLimit {
		limit = reflectionSampleLimit
	}
	for _, t := range traces[:limit] {
		fmt.Fprintf(&sample, "- event=%s attributes=%v\n", t.EventName, t.Attributes)
	}

	return fmt.Sprintf(`You are diagnosing the execution of an LM program pipeline under optimization.

EXECUTION SUMMARY:
- Model calls: %d
- Internal events: %d
- Total tokens: %d
- Distinct models: %s
- Average response length: %.0f chars
- Timespan: %v

SAMPLE TRACES:
%s
Analyze the execution and respond in exactly this format:

DIAGNOSIS:
<one paragraph describing the dominant failure or inefficiency pattern>

IMPROVEMENTS:
- <general improvement 1>
- <general improvement 2>

MUTATIONS:
- <complete replacement instruction text 1>
- <complete replacement instruction text 2>

CONFIDENCE: <0.0-1.0>`,
		summary.ModelCallCount,
		summary.InternalCount,
		summary.TotalTokens,
		strings.Join(summary.DistinctModels, ", "),
		summary.AvgResponseLength,
		summary.Timespan,
		sample.String())
}

// parseReflectionResponse fills result from the model's sectioned answer.
// Unparsable content leaves the defaults in place rather than failing.
func parseReflectionResponse(content string, result *ReflectionResult) {
	result.Confidence = 0.5
	currentSection := ""
	var diagnosis []string

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "DIAGNOSIS:"):
			currentSection = "diagnosis"
			if rest := strings.TrimSpace(strings.TrimPrefix(line, "DIAGNOSIS:")); rest != "" {
				diagnosis = append(diagnosis, rest)
			}
			continue
		case strings.HasPrefix(line, "IMPROVEMENTS:"):
			currentSection = "improvements"
			continue
		case strings.HasPrefix(line, "MUTATIONS:"):
			currentSection = "mutations"
			continue
		case strings.HasPrefix(line, "CONFIDENCE:"):
			currentSection = ""
			confStr := strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:"))
			var conf float64
			if _, err := fmt.Sscanf(confStr, "%f", &conf); err == nil {
				result.Confidence = conf
			}
			continue
		}

		switch currentSection {
		case "diagnosis":
			diagnosis = append(diagnosis, line)
		case "improvements":
			if item := strings.TrimPrefix(line, "- "); item != line {
				result.Improvements = append(result.Improvements, item)
			}
		case "mutations":
			if item := strings.TrimPrefix(line, "- "); item != line {
				result.SuggestedMutations = append(result.SuggestedMutations, item)
			}
		}
	}

	result.Diagnosis = strings.Join(diagnosis, " ")
	if result.Diagnosis == "" {
		result.Diagnosis = strings.TrimSpace(content)
	}
}

// mergeSuggestions appends heuristics not already present, preserving order.
func mergeSuggestions(parsed, heuristics []string) []string {
	seen := make(map[string]struct{}, len(parsed))
	for _, s := range parsed {
		seen[s] = struct{}{}
	}
	merged := parsed
	for _, s := range heuristics {
		if _, dup := seen[s]; !dup {
			merged = append(merged, s)
		}
	}
	return merged
}

func numericAttribute(attrs map[string]interface{}, key string) (float64, bool) {
	switch v := attrs[key].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
