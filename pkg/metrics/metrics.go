// Package metrics provides ready-made evaluation metrics for optimization
// runs. All metrics satisfy core.Metric and return values in [0, 1].
package metrics

import (
	"reflect"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/evolvekit/revolve/pkg/core"
)

var foldCaser = cases.Fold()

// canonical lowercases, trims and unicode-normalizes a string so that
// superficially different spellings compare equal.
func canonical(s string) string {
	return foldCaser.String(norm.NFC.String(strings.TrimSpace(s)))
}

// ExactMatch scores 1.0 when every expected field is present and deep-equal in
// the actual outputs.
func ExactMatch(expected, actual map[string]interface{}) float64 {
	for key, expectedValue := range expected {
		actualValue, ok := actual[key]
		if !ok || !reflect.DeepEqual(expectedValue, actualValue) {
			return 0.0
		}
	}
	return 1.0
}

// NormalizedExactMatch compares string fields after case folding, whitespace
// trimming and unicode normalization; non-string fields fall back to deep
// equality.
func NormalizedExactMatch(expected, actual map[string]interface{}) float64 {
	for key, expectedValue := range expected {
		actualValue, ok := actual[key]
		if !ok {
			return 0.0
		}
		expectedStr, eOk := expectedValue.(string)
		actualStr, aOk := actualValue.(string)
		if eOk && aOk {
			if canonical(expectedStr) != canonical(actualStr) {
				return 0.0
			}
			continue
		}
		if !reflect.DeepEqual(expectedValue, actualValue) {
			return 0.0
		}
	}
	return 1.0
}

// F1Score computes the mean token-overlap F1 across all string fields shared
// by expected and actual.
func F1Score(expected, actual map[string]interface{}) float64 {
	var totalF1 float64
	var count int

	for key, expectedValue := range expected {
		actualValue, ok := actual[key]
		if !ok {
			continue
		}
		expectedStr, eOk := expectedValue.(string)
		actualStr, aOk := actualValue.(string)
		if !eOk || !aOk {
			continue
		}

		expectedTokens := strings.Fields(canonical(expectedStr))
		actualTokens := strings.Fields(canonical(actualStr))
		count++

		if len(expectedTokens) == 0 && len(actualTokens) == 0 {
			totalF1 += 1.0
			continue
		}
		if len(expectedTokens) == 0 || len(actualTokens) == 0 {
			continue
		}

		overlap := overlapCount(expectedTokens, actualTokens)
		precision := float64(overlap) / float64(len(actualTokens))
		recall := float64(overlap) / float64(len(expectedTokens))
		if precision+recall > 0 {
			totalF1 += 2 * precision * recall / (precision + recall)
		}
	}

	if count == 0 {
		return 0.0
	}
	return totalF1 / float64(count)
}

func overlapCount(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, token := range a {
		set[token] = true
	}
	overlap := 0
	for _, token := range b {
		if set[token] {
			overlap++
			delete(set, token)
		}
	}
	return overlap
}

// WeightedPart pairs a metric with its blend weight.
type WeightedPart struct {
	Metric core.Metric
	Weight float64
}

// Weighted blends metrics into one. Weights are normalized, so they need not
// sum to one; non-positive weights are ignored.
func Weighted(parts ...WeightedPart) core.Metric {
	return func(expected, actual map[string]interface{}) float64 {
		var total, weightSum float64
		for _, part := range parts {
			if part.Weight <= 0 || part.Metric == nil {
				continue
			}
			total += part.Weight * part.Metric(expected, actual)
			weightSum += part.Weight
		}
		if weightSum == 0 {
			return 0.0
		}
		return total / weightSum
	}
}
