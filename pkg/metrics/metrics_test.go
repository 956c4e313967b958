package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExactMatch(t *testing.T) {
	expected := map[string]interface{}{"answer": "4"}

	assert.Equal(t, 1.0, ExactMatch(expected, map[string]interface{}{"answer": "4"}))
	assert.Equal(t, 0.0, ExactMatch(expected, map[string]interface{}{"answer": "5"}))
	assert.Equal(t, 0.0, ExactMatch(expected, map[string]interface{}{}))
	// case differences are mismatches for the strict metric
	assert.Equal(t, 0.0, ExactMatch(map[string]interface{}{"answer": "Paris"}, map[string]interface{}{"answer": "paris"}))
}

func TestNormalizedExactMatch(t *testing.T) {
	expected := map[string]interface{}{"answer": "Paris"}

	assert.Equal(t, 1.0, NormalizedExactMatch(expected, map[string]interface{}{"answer": "paris"}))
	assert.Equal(t, 1.0, NormalizedExactMatch(expected, map[string]interface{}{"answer": "  PARIS "}))
	assert.Equal(t, 0.0, NormalizedExactMatch(expected, map[string]interface{}{"answer": "London"}))
	// non-string fields fall back to deep equality
	assert.Equal(t, 1.0, NormalizedExactMatch(map[string]interface{}{"n": 4}, map[string]interface{}{"n": 4}))
	assert.Equal(t, 0.0, NormalizedExactMatch(map[string]interface{}{"n": 4}, map[string]interface{}{"n": 5}))
}

func TestF1Score(t *testing.T) {
	expected := map[string]interface{}{"answer": "the capital of France"}

	assert.Equal(t, 1.0, F1Score(expected, map[string]interface{}{"answer": "the capital of France"}))
	assert.Equal(t, 0.0, F1Score(expected, map[string]interface{}{"answer": "somewhere else entirely"}))

	partial := F1Score(expected, map[string]interface{}{"answer": "capital of Spain"})
	assert.Greater(t, partial, 0.0)
	assert.Less(t, partial, 1.0)

	// no comparable string fields
	assert.Equal(t, 0.0, F1Score(map[string]interface{}{"n": 4}, map[string]interface{}{"n": 4}))
}

func TestF1ScoreEmptyStrings(t *testing.T) {
	assert.Equal(t, 1.0, F1Score(
		map[string]interface{}{"answer": ""},
		map[string]interface{}{"answer": " "}))
	assert.Equal(t, 0.0, F1Score(
		map[string]interface{}{"answer": "something"},
		map[string]interface{}{"answer": ""}))
}

func TestWeighted(t *testing.T) {
	metric := Weighted(
		WeightedPart{Metric: ExactMatch, Weight: 3},
		WeightedPart{Metric: F1Score, Weight: 1},
	)

	expected := map[string]interface{}{"answer": "red green blue"}
	full := metric(expected, map[string]interface{}{"answer": "red green blue"})
	assert.InDelta(t, 1.0, full, 1e-9)

	// exact match fails, F1 is partial: blended score sits below 0.25
	partial := metric(expected, map[string]interface{}{"answer": "red green yellow"})
	assert.Greater(t, partial, 0.0)
	assert.Less(t, partial, 0.25)

	assert.Equal(t, 0.0, Weighted()(expected, expected))
}
