package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(id string, primary, fitness, tokens, consistency, latency float64) *Candidate {
	return &Candidate{
		ID: id,
		Scores: ScoreVector{
			PrimaryScore:    primary,
			FitnessScore:    fitness,
			TokenEfficiency: tokens,
			Consistency:     consistency,
			Latency:         latency,
		},
	}
}

func TestDominates(t *testing.T) {
	better := ScoreVector{PrimaryScore: 0.9, TokenEfficiency: 0.8, Consistency: 0.8, Latency: 0.8}
	worse := ScoreVector{PrimaryScore: 0.5, TokenEfficiency: 0.8, Consistency: 0.8, Latency: 0.8}
	tradeoff := ScoreVector{PrimaryScore: 0.5, TokenEfficiency: 0.95, Consistency: 0.8, Latency: 0.8}

	assert.True(t, dominates(better, worse))
	assert.False(t, dominates(worse, better))
	assert.False(t, dominates(worse, tradeoff))
	assert.True(t, dominates(tradeoff, worse)) // strictly better on tokens, equal elsewhere
	assert.False(t, dominates(better, better)) // equal vectors never dominate
}

func TestDominanceIgnoresFitnessScore(t *testing.T) {
	a := ScoreVector{PrimaryScore: 0.5, FitnessScore: 0.9, TokenEfficiency: 0.5, Consistency: 0.5, Latency: 0.5}
	b := ScoreVector{PrimaryScore: 0.5, FitnessScore: 0.1, TokenEfficiency: 0.5, Consistency: 0.5, Latency: 0.5}

	assert.False(t, dominates(a, b))
	assert.False(t, dominates(b, a))
}

func TestSelectNeverExceedsTargetSize(t *testing.T) {
	selector := NewParetoSelector(true)
	var pool []*Candidate
	for i := 0; i < 20; i++ {
		pool = append(pool, scored("c", float64(i)/20, float64(i)/20, 0.5, 0.5, 0.5))
	}

	for _, target := range []int{1, 5, 8, 20, 50} {
		survivors := selector.Select(pool, target)
		assert.LessOrEqual(t, len(survivors), target)
		if target <= len(pool) {
			assert.Len(t, survivors, target)
		} else {
			assert.Len(t, survivors, len(pool))
		}
	}
}

func TestSelectPrefersNonDominated(t *testing.T) {
	selector := NewParetoSelector(true)

	dominant := scored("dominant", 0.9, 0.9, 0.9, 0.9, 0.9)
	dominated := scored("dominated", 0.1, 0.1, 0.1, 0.1, 0.1)
	tradeoffA := scored("tradeoffA", 0.8, 0.5, 0.2, 0.5, 0.5)
	tradeoffB := scored("tradeoffB", 0.2, 0.5, 0.95, 0.95, 0.95)

	survivors := selector.Select([]*Candidate{dominated, tradeoffA, dominant, tradeoffB}, 3)

	require.Len(t, survivors, 3)
	ids := make(map[string]bool)
	for _, c := range survivors {
		ids[c.ID] = true
	}
	assert.True(t, ids["dominant"])
	assert.False(t, ids["dominated"])
}

func TestSelectTruncationMode(t *testing.T) {
	selector := NewParetoSelector(false)

	pool := []*Candidate{
		scored("low", 0.9, 0.1, 0.9, 0.9, 0.9),
		scored("high", 0.1, 0.9, 0.1, 0.1, 0.1),
		scored("mid", 0.5, 0.5, 0.5, 0.5, 0.5),
	}

	survivors := selector.Select(pool, 2)

	require.Len(t, survivors, 2)
	assert.Equal(t, "high", survivors[0].ID)
	assert.Equal(t, "mid", survivors[1].ID)
}

func TestSelectSmallPoolReturnsCopy(t *testing.T) {
	selector := NewParetoSelector(true)
	pool := []*Candidate{scored("only", 0.5, 0.5, 0.5, 0.5, 0.5)}

	survivors := selector.Select(pool, 8)

	require.Len(t, survivors, 1)
	survivors[0] = nil
	assert.NotNil(t, pool[0])
}

func TestOverflowFrontLineageTiebreak(t *testing.T) {
	selector := NewParetoSelector(true)

	// Three mutually non-dominated candidates with identical primary score.
	// Two share an ancestor; the third comes from a different line and
	// should win the second slot.
	siblingA := scored("siblingA", 0.5, 0.5, 0.9, 0.5, 0.5)
	siblingA.ParentIDs = []string{"ancestor"}
	siblingB := scored("siblingB", 0.5, 0.5, 0.5, 0.9, 0.5)
	siblingB.ParentIDs = []string{"ancestor"}
	outsider := scored("outsider", 0.5, 0.5, 0.5, 0.5, 0.9)
	outsider.ParentIDs = []string{"elsewhere"}

	survivors := selector.Select([]*Candidate{siblingA, siblingB, outsider}, 2)

	require.Len(t, survivors, 2)
	ids := map[string]bool{survivors[0].ID: true, survivors[1].ID: true}
	assert.True(t, ids["outsider"], "distinct lineage should survive the tiebreak")
}

func TestParetoFrontsLayering(t *testing.T) {
	dominant := scored("dominant", 0.9, 0, 0.9, 0.9, 0.9)
	middle := scored("middle", 0.5, 0, 0.5, 0.5, 0.5)
	weak := scored("weak", 0.1, 0, 0.1, 0.1, 0.1)

	fronts := paretoFronts([]*Candidate{weak, dominant, middle})

	require.Len(t, fronts, 3)
	assert.Equal(t, "dominant", fronts[0][0].ID)
	assert.Equal(t, "middle", fronts[1][0].ID)
	assert.Equal(t, "weak", fronts[2][0].ID)
}

func TestSelectEmptyAndZeroTarget(t *testing.T) {
	selector := NewParetoSelector(true)
	assert.Nil(t, selector.Select(nil, 5))
	assert.Nil(t, selector.Select([]*Candidate{scored("a", 1, 1, 1, 1, 1)}, 0))
}
