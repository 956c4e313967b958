package optimizer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/evolvekit/revolve/internal/testutil"
	"github.com/evolvekit/revolve/pkg/core"
)

func twoSlotCandidate() *Candidate {
	return &Candidate{
		ID:           "parent",
		Instructions: []string{"Answer the question.", "Explain your reasoning."},
		Generation:   3,
	}
}

func TestMutateRateZeroIsIdentity(t *testing.T) {
	engine := NewMutationEngine(&testutil.StubLLM{Response: "rephrased"}, 0.0, 42)
	parent := twoSlotCandidate()

	child := engine.Mutate(context.Background(), parent, nil)

	assert.Equal(t, parent.Instructions, child.Instructions)
	assert.NotEqual(t, parent.ID, child.ID)
	assert.Equal(t, []string{"parent"}, child.ParentIDs)
	assert.Equal(t, 4, child.Generation)
}

func TestMutateRateOneConsumesSuggestionsInOrder(t *testing.T) {
	engine := NewMutationEngine(nil, 1.0, 42)
	parent := twoSlotCandidate()
	reflection := &ReflectionResult{
		SuggestedMutations: []string{
			"State the answer first, then justify it.",
			"Keep reasoning to two sentences at most.",
		},
	}

	child := engine.Mutate(context.Background(), parent, reflection)

	assert.Equal(t, "State the answer first, then justify it.", child.Instructions[0])
	assert.Equal(t, "Keep reasoning to two sentences at most.", child.Instructions[1])
}

func TestMutateShortSuggestionsAreSkipped(t *testing.T) {
	engine := NewMutationEngine(&testutil.StubLLM{Response: "Reworded instruction text here."}, 1.0, 42)
	parent := twoSlotCandidate()
	reflection := &ReflectionResult{SuggestedMutations: []string{"shorter", "be terse"}}

	child := engine.Mutate(context.Background(), parent, reflection)

	// Fragments are not standalone instructions; paraphrase takes over.
	for _, instruction := range child.Instructions {
		assert.NotEqual(t, "shorter", instruction)
		assert.NotEqual(t, "be terse", instruction)
	}
}

func TestMutateParaphraseFailureKeepsSlotVerbatim(t *testing.T) {
	engine := NewMutationEngine(&testutil.StubLLM{Err: fmt.Errorf("rate limited")}, 1.0, 42)
	parent := twoSlotCandidate()

	child := engine.Mutate(context.Background(), parent, nil)

	assert.Equal(t, parent.Instructions, child.Instructions)
	require.Len(t, child.Instructions, len(parent.Instructions))
}

func TestMutateParaphraseUsesModel(t *testing.T) {
	stub := &testutil.StubLLM{Response: "Give the answer and nothing else."}
	engine := NewMutationEngine(stub, 1.0, 42)
	parent := twoSlotCandidate()

	child := engine.Mutate(context.Background(), parent, nil)

	assert.Equal(t, "Give the answer and nothing else.", child.Instructions[0])
	assert.Equal(t, "Give the answer and nothing else.", child.Instructions[1])
	assert.Len(t, stub.Calls(), 2)
}

func TestMutatePassesInstructionToModel(t *testing.T) {
	llm := new(testutil.MockLLM)
	llm.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "Answer the question.")
	}), mock.Anything).Return(&core.LLMResponse{Content: "State the result plainly."}, nil)

	engine := NewMutationEngine(llm, 1.0, 42)
	parent := &Candidate{ID: "parent", Instructions: []string{"Answer the question."}}

	child := engine.Mutate(context.Background(), parent, nil)

	assert.Equal(t, "State the result plainly.", child.Instructions[0])
	llm.AssertExpectations(t)
}

func TestCrossoverFailedRollClonesFitterParent(t *testing.T) {
	// rate 0 means the crossover roll always fails
	engine := NewCrossoverEngine(0.0, 42)
	a := &Candidate{ID: "a", Instructions: []string{"alpha"}, Generation: 2, Scores: ScoreVector{FitnessScore: 0.2}}
	b := &Candidate{ID: "b", Instructions: []string{"beta"}, Generation: 5, Scores: ScoreVector{FitnessScore: 0.9}}

	child := engine.Crossover(a, b)

	assert.Equal(t, []string{"beta"}, child.Instructions)
	assert.Equal(t, []string{"b"}, child.ParentIDs)
	assert.Equal(t, 6, child.Generation)
}

func TestCrossoverUniformSlots(t *testing.T) {
	engine := NewCrossoverEngine(1.0, 42)
	a := &Candidate{ID: "a", Instructions: []string{"a0", "a1", "a2"}}
	b := &Candidate{ID: "b", Instructions: []string{"b0", "b1", "b2"}}

	child := engine.Crossover(a, b)

	require.Len(t, child.Instructions, 3)
	for i, instruction := range child.Instructions {
		assert.Contains(t, []string{a.Instructions[i], b.Instructions[i]}, instruction)
	}
	assert.Equal(t, []string{"a", "b"}, child.ParentIDs)
	assert.NotEqual(t, "a", child.ID)
	assert.NotEqual(t, "b", child.ID)
}

func TestCrossoverMismatchedSlotCountsFallBackToFirstParent(t *testing.T) {
	engine := NewCrossoverEngine(1.0, 42)
	a := &Candidate{ID: "a", Instructions: []string{"a0", "a1", "a2"}}
	b := &Candidate{ID: "b", Instructions: []string{"b0"}}

	child := engine.Crossover(a, b)

	require.Len(t, child.Instructions, 3)
	assert.Equal(t, "a1", child.Instructions[1])
	assert.Equal(t, "a2", child.Instructions[2])
}

func TestCrossoverDeterministicWithSeed(t *testing.T) {
	a := &Candidate{ID: "a", Instructions: []string{"a0", "a1", "a2", "a3"}}
	b := &Candidate{ID: "b", Instructions: []string{"b0", "b1", "b2", "b3"}}

	first := NewCrossoverEngine(1.0, 7).Crossover(a, b)
	second := NewCrossoverEngine(1.0, 7).Crossover(a, b)

	assert.Equal(t, first.Instructions, second.Instructions)
}
