package optimizer

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/evolvekit/revolve/pkg/core"
	"github.com/evolvekit/revolve/pkg/logging"
)

// MutationEngine perturbs candidate instruction sets, guided by reflection
// output where available and a model paraphrase otherwise. Guided sub-calls
// failing never loses a candidate: slots fall back to verbatim copies.
type MutationEngine struct {
	llm  core.LLM
	rate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMutationEngine creates a mutation engine with the given rate in [0,1].
func NewMutationEngine(llm core.LLM, rate float64, seed int64) *MutationEngine {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MutationEngine{
		llm:  llm,
		rate: rate,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func (m *MutationEngine) roll() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64()
}

// Mutate returns a new candidate derived from the given one. Each instruction
// slot mutates independently with probability equal to the mutation rate:
// a suggested mutation from reflection that applies to the slot wins,
// otherwise the model paraphrases the current instruction, otherwise the slot
// is copied verbatim.
func (m *MutationEngine) Mutate(ctx context.Context, candidate *Candidate, reflection *ReflectionResult) *Candidate {
	logger := logging.GetLogger()

	child := candidate.Clone()
	child.Generation = candidate.Generation + 1

	var suggestions []string
	if reflection != nil {
		suggestions = usableMutations(reflection.SuggestedMutations)
	}
	nextSuggestion := 0

	for i, instruction := range child.Instructions {
		if m.roll() >= m.rate {
			continue
		}

		if nextSuggestion < len(suggestions) {
			child.Instructions[i] = suggestions[nextSuggestion]
			nextSuggestion++
			continue
		}

		paraphrased, err := m.paraphrase(ctx, instruction)
		if err != nil {
			// Identity fallback keeps the slot and the population size intact.
			logger.Debug(ctx, "Paraphrase failed for slot %d, keeping instruction verbatim: %v", i, err)
			continue
		}
		child.Instructions[i] = paraphrased
	}

	return child
}

// usableMutations filters suggested mutations down to entries that can stand
// alone as an instruction. One-or-two-word fragments are advice, not
// replacements.
func usableMutations(suggestions []string) []string {
	var usable []string
	for _, s := range suggestions {
		s = strings.TrimSpace(s)
		if len(strings.Fields(s)) >= 3 {
			usable = append(usable, s)
		}
	}
	return usable
}

func (m *MutationEngine) paraphrase(ctx context.Context, instruction string) (string, error) {
	if m.llm == nil {
		return "", fmt.Errorf("no generation model configured")
	}

	prompt := fmt.Sprintf(`Rephrase the following instruction for a language model pipeline step.
Keep the intent, change the wording, and do not add commentary.

INSTRUCTION: %s

Respond with the rephrased instruction only.`, instruction)

	response, err := m.llm.Generate(ctx, prompt, core.WithTemperature(0.8))
	if err != nil {
		return "", err
	}

	paraphrased := strings.TrimSpace(response.Content)
	paraphrased = strings.Trim(paraphrased, `"`)
	if paraphrased == "" {
		return "", fmt.Errorf("empty paraphrase from model")
	}
	return paraphrased, nil
}

// CrossoverEngine recombines two parents into an offspring candidate.
type CrossoverEngine struct {
	rate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewCrossoverEngine creates a crossover engine with the given rate in [0,1].
func NewCrossoverEngine(rate float64, seed int64) *CrossoverEngine {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &CrossoverEngine{
		rate: rate,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func (c *CrossoverEngine) roll() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Float64()
}

// Crossover combines parents slot by slot. When the crossover roll fails, the
// offspring is a clone of the higher-fitness parent, preserving lineage to a
// single parent.
func (c *CrossoverEngine) Crossover(parentA, parentB *Candidate) *Candidate {
	if c.roll() >= c.rate {
		winner := parentA
		if parentB.Scores.FitnessScore > parentA.Scores.FitnessScore {
			winner = parentB
		}
		child := winner.Clone()
		child.Generation = maxInt(parentA.Generation, parentB.Generation) + 1
		return child
	}

	instructions := make([]string, len(parentA.Instructions))
	for i := range instructions {
		if c.roll() < 0.5 || i >= len(parentB.Instructions) {
			instructions[i] = parentA.Instructions[i]
		} else {
			instructions[i] = parentB.Instructions[i]
		}
	}

	return &Candidate{
		ID:           newCandidateID(),
		Instructions: instructions,
		Generation:   maxInt(parentA.Generation, parentB.Generation) + 1,
		ParentIDs:    []string{parentA.ID, parentB.ID},
		CreatedAt:    time.Now(),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
