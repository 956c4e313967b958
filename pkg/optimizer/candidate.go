package optimizer

import (
	"time"

	"github.com/google/uuid"

	"github.com/evolvekit/revolve/pkg/core"
)

// ScoreVector holds the multi-dimensional fitness of a candidate. All
// dimensions are higher-is-better and normalized to [0, 1].
type ScoreVector struct {
	PrimaryScore    float64 `json:"primary_score"`
	FitnessScore    float64 `json:"fitness_score"`
	TokenEfficiency float64 `json:"token_efficiency"`
	Consistency     float64 `json:"consistency"`
	Latency         float64 `json:"latency"`
}

// objectives returns the four dimensions Pareto dominance is computed over.
// FitnessScore stays out: it is the scalar ranking measure, not an objective.
func (s ScoreVector) objectives() [4]float64 {
	return [4]float64{s.PrimaryScore, s.TokenEfficiency, s.Consistency, s.Latency}
}

// Candidate is one evolved instruction-set variant of the program under
// optimization.
type Candidate struct {
	ID              string      `json:"id"`
	Instructions    []string    `json:"instructions"`
	Generation      int         `json:"generation"`
	ParentIDs       []string    `json:"parent_ids"`
	Scores          ScoreVector `json:"scores"`
	ValidationScore float64     `json:"validation_score"`
	Evaluated       bool        `json:"evaluated"`
	EvalDegraded    bool        `json:"eval_degraded"` // failure budget exceeded, flagged for reflection
	CreatedAt       time.Time   `json:"created_at"`
}

// newCandidateID returns a fresh unique candidate id.
func newCandidateID() string {
	return uuid.New().String()
}

// NewBaselineCandidate clones the program's current instructions into a
// generation-0 candidate with no lineage.
func NewBaselineCandidate(program core.Program) *Candidate {
	return &Candidate{
		ID:           newCandidateID(),
		Instructions: core.Instructions(program),
		Generation:   0,
		ParentIDs:    nil,
		CreatedAt:    time.Now(),
	}
}

// Clone copies the candidate under a new id, recording the original as its
// only parent.
func (c *Candidate) Clone() *Candidate {
	instructions := make([]string, len(c.Instructions))
	copy(instructions, c.Instructions)
	return &Candidate{
		ID:           newCandidateID(),
		Instructions: instructions,
		Generation:   c.Generation,
		ParentIDs:    []string{c.ID},
		CreatedAt:    time.Now(),
	}
}

// Population is the set of candidates for one generation.
type Population struct {
	Candidates []*Candidate `json:"candidates"`
	Generation int          `json:"generation"`
}

// Best returns the candidate with the highest primary score, or nil for an
// empty population.
func (p *Population) Best() *Candidate {
	var best *Candidate
	for _, c := range p.Candidates {
		if best == nil || c.Scores.PrimaryScore > best.Scores.PrimaryScore {
			best = c
		}
	}
	return best
}

// Size returns the number of candidates.
func (p *Population) Size() int {
	return len(p.Candidates)
}

// FitnessSummary reports min, mean and max fitness across the population.
func (p *Population) FitnessSummary() (min, mean, max float64) {
	if len(p.Candidates) == 0 {
		return 0, 0, 0
	}
	min = p.Candidates[0].Scores.FitnessScore
	max = min
	sum := 0.0
	for _, c := range p.Candidates {
		f := c.Scores.FitnessScore
		if f < min {
			min = f
		}
		if f > max {
			max = f
		}
		sum += f
	}
	return min, sum / float64(len(p.Candidates)), max
}
