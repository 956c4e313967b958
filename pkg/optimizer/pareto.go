package optimizer

import (
	"sort"
)

// ParetoSelector reduces a scored pool to the next generation. With Pareto
// selection enabled it layers the pool into non-dominated fronts; otherwise
// it truncates by fitness score.
type ParetoSelector struct {
	usePareto bool
}

// NewParetoSelector creates a selector. When usePareto is false, selection
// degrades to plain fitness-descending truncation.
func NewParetoSelector(usePareto bool) *ParetoSelector {
	return &ParetoSelector{usePareto: usePareto}
}

// dominates reports whether a dominates b: at least as good on every
// objective and strictly better on at least one.
func dominates(a, b ScoreVector) bool {
	ao, bo := a.objectives(), b.objectives()
	strictlyBetter := false
	for i := range ao {
		if ao[i] < bo[i] {
			return false
		}
		if ao[i] > bo[i] {
			strictlyBetter = true
		}
	}
	return strictlyBetter
}

// Select reduces candidates to at most targetSize survivors.
func (s *ParetoSelector) Select(candidates []*Candidate, targetSize int) []*Candidate {
	if targetSize <= 0 || len(candidates) == 0 {
		return nil
	}
	if len(candidates) <= targetSize {
		out := make([]*Candidate, len(candidates))
		copy(out, candidates)
		return out
	}

	if !s.usePareto {
		return truncateByFitness(candidates, targetSize)
	}

	fronts := paretoFronts(candidates)

	selected := make([]*Candidate, 0, targetSize)
	for _, front := range fronts {
		if len(selected)+len(front) <= targetSize {
			selected = append(selected, front...)
			continue
		}
		// This front overflows the target: order by primary score with a
		// lineage-diversity tiebreak against already-selected survivors.
		selected = append(selected, pickFromOverflowFront(front, selected, targetSize-len(selected))...)
		break
	}

	return selected
}

// paretoFronts layers candidates into successive non-dominated fronts.
func paretoFronts(candidates []*Candidate) [][]*Candidate {
	remaining := make([]*Candidate, len(candidates))
	copy(remaining, candidates)

	var fronts [][]*Candidate
	for len(remaining) > 0 {
		var front, rest []*Candidate
		for _, c := range remaining {
			dominated := false
			for _, other := range remaining {
				if other != c && dominates(other.Scores, c.Scores) {
					dominated = true
					break
				}
			}
			if dominated {
				rest = append(rest, c)
			} else {
				front = append(front, c)
			}
		}
		if len(front) == 0 {
			// Cannot happen with a strict dominance relation, but guard
			// against a stall rather than loop forever.
			front = rest[:1]
			rest = rest[1:]
		}
		fronts = append(fronts, front)
		remaining = rest
	}
	return fronts
}

// pickFromOverflowFront selects count candidates from a front, ordering by
// primary score descending and preferring candidates whose parents differ
// from the parents of already-selected survivors. The lineage preference
// resists premature convergence on one ancestral line.
func pickFromOverflowFront(front, alreadySelected []*Candidate, count int) []*Candidate {
	seenParents := make(map[string]struct{})
	for _, c := range alreadySelected {
		for _, p := range c.ParentIDs {
			seenParents[p] = struct{}{}
		}
	}

	pool := make([]*Candidate, len(front))
	copy(pool, front)

	var picked []*Candidate
	for len(picked) < count && len(pool) > 0 {
		sort.SliceStable(pool, func(i, j int) bool {
			pi, pj := pool[i].Scores.PrimaryScore, pool[j].Scores.PrimaryScore
			if pi != pj {
				return pi > pj
			}
			return lineageNovelty(pool[i], seenParents) > lineageNovelty(pool[j], seenParents)
		})

		chosen := pool[0]
		pool = pool[1:]
		picked = append(picked, chosen)
		for _, p := range chosen.ParentIDs {
			seenParents[p] = struct{}{}
		}
	}
	return picked
}

// lineageNovelty counts how many of the candidate's parents are unseen among
// survivors. Parentless (baseline) candidates count as one novel line.
func lineageNovelty(c *Candidate, seenParents map[string]struct{}) int {
	if len(c.ParentIDs) == 0 {
		return 1
	}
	novel := 0
	for _, p := range c.ParentIDs {
		if _, seen := seenParents[p]; !seen {
			novel++
		}
	}
	return novel
}

func truncateByFitness(candidates []*Candidate, targetSize int) []*Candidate {
	sorted := make([]*Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Scores.FitnessScore > sorted[j].Scores.FitnessScore
	})
	return sorted[:targetSize]
}
