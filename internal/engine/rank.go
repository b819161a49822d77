package engine

import (
	"sort"

	"github.com/sengol-ai/question-engine/internal/model"
)

// RankAndCap orders survivors deterministically and truncates to max entries.
// Sort key: final weight descending, then priority rank descending, then id
// ascending. Candidate ids are unique within a run, so the order is total and
// two runs over the same survivors produce identical output.
func RankAndCap(survivors []model.ScoredQuestion, max int) []model.ScoredQuestion {
	ranked := make([]model.ScoredQuestion, len(survivors))
	copy(ranked, survivors)

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.FinalWeight != b.FinalWeight {
			return a.FinalWeight > b.FinalWeight
		}
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		return a.ID < b.ID
	})

	if max >= 0 && len(ranked) > max {
		ranked = ranked[:max]
	}
	return ranked
}
