package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/sengol-ai/question-engine/internal/config"
	"github.com/sengol-ai/question-engine/internal/model"
)

// testEngineConfig mirrors the shipped defaults without going through viper.
func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		Risk:       config.FormulaWeights{Base: 0.5, Evidence: 0.3, Industry: 0.2},
		Compliance: config.FormulaWeights{Base: 0.6, Evidence: 0.25, Industry: 0.15},
		PreFilter:  config.PreFilterConfig{MinWeight: 0.3, MinIncidentCount: 1, MinSimilarity: 0.5},
		Intensity: config.IntensityTable{
			High:   config.IntensityLevel{MinWeight: 0, Priorities: []string{"critical", "high", "medium", "low"}, MaxQuestions: 25},
			Medium: config.IntensityLevel{MinWeight: 0.4, Priorities: []string{"critical", "high", "medium"}, MaxQuestions: 15},
			Low:    config.IntensityLevel{MinWeight: 0.6, Priorities: []string{"critical", "high"}, MaxQuestions: 8},
		},
		Retrieval: config.RetrievalConfig{
			IncidentsPerQuestion: 20,
			FetchMultiplier:      3,
			MaxEvidenceIncidents: 15,
			MaxConcurrent:        4,
		},
	}
}

type searchCall struct {
	Query string
	Limit int
}

// mockSearcher is a scriptable SimilaritySearcher that records its calls.
type mockSearcher struct {
	mu    sync.Mutex
	calls []searchCall
	fn    func(query string, limit int) ([]model.Incident, error)
}

func (m *mockSearcher) Search(ctx context.Context, query string, limit int) ([]model.Incident, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.calls = append(m.calls, searchCall{Query: query, Limit: limit})
	m.mu.Unlock()
	if m.fn == nil {
		return nil, nil
	}
	return m.fn(query, limit)
}

func (m *mockSearcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// incidentsWithScores builds incidents best-match-first from the given
// similarity scores.
func incidentsWithScores(scores ...float64) []model.Incident {
	out := make([]model.Incident, len(scores))
	for i, s := range scores {
		out[i] = model.Incident{
			ID:              fmt.Sprintf("inc-%02d", i),
			SimilarityScore: s,
		}
	}
	return out
}

func riskCandidate(id string, priority model.Priority, base float64) model.Candidate {
	return model.Candidate{
		ID:           id,
		QuestionType: model.QuestionTypeRisk,
		Priority:     priority,
		BaseWeight:   base,
		Label:        "risk question " + id,
	}
}

func complianceCandidate(id string, priority model.Priority, base float64) model.Candidate {
	return model.Candidate{
		ID:           id,
		QuestionType: model.QuestionTypeCompliance,
		Priority:     priority,
		BaseWeight:   base,
		Label:        "compliance question " + id,
	}
}
