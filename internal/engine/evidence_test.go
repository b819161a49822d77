package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sengol-ai/question-engine/internal/model"
	"github.com/sengol-ai/question-engine/internal/resilience"
)

func TestDefaultEvidenceWeight_Bounds(t *testing.T) {
	assert.Equal(t, 0.0, DefaultEvidenceWeight(0, 0.9))
	assert.Equal(t, 0.0, DefaultEvidenceWeight(-1, 0.9))

	for _, count := range []int{1, 3, 10, 100, 1000} {
		for _, sim := range []float64{0.0, 0.3, 0.7, 1.0} {
			w := DefaultEvidenceWeight(count, sim)
			assert.GreaterOrEqual(t, w, 0.0)
			assert.LessOrEqual(t, w, 1.0)
		}
	}
}

func TestDefaultEvidenceWeight_MonotonicInCount(t *testing.T) {
	prev := 0.0
	for count := 1; count <= 50; count++ {
		w := DefaultEvidenceWeight(count, 0.8)
		assert.GreaterOrEqual(t, w, prev, "count=%d", count)
		prev = w
	}
}

func TestDefaultEvidenceWeight_MonotonicInSimilarity(t *testing.T) {
	prev := -1.0
	for sim := 0.0; sim <= 1.0; sim += 0.05 {
		w := DefaultEvidenceWeight(5, sim)
		assert.GreaterOrEqual(t, w, prev)
		prev = w
	}
}

// The curve saturates: going from 20 to 40 incidents moves the weight far
// less than going from 1 to 3, so ten weak matches cannot outrun three
// strong ones disproportionately.
func TestDefaultEvidenceWeight_Saturates(t *testing.T) {
	earlyGain := DefaultEvidenceWeight(3, 0.8) - DefaultEvidenceWeight(1, 0.8)
	lateGain := DefaultEvidenceWeight(40, 0.8) - DefaultEvidenceWeight(20, 0.8)
	assert.Greater(t, earlyGain, lateGain*10)

	threeStrong := DefaultEvidenceWeight(3, 0.9)
	tenWeak := DefaultEvidenceWeight(10, 0.3)
	assert.Greater(t, threeStrong, tenWeak)
}

func TestDefaultEvidenceWeight_Deterministic(t *testing.T) {
	assert.Equal(t, DefaultEvidenceWeight(7, 0.66), DefaultEvidenceWeight(7, 0.66))
}

func TestRetrieve_OversamplesAndTruncates(t *testing.T) {
	scores := make([]float64, 60)
	for i := range scores {
		scores[i] = 0.95 - float64(i)*0.001 // all above threshold, descending
	}
	searcher := &mockSearcher{fn: func(query string, limit int) ([]model.Incident, error) {
		return incidentsWithScores(scores...), nil
	}}

	r := NewRetriever(searcher, testEngineConfig())
	ev, err := r.Retrieve(context.Background(), riskCandidate("q1", model.PriorityHigh, 0.8), Constraints{})
	require.NoError(t, err)

	// 20 incidents per question x fetch multiplier 3.
	require.Len(t, searcher.calls, 1)
	assert.Equal(t, 60, searcher.calls[0].Limit)

	// Truncated to max_evidence_incidents, similarity-descending order kept.
	assert.Equal(t, 15, ev.Count)
	require.Len(t, ev.Incidents, 15)
	for i := 1; i < len(ev.Incidents); i++ {
		assert.LessOrEqual(t, ev.Incidents[i].SimilarityScore, ev.Incidents[i-1].SimilarityScore)
	}
}

func TestRetrieve_SimilarityThreshold(t *testing.T) {
	searcher := &mockSearcher{fn: func(query string, limit int) ([]model.Incident, error) {
		return incidentsWithScores(0.9, 0.8, 0.49, 0.2), nil
	}}

	r := NewRetriever(searcher, testEngineConfig())
	ev, err := r.Retrieve(context.Background(), riskCandidate("q1", model.PriorityHigh, 0.8), Constraints{})
	require.NoError(t, err)

	assert.Equal(t, 2, ev.Count)
	assert.InDelta(t, DefaultEvidenceWeight(2, 0.85), ev.Weight, 1e-9)
}

func TestRetrieve_MetadataConstraints(t *testing.T) {
	searcher := &mockSearcher{fn: func(query string, limit int) ([]model.Incident, error) {
		return []model.Incident{
			{ID: "a", SimilarityScore: 0.9, Metadata: model.IncidentMetadata{Industry: "Healthcare"}},
			{ID: "b", SimilarityScore: 0.85, Metadata: model.IncidentMetadata{Industry: "finance"}},
			{ID: "c", SimilarityScore: 0.8, Metadata: model.IncidentMetadata{Industry: "healthcare", Jurisdiction: "EU"}},
			{ID: "d", SimilarityScore: 0.2, Metadata: model.IncidentMetadata{Industry: "healthcare"}},
		}, nil
	}}

	r := NewRetriever(searcher, testEngineConfig())
	ev, err := r.Retrieve(context.Background(), riskCandidate("q1", model.PriorityHigh, 0.8),
		Constraints{Industry: "healthcare"})
	require.NoError(t, err)

	// b fails the industry constraint, d fails similarity; matching is
	// case-insensitive.
	require.Equal(t, 2, ev.Count)
	assert.Equal(t, "a", ev.Incidents[0].ID)
	assert.Equal(t, "c", ev.Incidents[1].ID)

	ev, err = r.Retrieve(context.Background(), riskCandidate("q1", model.PriorityHigh, 0.8),
		Constraints{Industry: "healthcare", Jurisdiction: "eu"})
	require.NoError(t, err)
	require.Equal(t, 1, ev.Count)
	assert.Equal(t, "c", ev.Incidents[0].ID)
}

func TestRetrieve_EmptyResults(t *testing.T) {
	searcher := &mockSearcher{}

	r := NewRetriever(searcher, testEngineConfig())
	ev, err := r.Retrieve(context.Background(), riskCandidate("q1", model.PriorityHigh, 0.8), Constraints{})
	require.NoError(t, err)

	assert.Equal(t, 0, ev.Count)
	assert.Equal(t, 0.0, ev.Weight)
}

func TestRetrieve_SearchErrorPropagates(t *testing.T) {
	searcher := &mockSearcher{fn: func(query string, limit int) ([]model.Incident, error) {
		return nil, eris.New("qdrant unavailable")
	}}

	r := NewRetriever(searcher, testEngineConfig())
	_, err := r.Retrieve(context.Background(), riskCandidate("q1", model.PriorityHigh, 0.8), Constraints{})
	require.Error(t, err)
}

func TestRetrieve_CustomWeightFn(t *testing.T) {
	searcher := &mockSearcher{fn: func(query string, limit int) ([]model.Incident, error) {
		return incidentsWithScores(0.9, 0.9), nil
	}}

	r := NewRetriever(searcher, testEngineConfig(), WithEvidenceWeightFn(func(count int, meanSim float64) float64 {
		return 0.42
	}))
	ev, err := r.Retrieve(context.Background(), riskCandidate("q1", model.PriorityHigh, 0.8), Constraints{})
	require.NoError(t, err)
	assert.Equal(t, 0.42, ev.Weight)
}

func TestRetrieve_BreakerShortCircuits(t *testing.T) {
	searcher := &mockSearcher{fn: func(query string, limit int) ([]model.Incident, error) {
		return nil, eris.New("down")
	}}

	b := resilience.NewBreaker(resilience.BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Minute})
	r := NewRetriever(searcher, testEngineConfig(), WithBreaker(b))
	cand := riskCandidate("q1", model.PriorityHigh, 0.8)

	_, err := r.Retrieve(context.Background(), cand, Constraints{})
	require.Error(t, err)
	_, err = r.Retrieve(context.Background(), cand, Constraints{})
	require.Error(t, err)

	// Circuit now open: the backend is not called again.
	_, err = r.Retrieve(context.Background(), cand, Constraints{})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 2, searcher.callCount())
}
