package engine

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/sengol-ai/question-engine/internal/config"
	"github.com/sengol-ai/question-engine/internal/model"
	"github.com/sengol-ai/question-engine/internal/resilience"
)

// SimilaritySearcher is the external similarity-search capability. It returns
// incidents best-match-first; retry behavior is the implementation's own
// contract and the engine adds none of its own.
type SimilaritySearcher interface {
	Search(ctx context.Context, query string, limit int) ([]model.Incident, error)
}

// Constraints are caller-supplied metadata filters applied to retrieved
// incidents after the similarity threshold. Empty fields match everything.
type Constraints struct {
	Industry     string `json:"industry,omitempty" yaml:"industry,omitempty"`
	Jurisdiction string `json:"jurisdiction,omitempty" yaml:"jurisdiction,omitempty"`
}

// Match reports whether the incident satisfies the constraints.
func (c Constraints) Match(in model.Incident) bool {
	if c.Industry != "" && !strings.EqualFold(c.Industry, in.Metadata.Industry) {
		return false
	}
	if c.Jurisdiction != "" && !strings.EqualFold(c.Jurisdiction, in.Metadata.Jurisdiction) {
		return false
	}
	return true
}

// EvidenceWeightFn derives an evidence weight in [0,1] from the surviving
// incident set. Implementations must be deterministic and non-decreasing in
// both count and mean similarity.
type EvidenceWeightFn func(count int, meanSimilarity float64) float64

// DefaultEvidenceWeight is meanSimilarity * (1 - exp(-count/4)): zero with no
// incidents, saturating toward the mean similarity as the count grows. Three
// strong matches outweigh ten weak ones because the similarity term scales
// the whole curve.
func DefaultEvidenceWeight(count int, meanSimilarity float64) float64 {
	if count <= 0 {
		return 0
	}
	return meanSimilarity * (1 - math.Exp(-float64(count)/4))
}

// Retriever fetches and filters supporting incidents for one candidate and
// derives its evidence weight.
type Retriever struct {
	searcher      SimilaritySearcher
	retrieval     config.RetrievalConfig
	minSimilarity float64
	weightFn      EvidenceWeightFn
	breaker       *resilience.Breaker
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithEvidenceWeightFn overrides the default evidence weight curve.
func WithEvidenceWeightFn(fn EvidenceWeightFn) RetrieverOption {
	return func(r *Retriever) {
		r.weightFn = fn
	}
}

// WithBreaker guards search calls with a circuit breaker. When the circuit is
// open, retrieval fails immediately and the candidate takes the degradation
// path instead of waiting on a dead backend.
func WithBreaker(b *resilience.Breaker) RetrieverOption {
	return func(r *Retriever) {
		r.breaker = b
	}
}

// NewRetriever creates a Retriever from validated engine configuration.
func NewRetriever(searcher SimilaritySearcher, cfg config.EngineConfig, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		searcher:      searcher,
		retrieval:     cfg.Retrieval,
		minSimilarity: cfg.PreFilter.MinSimilarity,
		weightFn:      DefaultEvidenceWeight,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve fetches evidence for one candidate. It oversamples the corpus
// (incidents_per_question x fetch_multiplier), drops hits below the
// similarity threshold, then applies the caller's metadata constraints, and
// finally truncates to max_evidence_incidents preserving the searcher's
// similarity-descending order.
//
// Errors are returned to the caller; the pipeline absorbs them into
// per-candidate degradation rather than aborting the batch.
func (r *Retriever) Retrieve(ctx context.Context, cand model.Candidate, cons Constraints) (model.Evidence, error) {
	limit := r.retrieval.IncidentsPerQuestion * r.retrieval.FetchMultiplier

	search := func(ctx context.Context) ([]model.Incident, error) {
		return r.searcher.Search(ctx, cand.QueryText(), limit)
	}

	var hits []model.Incident
	var err error
	if r.breaker != nil {
		hits, err = resilience.ExecuteVal(ctx, r.breaker, search)
	} else {
		hits, err = search(ctx)
	}
	if err != nil {
		return model.Evidence{}, err
	}

	// Similarity threshold first: cheaper than metadata checks and rejects
	// the long tail of the oversampled fetch.
	surviving := hits[:0:0]
	for _, in := range hits {
		if in.SimilarityScore < r.minSimilarity {
			continue
		}
		if !cons.Match(in) {
			continue
		}
		surviving = append(surviving, in)
	}

	if len(surviving) > r.retrieval.MaxEvidenceIncidents {
		surviving = surviving[:r.retrieval.MaxEvidenceIncidents]
	}

	weight := r.weightFn(len(surviving), meanSimilarity(surviving))

	zap.L().Debug("engine: evidence retrieved",
		zap.String("candidate_id", cand.ID),
		zap.Int("fetched", len(hits)),
		zap.Int("surviving", len(surviving)),
		zap.Float64("evidence_weight", weight),
	)

	return model.Evidence{
		Weight:    weight,
		Count:     len(surviving),
		Incidents: surviving,
	}, nil
}

func meanSimilarity(incidents []model.Incident) float64 {
	if len(incidents) == 0 {
		return 0
	}
	var sum float64
	for _, in := range incidents {
		sum += in.SimilarityScore
	}
	return sum / float64(len(incidents))
}
