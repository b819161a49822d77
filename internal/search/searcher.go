// Package search adapts the embeddings API and the vector store into the
// similarity search interface the scoring engine consumes.
package search

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sengol-ai/question-engine/internal/model"
	"github.com/sengol-ai/question-engine/internal/resilience"
	"github.com/sengol-ai/question-engine/pkg/jina"
	"github.com/sengol-ai/question-engine/pkg/qdrant"
)

// TextSearcher embeds a natural-language query and runs a nearest-neighbor
// search against the incident corpus. It implements engine.SimilaritySearcher.
type TextSearcher struct {
	embedder jina.Client
	store    qdrant.Client
	limiter  *rate.Limiter
	retry    resilience.RetryConfig
}

// Option configures a TextSearcher.
type Option func(*TextSearcher)

// WithRateLimit caps outbound searches at limit requests per second.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(s *TextSearcher) {
		s.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithRetryConfig overrides the retry policy for the embed and search calls.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(s *TextSearcher) {
		s.retry = cfg
	}
}

// NewTextSearcher wires the embedder and the vector store together.
func NewTextSearcher(embedder jina.Client, store qdrant.Client, opts ...Option) *TextSearcher {
	s := &TextSearcher{
		embedder: embedder,
		store:    store,
		limiter:  rate.NewLimiter(10, 10),
		retry:    resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry.OnRetry == nil {
		s.retry.OnRetry = resilience.RetryLogger("search", "query")
	}
	return s
}

// Search embeds query and returns up to limit incidents, best-match-first.
func (s *TextSearcher) Search(ctx context.Context, query string, limit int) ([]model.Incident, error) {
	if query == "" {
		return nil, eris.New("search: empty query")
	}
	if limit <= 0 {
		return nil, eris.Errorf("search: invalid limit %d", limit)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "search: rate limit wait")
	}

	vector, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) ([]float32, error) {
		vectors, err := s.embedder.Embed(ctx, []string{query})
		if err != nil {
			return nil, err
		}
		if len(vectors) != 1 || len(vectors[0]) == 0 {
			return nil, eris.Errorf("search: embedder returned %d vectors for one input", len(vectors))
		}
		return vectors[0], nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "search: embed query")
	}

	points, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) ([]qdrant.ScoredPoint, error) {
		return s.store.Search(ctx, vector, limit)
	})
	if err != nil {
		return nil, eris.Wrap(err, "search: vector search")
	}

	incidents := make([]model.Incident, 0, len(points))
	for _, p := range points {
		incidents = append(incidents, toIncident(p))
	}

	zap.L().Debug("similarity search complete",
		zap.Int("limit", limit),
		zap.Int("hits", len(incidents)))

	return incidents, nil
}

func toIncident(p qdrant.ScoredPoint) model.Incident {
	return model.Incident{
		ID:              string(p.ID),
		SimilarityScore: p.Score,
		Content:         p.Payload.Content,
		Category:        p.Payload.Category,
		Metadata: model.IncidentMetadata{
			Title:        p.Payload.Metadata.Title,
			Severity:     p.Payload.Metadata.Severity,
			Organization: p.Payload.Metadata.Organization,
			IncidentDate: p.Payload.Metadata.IncidentDate,
			Industry:     p.Payload.Metadata.Industry,
			Jurisdiction: p.Payload.Metadata.Jurisdiction,
		},
	}
}
