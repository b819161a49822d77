package engine

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sengol-ai/question-engine/internal/config"
	"github.com/sengol-ai/question-engine/internal/model"
)

// IndustryWeights is the caller-supplied industry signal, one value per
// candidate with a fallback default. The engine treats the values as opaque
// inputs and applies no validation beyond the general [0,1] expectation.
type IndustryWeights struct {
	ByCandidate map[string]float64 `json:"by_candidate,omitempty" yaml:"by_candidate,omitempty"`
	Default     float64            `json:"default" yaml:"default"`
}

// For returns the industry weight for a candidate id.
func (w IndustryWeights) For(candidateID string) float64 {
	if v, ok := w.ByCandidate[candidateID]; ok {
		return v
	}
	return w.Default
}

// Request is one generation run: two candidate pools, a requested intensity,
// industry weights, and optional incident metadata constraints.
type Request struct {
	Risk            []model.Candidate `json:"risk" yaml:"risk"`
	Compliance      []model.Candidate `json:"compliance" yaml:"compliance"`
	Intensity       string            `json:"intensity" yaml:"intensity"`
	IndustryWeights IndustryWeights   `json:"industry_weights" yaml:"industry_weights"`
	Constraints     Constraints       `json:"constraints" yaml:"constraints"`
}

// Pipeline orchestrates a generation run: concurrent evidence retrieval,
// scoring, the two-stage filter, and per-pool ranking. Configuration is
// immutable after construction; a Pipeline is safe for concurrent use.
type Pipeline struct {
	cfg       config.EngineConfig
	formulas  Formulas
	retriever *Retriever
}

// NewPipeline creates a Pipeline over a validated engine configuration and a
// similarity searcher. Retriever options (weight curve, circuit breaker) pass
// through.
func NewPipeline(cfg config.EngineConfig, searcher SimilaritySearcher, opts ...RetrieverOption) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		formulas:  NewFormulas(cfg),
		retriever: NewRetriever(searcher, cfg, opts...),
	}
}

// Generate runs one generation. Risk and compliance pools are scored,
// filtered, ranked, and capped independently; they never share a budget.
// Input errors are raised before any retrieval work begins. A single
// candidate's retrieval failure degrades that candidate only; cancellation
// aborts the whole run and no partial pools are returned.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*model.GenerationResult, error) {
	level, ok := p.cfg.Intensity.Level(req.Intensity)
	if !ok {
		return nil, inputErrorf("intensity", "unknown level %q", req.Intensity)
	}
	if len(req.Risk)+len(req.Compliance) == 0 {
		return nil, inputErrorf("candidates", "at least one candidate is required")
	}
	if err := validateCandidates(req); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	log := zap.L().With(zap.String("run_id", runID), zap.String("intensity", req.Intensity))
	log.Info("engine: starting generation",
		zap.Int("risk_candidates", len(req.Risk)),
		zap.Int("compliance_candidates", len(req.Compliance)),
	)

	var riskScored, complianceScored []model.ScoredQuestion

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scored, err := p.scorePool(gctx, req.Risk, req)
		riskScored = scored
		return err
	})
	g.Go(func() error {
		scored, err := p.scorePool(gctx, req.Compliance, req)
		complianceScored = scored
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &model.GenerationResult{
		RunID:               runID,
		Intensity:           req.Intensity,
		RiskQuestions:       p.filterAndRank(riskScored, level),
		ComplianceQuestions: p.filterAndRank(complianceScored, level),
	}

	log.Info("engine: generation complete",
		zap.Int("risk_questions", len(result.RiskQuestions)),
		zap.Int("compliance_questions", len(result.ComplianceQuestions)),
	)

	return result, nil
}

// validateCandidates enforces the intake contract: pool membership matches
// the declared question type, priorities are from the closed set, and ids are
// unique across the whole run.
func validateCandidates(req Request) error {
	seen := make(map[string]struct{}, len(req.Risk)+len(req.Compliance))

	check := func(cands []model.Candidate, want model.QuestionType) error {
		for _, c := range cands {
			if c.ID == "" {
				return inputErrorf("candidate.id", "empty id in %s pool", want)
			}
			if _, dup := seen[c.ID]; dup {
				return inputErrorf("candidate.id", "duplicate id %q", c.ID)
			}
			seen[c.ID] = struct{}{}
			if !c.QuestionType.Valid() {
				return inputErrorf("candidate.question_type", "unknown type %q for candidate %q", c.QuestionType, c.ID)
			}
			if c.QuestionType != want {
				return inputErrorf("candidate.question_type", "candidate %q has type %q but sits in the %s pool", c.ID, c.QuestionType, want)
			}
			if !c.Priority.Valid() {
				return inputErrorf("candidate.priority", "unknown priority %q for candidate %q", c.Priority, c.ID)
			}
		}
		return nil
	}

	if err := check(req.Risk, model.QuestionTypeRisk); err != nil {
		return err
	}
	return check(req.Compliance, model.QuestionTypeCompliance)
}

// scorePool retrieves evidence and computes final weights for one pool.
// Retrieval fan-out is bounded by retrieval.max_concurrent; results land in a
// pre-sized slice by index, so completion order cannot affect the output.
func (p *Pipeline) scorePool(ctx context.Context, cands []model.Candidate, req Request) ([]model.ScoredQuestion, error) {
	scored := make([]model.ScoredQuestion, len(cands))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Retrieval.MaxConcurrent)

	for i, cand := range cands {
		i, cand := i, cand
		g.Go(func() error {
			ev, err := p.retriever.Retrieve(gctx, cand, req.Constraints)
			degraded := false
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				zap.L().Warn("engine: evidence retrieval failed, degrading candidate",
					zap.String("candidate_id", cand.ID),
					zap.Error(err),
				)
				ev = model.Evidence{}
				degraded = true
			}

			industry := req.IndustryWeights.For(cand.ID)
			scored[i] = model.ScoredQuestion{
				Candidate:           cand,
				EvidenceWeight:      ev.Weight,
				IndustryWeight:      industry,
				FinalWeight:         p.formulas.FinalWeight(cand.QuestionType, cand.BaseWeight, ev.Weight, industry),
				IncidentCount:       ev.Count,
				SupportingIncidents: ev.Incidents,
				Degraded:            degraded,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scored, nil
}

// filterAndRank applies the pre-filter, then the intensity filter, then
// ranking and the intensity cap. The pre-filter runs first because it is
// cheaper and intensity-independent; order does not affect the surviving set.
func (p *Pipeline) filterAndRank(scored []model.ScoredQuestion, level config.IntensityLevel) []model.ScoredQuestion {
	survivors := make([]model.ScoredQuestion, 0, len(scored))
	for _, q := range scored {
		if !PassesPreFilter(p.cfg.PreFilter, q.FinalWeight, q.IncidentCount) {
			continue
		}
		if !PassesIntensity(level, q.FinalWeight, q.Priority) {
			continue
		}
		survivors = append(survivors, q)
	}
	return RankAndCap(survivors, level.MaxQuestions)
}
