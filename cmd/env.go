package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sengol-ai/question-engine/internal/cache"
	"github.com/sengol-ai/question-engine/internal/engine"
	"github.com/sengol-ai/question-engine/internal/resilience"
	"github.com/sengol-ai/question-engine/internal/search"
	"github.com/sengol-ai/question-engine/pkg/jina"
	"github.com/sengol-ai/question-engine/pkg/qdrant"
)

// env holds the wired generation stack for a command invocation.
type env struct {
	pipeline   *engine.Pipeline
	cacheStore *cache.Store
}

// initEnv builds the searcher stack (embedder, vector store, optional result
// cache) and the pipeline on top of it.
func initEnv(ctx context.Context) (*env, error) {
	jinaOpts := []jina.Option{}
	if cfg.Jina.BaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithBaseURL(cfg.Jina.BaseURL))
	}
	if cfg.Jina.Model != "" {
		jinaOpts = append(jinaOpts, jina.WithModel(cfg.Jina.Model))
	}
	embedder := jina.NewClient(cfg.Jina.Key, jinaOpts...)

	store := qdrant.NewClient(cfg.Qdrant.BaseURL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection,
		qdrant.WithTimeout(time.Duration(cfg.Qdrant.TimeoutSecs)*time.Second))

	var searcher engine.SimilaritySearcher = search.NewTextSearcher(embedder, store,
		search.WithRateLimit(rate.Limit(cfg.Qdrant.RatePerSec), int(cfg.Qdrant.RatePerSec)+1))

	e := &env{}
	if cfg.Cache.Enabled {
		cs, err := cache.NewStore(cfg.Cache.Path)
		if err != nil {
			return nil, eris.Wrap(err, "open search cache")
		}
		if err := cs.Migrate(ctx); err != nil {
			cs.Close()
			return nil, eris.Wrap(err, "migrate search cache")
		}
		e.cacheStore = cs
		searcher = cache.NewCachingSearcher(searcher, cs, time.Duration(cfg.Cache.TTLHours)*time.Hour)
		zap.L().Info("search cache enabled", zap.String("path", cfg.Cache.Path))
	}

	e.pipeline = engine.NewPipeline(cfg.Engine, searcher,
		engine.WithBreaker(resilience.NewBreaker(resilience.BreakerConfig{
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("search circuit state change",
					zap.Stringer("from", from),
					zap.Stringer("to", to))
			},
		})))

	return e, nil
}

func (e *env) Close() {
	if e.cacheStore != nil {
		if err := e.cacheStore.Close(); err != nil {
			zap.L().Warn("close search cache", zap.Error(err))
		}
	}
}
