package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sengol-ai/question-engine/internal/engine"
	"github.com/sengol-ai/question-engine/internal/model"
)

// CachingSearcher decorates a SimilaritySearcher with the SQLite result
// cache. Cache failures are logged and degrade to the underlying searcher;
// they never fail the search.
type CachingSearcher struct {
	next  engine.SimilaritySearcher
	store *Store
	ttl   time.Duration
}

// NewCachingSearcher wraps next with store. Entries expire after ttl.
func NewCachingSearcher(next engine.SimilaritySearcher, store *Store, ttl time.Duration) *CachingSearcher {
	return &CachingSearcher{next: next, store: store, ttl: ttl}
}

// queryHash keys the cache by query text and limit so a larger fetch is
// never served from a smaller cached result.
func queryHash(query string, limit int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", limit, query)))
	return hex.EncodeToString(sum[:])
}

func (c *CachingSearcher) Search(ctx context.Context, query string, limit int) ([]model.Incident, error) {
	hash := queryHash(query, limit)

	cached, err := c.store.Get(ctx, hash)
	if err != nil {
		zap.L().Warn("search cache read failed", zap.Error(err))
	} else if cached != nil {
		zap.L().Debug("search cache hit", zap.Int("hits", len(cached)))
		return cached, nil
	}

	incidents, err := c.next.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(ctx, hash, query, incidents, c.ttl); err != nil {
		zap.L().Warn("search cache write failed", zap.Error(err))
	}

	return incidents, nil
}
