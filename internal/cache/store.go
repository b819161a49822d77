// Package cache persists similarity search results in SQLite so repeated
// generation runs over the same question bank skip the embedding and vector
// search round trips.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sengol-ai/question-engine/internal/model"
)

// Store is a SQLite-backed cache of search results keyed by query hash.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at the given path and configures WAL mode.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS search_cache (
	id         TEXT PRIMARY KEY,
	query_hash TEXT NOT NULL,
	query_text TEXT NOT NULL,
	hits       TEXT NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_cache_query_hash ON search_cache(query_hash);
CREATE INDEX IF NOT EXISTS idx_search_cache_expires_at ON search_cache(expires_at);
`

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "cache: migrate")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the cached incidents for hash, or nil when absent or expired.
func (s *Store) Get(ctx context.Context, hash string) ([]model.Incident, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT hits FROM search_cache
		 WHERE query_hash = ? AND expires_at > datetime('now')
		 ORDER BY cached_at DESC LIMIT 1`,
		hash,
	)

	var hitsJSON string
	err := row.Scan(&hitsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "cache: get")
	}

	var incidents []model.Incident
	if err := json.Unmarshal([]byte(hitsJSON), &incidents); err != nil {
		return nil, eris.Wrap(err, "cache: unmarshal hits")
	}
	if incidents == nil {
		incidents = []model.Incident{}
	}
	return incidents, nil
}

// Set stores incidents under hash with the given TTL. The query text is kept
// alongside for operator inspection only.
func (s *Store) Set(ctx context.Context, hash, query string, incidents []model.Incident, ttl time.Duration) error {
	if incidents == nil {
		incidents = []model.Incident{}
	}
	hitsJSON, err := json.Marshal(incidents)
	if err != nil {
		return eris.Wrap(err, "cache: marshal hits")
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO search_cache (id, query_hash, query_text, hits, cached_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), hash, query, string(hitsJSON), now, now.Add(ttl),
	)
	return eris.Wrap(err, "cache: set")
}

// PurgeExpired deletes all expired rows and returns the number removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM search_cache WHERE expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "cache: purge expired")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "cache: rows affected")
	}
	return n, nil
}
