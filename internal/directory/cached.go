package directory

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/sellercentry/centry/internal/cache"
	"github.com/sellercentry/centry/pkg/logger"
)

const rowsCacheKey = "directory:rows"

// CachedSource wraps a Source with a short-TTL row cache. It trades a bounded
// staleness window for fewer remote fetches; keep the TTL short so access
// decisions downstream stay close to current directory state.
type CachedSource struct {
	inner Source
	store cache.Store
	ttl   time.Duration
}

// NewCachedSource builds a caching wrapper. A nil store or non-positive TTL
// returns the inner source unchanged.
func NewCachedSource(inner Source, store cache.Store, ttl time.Duration) Source {
	if store == nil || ttl <= 0 {
		return inner
	}
	return &CachedSource{inner: inner, store: store, ttl: ttl}
}

// Rows serves cached rows while fresh, falling through to the inner source.
// Cache failures degrade to direct fetches rather than failing the lookup.
func (s *CachedSource) Rows(ctx context.Context) ([][]string, error) {
	if data, ok, err := s.store.Get(ctx, rowsCacheKey); err == nil && ok {
		var rows [][]string
		if err := json.Unmarshal(data, &rows); err == nil {
			return rows, nil
		}
		_ = s.store.Delete(ctx, rowsCacheKey)
	}

	rows, err := s.inner.Rows(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rows); err == nil {
		if err := s.store.Set(ctx, rowsCacheKey, data, s.ttl); err != nil {
			logger.WithModule("directory").Warn("row cache write failed", zap.Error(err))
		}
	}

	return rows, nil
}
