package database

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codewiz073-droid/bwami/internal/websearch"
	"github.com/codewiz073-droid/bwami/pkg/utils"
)

// CachedSearcher wraps a live searcher with the Redis evidence cache, so
// verifying the same question twice inside the TTL costs one web search.
type CachedSearcher struct {
	inner  websearch.Searcher
	cache  *Cache
	ttl    time.Duration
	logger *logrus.Logger
}

func NewCachedSearcher(inner websearch.Searcher, cache *Cache, ttl time.Duration, logger *logrus.Logger) *CachedSearcher {
	return &CachedSearcher{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *CachedSearcher) Search(ctx context.Context, query string, maxResults int) ([]websearch.EvidenceDocument, error) {
	key := utils.MD5Hash(query)

	if docs, err := s.cache.GetCachedEvidence(ctx, key); err == nil {
		s.logger.WithField("query", query).Debug("Evidence served from cache")
		if len(docs) > maxResults {
			docs = docs[:maxResults]
		}
		return docs, nil
	}

	docs, err := s.inner.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	if cacheErr := s.cache.CacheEvidence(ctx, key, docs, s.ttl); cacheErr != nil {
		s.logger.WithError(cacheErr).Debug("Failed to cache evidence")
	}
	return docs, nil
}
