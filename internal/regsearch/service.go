package regsearch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/veilhq/veil/internal/cache"
)

// Service ties the embedder, the pgvector store, and the optional
// Redis cache into the advisory excerpt-retrieval collaborator used by
// justification generation.
type Service struct {
	embedder *Embedder
	store    *Store
	cache    *cache.ExcerptCache
	minScore float32
	logger   *zap.Logger
}

// NewService creates the search service. cache may be nil.
func NewService(store *Store, excerptCache *cache.ExcerptCache, minScore float32, logger *zap.Logger) *Service {
	return &Service{
		embedder: NewEmbedder(),
		store:    store,
		cache:    excerptCache,
		minScore: minScore,
		logger:   logger,
	}
}

// Search returns the top-N matches for a free-text query.
func (s *Service) Search(ctx context.Context, query string, n int) ([]Match, error) {
	if s.cache != nil {
		var cached []Match
		if hit, err := s.cache.Get(ctx, query, &cached); err == nil && hit {
			return cached, nil
		}
	}

	embedding := s.embedder.Embed(query)
	matches, err := s.store.SearchSimilar(ctx, embedding, &SearchOptions{
		Limit:         n,
		MinSimilarity: s.minScore,
	})
	if err != nil {
		return nil, fmt.Errorf("excerpt search: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, query, matches); err != nil {
			s.logger.Debug("Excerpt cache write failed", zap.Error(err))
		}
	}

	return matches, nil
}

// Excerpts returns the matched excerpt bodies. Satisfies the
// justification context-provider contract; failures are the caller's
// cue to proceed without advisory context.
func (s *Service) Excerpts(ctx context.Context, query string, n int) ([]string, error) {
	matches, err := s.Search(ctx, query, n)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Excerpt.Text)
	}
	return texts, nil
}

// Index embeds and stores one excerpt.
func (s *Service) Index(ctx context.Context, excerpt *Excerpt) error {
	excerpt.Embedding = s.embedder.Embed(excerpt.Text)
	return s.store.Insert(ctx, excerpt)
}
