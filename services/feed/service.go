package feed

import (
	"context"
	"time"

	"reelfeed/models"

	"go.uber.org/zap"
)

// FeedService is the only entry point presentation code uses for the feed.
type FeedService interface {
	// PrimeCache warms the viewer's feed in the background.
	PrimeCache(vc models.ViewerContext)
	// ReadCachedOnly returns whatever feed is cached, fresh or not, without building.
	ReadCachedOnly(ctx context.Context, vc models.ViewerContext) []models.CandidateItem
	// Fetch returns the ranked feed, rebuilding it when stale or forced.
	Fetch(ctx context.Context, vc models.ViewerContext, forceRefresh bool) models.FeedResult
}

// cachedReadTimeout bounds the session store read of ReadCachedOnly.
const cachedReadTimeout = 150 * time.Millisecond

// DefaultFeedService aggregates, ranks and caches feeds.
type DefaultFeedService struct {
	aggregator Aggregator
	ranker     *Ranker
	cache      *FeedCache
	logger     *zap.Logger
}

func NewDefaultFeedService(aggregator Aggregator, ranker *Ranker, cache *FeedCache, logger *zap.Logger) *DefaultFeedService {
	return &DefaultFeedService{
		aggregator: aggregator,
		ranker:     ranker,
		cache:      cache,
		logger:     logger.Named("feed.service"),
	}
}

func (s *DefaultFeedService) build(vc models.ViewerContext) BuildFunc {
	return func(ctx context.Context) ([]models.CandidateItem, error) {
		items, err := s.aggregator.Aggregate(ctx)
		if err != nil {
			return nil, err
		}
		return s.ranker.Rank(items, vc), nil
	}
}

func (s *DefaultFeedService) PrimeCache(vc models.ViewerContext) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("feed prime panicked", zap.Any("panic", r))
			}
		}()
		if _, err := s.cache.Fetch(context.Background(), vc, false, s.build(vc)); err != nil {
			s.logger.Debug("feed prime failed", zap.String("viewer", vc.ViewerID), zap.Error(err))
		}
	}()
}

func (s *DefaultFeedService) ReadCachedOnly(ctx context.Context, vc models.ViewerContext) []models.CandidateItem {
	ctx, cancel := context.WithTimeout(ctx, cachedReadTimeout)
	defer cancel()

	e, ok := s.cache.Peek(ctx, vc)
	if !ok || e.Items == nil {
		return []models.CandidateItem{}
	}
	return e.Items
}

func (s *DefaultFeedService) Fetch(ctx context.Context, vc models.ViewerContext, forceRefresh bool) models.FeedResult {
	out, err := s.cache.Fetch(ctx, vc, forceRefresh, s.build(vc))
	if err != nil {
		s.logger.Warn("feed unavailable", zap.String("viewer", vc.ViewerID), zap.Error(err))
		return models.FeedResult{Status: models.FeedStatusDegraded, Items: []models.CandidateItem{}}
	}

	result := models.FeedResult{
		Status:    models.FeedStatusOK,
		Items:     out.Entry.Items,
		UpdatedAt: out.Entry.UpdatedAt(),
		FromCache: out.Hit || out.Stale,
	}
	if result.Items == nil {
		result.Items = []models.CandidateItem{}
	}
	switch {
	case out.Stale:
		result.Status = models.FeedStatusDegraded
	case len(result.Items) == 0:
		result.Status = models.FeedStatusEmpty
	}
	return result
}
