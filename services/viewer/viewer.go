package viewer

import (
	"context"
	"errors"
	"time"

	historyRepo "reelfeed/database/repository/history"
	videoRepo "reelfeed/database/repository/video"
	"reelfeed/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// followingField lists who a user follows on users/{uid}.
const followingField = "following"

// ViewerService assembles per-request viewer context and records watch history.
type ViewerService interface {
	BuildContext(ctx context.Context, viewerID, sessionID string) models.ViewerContext
	RecordSeen(ctx context.Context, viewerID string, videoIDs []string) error
}

type DefaultViewerService struct {
	users     videoRepo.VideoSourceRepository
	history   historyRepo.SeenHistoryRepository
	seenLimit int
	logger    *zap.Logger
}

func NewDefaultViewerService(users videoRepo.VideoSourceRepository, history historyRepo.SeenHistoryRepository, seenLimit int, logger *zap.Logger) *DefaultViewerService {
	return &DefaultViewerService{
		users:     users,
		history:   history,
		seenLimit: seenLimit,
		logger:    logger.Named("viewer"),
	}
}

// BuildContext never fails: lookups that error leave the matching set empty.
// Guests get an empty follow set and no history.
func (s *DefaultViewerService) BuildContext(ctx context.Context, viewerID, sessionID string) models.ViewerContext {
	if viewerID == "" {
		return models.NewViewerContext("", sessionID, nil, nil)
	}

	var following, seen []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		following = s.following(gctx, viewerID)
		return nil
	})
	g.Go(func() error {
		ids, err := s.history.RecentlySeen(gctx, viewerID, s.seenLimit)
		if err != nil {
			s.logger.Warn("seen history unavailable", zap.String("viewer", viewerID), zap.Error(err))
			return nil
		}
		seen = ids
		return nil
	})
	_ = g.Wait()

	return models.NewViewerContext(viewerID, sessionID, following, seen)
}

func (s *DefaultViewerService) following(ctx context.Context, viewerID string) []string {
	doc, err := s.users.GetDocument(ctx, "users", viewerID)
	if err != nil {
		if !errors.Is(err, videoRepo.ErrDocumentNotFound) {
			s.logger.Warn("follow graph unavailable", zap.String("viewer", viewerID), zap.Error(err))
		}
		return nil
	}

	var ids []string
	switch raw := doc.Data[followingField].(type) {
	case []interface{}:
		for _, v := range raw {
			if id, ok := v.(string); ok && id != "" {
				ids = append(ids, id)
			}
		}
	case []string:
		ids = append(ids, raw...)
	}
	return ids
}

func (s *DefaultViewerService) RecordSeen(ctx context.Context, viewerID string, videoIDs []string) error {
	return s.history.RecordSeen(ctx, viewerID, videoIDs, time.Now())
}
