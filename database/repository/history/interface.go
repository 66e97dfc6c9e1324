package historyRepo

import (
	"context"
	"time"
)

// SeenHistoryRepository records which videos a viewer has watched.
type SeenHistoryRepository interface {
	RecordSeen(ctx context.Context, viewerID string, videoIDs []string, at time.Time) error
	RecentlySeen(ctx context.Context, viewerID string, limit int) ([]string, error)
}
