package models

import "time"

// CandidateItem is a normalized video post eligible for ranking.
type CandidateItem struct {
	ID              string    `json:"id"`
	Source          string    `json:"source"`
	AuthorID        string    `json:"authorId"`
	AuthorName      string    `json:"authorName"`
	AuthorAvatarURL string    `json:"authorAvatarUrl,omitempty"`
	MediaURL        string    `json:"mediaUrl"`
	ThumbnailURL    string    `json:"thumbnailUrl,omitempty"`
	Caption         string    `json:"caption"`
	LikeCount       int       `json:"likeCount"`
	CommentCount    int       `json:"commentCount"`
	ShareCount      int       `json:"shareCount"`
	CreatedAt       time.Time `json:"createdAt"`
	Hashtags        []string  `json:"hashtags"`
	SourceDocPath   string    `json:"sourceDocPath"`
}

// ScoreBreakdown keeps the individual sub-scores of a ranking pass.
type ScoreBreakdown struct {
	Engagement float64 `json:"engagement"`
	Recency    float64 `json:"recency"`
	Virality   float64 `json:"virality"`
	Diversity  float64 `json:"diversity"`
	Follow     float64 `json:"follow"`
	Jitter     float64 `json:"jitter"`
}

// Total sums every sub-score.
func (b ScoreBreakdown) Total() float64 {
	return b.Engagement + b.Recency + b.Virality + b.Diversity + b.Follow + b.Jitter
}

type ScoredCandidate struct {
	CandidateItem
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// CacheEntry holds a ranked feed. Items are in final serving order.
type CacheEntry struct {
	Key              string          `json:"key"`
	Items            []CandidateItem `json:"items"`
	UpdatedAtEpochMs int64           `json:"updatedAtEpochMs"`
}

// UpdatedAt returns the entry's write time.
func (e CacheEntry) UpdatedAt() time.Time {
	return time.UnixMilli(e.UpdatedAtEpochMs)
}

// ViewerContext is supplied per request and never persisted by the feed.
type ViewerContext struct {
	ViewerID        string
	SessionID       string
	FollowingIDs    map[string]struct{}
	RecentlySeenIDs map[string]struct{}
}

// NewViewerContext builds a context from plain id slices.
func NewViewerContext(viewerID, sessionID string, following, seen []string) ViewerContext {
	return ViewerContext{
		ViewerID:        viewerID,
		SessionID:       sessionID,
		FollowingIDs:    toSet(following),
		RecentlySeenIDs: toSet(seen),
	}
}

func (v ViewerContext) Follows(authorID string) bool {
	_, ok := v.FollowingIDs[authorID]
	return ok
}

func (v ViewerContext) HasSeen(itemID string) bool {
	_, ok := v.RecentlySeenIDs[itemID]
	return ok
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

// AuthorIdentity is the display identity resolved for a creator.
type AuthorIdentity struct {
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// FeedStatus tags a feed response.
type FeedStatus string

const (
	FeedStatusOK       FeedStatus = "ok"
	FeedStatusEmpty    FeedStatus = "empty"
	FeedStatusDegraded FeedStatus = "degraded"
)

// FeedResult is what the feed facade hands to callers.
type FeedResult struct {
	Status    FeedStatus      `json:"status"`
	Items     []CandidateItem `json:"items"`
	UpdatedAt time.Time       `json:"updatedAt,omitempty"`
	FromCache bool            `json:"fromCache"`
}

// RawDocument is a document read from the content store.
// Path is relative to the store root, e.g. users/u1/performances/p1.
type RawDocument struct {
	ID   string
	Path string
	Data map[string]interface{}
}

// SeenRecord stores which videos a viewer has already watched.
type SeenRecord struct {
	ViewerID string    `bson:"viewerId" json:"viewerId"`
	VideoID  string    `bson:"videoId" json:"videoId"`
	SeenAt   time.Time `bson:"seenAt" json:"seenAt"`
}
