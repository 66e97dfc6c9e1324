package feed

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"reelfeed/models"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultFreshness is how long a ranked feed is served without rebuilding.
const DefaultFreshness = 3 * time.Minute

const guestViewer = "guest"

// CacheKey identifies a feed by viewer and followed set. Follow order and
// duplicates do not change the key.
func CacheKey(viewerID string, following map[string]struct{}) string {
	if viewerID == "" {
		viewerID = guestViewer
	}
	ids := make([]string, 0, len(following))
	for id := range following {
		if id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return viewerID + "|" + strings.Join(ids, ",")
}

// BuildFunc aggregates and ranks a fresh feed.
type BuildFunc func(ctx context.Context) ([]models.CandidateItem, error)

// FetchOutcome describes where a fetched feed came from.
type FetchOutcome struct {
	Entry models.CacheEntry
	// Hit is set when a fresh entry was served without building.
	Hit bool
	// Stale is set when building failed and a previous entry was served.
	Stale bool
}

// FeedCache is a two-tier ranked feed cache: a process map in front of a
// session store. Entries are replaced whole, never edited in place.
type FeedCache struct {
	mu      sync.RWMutex
	entries map[string]models.CacheEntry

	session   SessionStore
	flights   singleflight.Group
	freshness time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

type CacheOption func(*FeedCache)

// WithCacheClock overrides the clock used for freshness and timestamps.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *FeedCache) { c.now = now }
}

// NewFeedCache creates a cache. session may be nil to run memory-only.
func NewFeedCache(session SessionStore, freshness time.Duration, logger *zap.Logger, opts ...CacheOption) *FeedCache {
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	c := &FeedCache{
		entries:   make(map[string]models.CacheEntry),
		session:   session,
		freshness: freshness,
		now:       time.Now,
		logger:    logger.Named("feed.cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *FeedCache) IsFresh(e models.CacheEntry) bool {
	return c.now().Sub(e.UpdatedAt()) < c.freshness
}

// Peek returns the cached feed for vc regardless of age. A memory miss is
// filled from the session store when possible.
func (c *FeedCache) Peek(ctx context.Context, vc models.ViewerContext) (models.CacheEntry, bool) {
	key := CacheKey(vc.ViewerID, vc.FollowingIDs)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return cloneEntry(e), true
	}
	e, ok = c.hydrate(ctx, vc.SessionID, key)
	return cloneEntry(e), ok
}

// cloneEntry copies the item slice so callers never share cached storage.
func cloneEntry(e models.CacheEntry) models.CacheEntry {
	if e.Items != nil {
		e.Items = append([]models.CandidateItem(nil), e.Items...)
	}
	return e
}

func (c *FeedCache) hydrate(ctx context.Context, sessionID, key string) (models.CacheEntry, bool) {
	if c.session == nil {
		return models.CacheEntry{}, false
	}
	raw, ok := c.session.Get(ctx, sessionKey(sessionID, key))
	if !ok {
		return models.CacheEntry{}, false
	}

	var e models.CacheEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil || e.Key != key {
		c.logger.Debug("ignoring unreadable session feed", zap.String("key", key), zap.Error(err))
		return models.CacheEntry{}, false
	}

	c.mu.Lock()
	if cur, exists := c.entries[key]; exists && cur.UpdatedAtEpochMs >= e.UpdatedAtEpochMs {
		e = cur
	} else {
		c.entries[key] = e
	}
	c.mu.Unlock()
	return e, true
}

// Store writes a ranked feed through both tiers.
func (c *FeedCache) Store(ctx context.Context, sessionID, key string, items []models.CandidateItem) models.CacheEntry {
	e := cloneEntry(models.CacheEntry{
		Key:              key,
		Items:            items,
		UpdatedAtEpochMs: c.now().UnixMilli(),
	})

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()

	c.writeSession(ctx, sessionID, e)
	return cloneEntry(e)
}

func (c *FeedCache) writeSession(ctx context.Context, sessionID string, e models.CacheEntry) {
	if c.session == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		c.logger.Warn("failed to encode session feed", zap.String("key", e.Key), zap.Error(err))
		return
	}
	c.session.Set(ctx, sessionKey(sessionID, e.Key), string(data))
}

// Fetch serves a fresh cached feed or builds a new one. Concurrent fetches
// for the same key share a single build. The build is detached from ctx: a
// caller that gives up stops waiting, the build still fills the cache.
func (c *FeedCache) Fetch(ctx context.Context, vc models.ViewerContext, force bool, build BuildFunc) (FetchOutcome, error) {
	if !force {
		if e, ok := c.freshEntry(ctx, vc); ok {
			return FetchOutcome{Entry: e, Hit: true}, nil
		}
	}

	key := CacheKey(vc.ViewerID, vc.FollowingIDs)
	ch := c.flights.DoChan(key, func() (interface{}, error) {
		return c.refresh(context.WithoutCancel(ctx), vc, key, force, build)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return FetchOutcome{}, res.Err
		}
		out := res.Val.(FetchOutcome)
		// The flight stored the build under the leader's session only.
		if res.Shared && !out.Hit && !out.Stale {
			c.writeSession(context.WithoutCancel(ctx), vc.SessionID, out.Entry)
		}
		out.Entry = cloneEntry(out.Entry)
		return out, nil
	case <-ctx.Done():
		return FetchOutcome{}, ctx.Err()
	}
}

func (c *FeedCache) freshEntry(ctx context.Context, vc models.ViewerContext) (models.CacheEntry, bool) {
	e, ok := c.Peek(ctx, vc)
	if !ok || len(e.Items) == 0 || !c.IsFresh(e) {
		return models.CacheEntry{}, false
	}
	return e, true
}

func (c *FeedCache) refresh(ctx context.Context, vc models.ViewerContext, key string, force bool, build BuildFunc) (FetchOutcome, error) {
	// A build that finished just before this flight started already filled the cache.
	if !force {
		if e, ok := c.freshEntry(ctx, vc); ok {
			return FetchOutcome{Entry: e, Hit: true}, nil
		}
	}

	items, err := safeBuild(ctx, build)
	if err != nil {
		if e, ok := c.Peek(ctx, vc); ok {
			c.logger.Warn("feed build failed, serving cached feed",
				zap.String("key", key),
				zap.Time("updatedAt", e.UpdatedAt()),
				zap.Error(err))
			return FetchOutcome{Entry: e, Stale: true}, nil
		}
		return FetchOutcome{}, err
	}

	return FetchOutcome{Entry: c.Store(ctx, vc.SessionID, key, items)}, nil
}

// safeBuild converts a panic during aggregation or ranking into an error.
func safeBuild(ctx context.Context, build BuildFunc) (items []models.CandidateItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("feed build panicked: %v", r)
		}
	}()
	return build(ctx)
}
