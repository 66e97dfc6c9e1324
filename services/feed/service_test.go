package feed

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reelfeed/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubAggregator counts calls and can hold them until released.
type stubAggregator struct {
	calls atomic.Int32
	gate  chan struct{}

	mu    sync.Mutex
	items []models.CandidateItem
	err   error
}

func (s *stubAggregator) Aggregate(ctx context.Context) ([]models.CandidateItem, error) {
	s.calls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items, s.err
}

func (s *stubAggregator) set(items []models.CandidateItem, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items, s.err = items, err
}

func newTestService(agg Aggregator, clock *testClock) *DefaultFeedService {
	ranker := NewRanker(WithRandSource(rand.NewSource(1)), WithClock(clock.Now))
	cache := NewFeedCache(newMemorySessionStore(), DefaultFreshness, zap.NewNop(), WithCacheClock(clock.Now))
	return NewDefaultFeedService(agg, ranker, cache, zap.NewNop())
}

func TestFeedService_ConcurrentFetchesShareOneBuild(t *testing.T) {
	agg := &stubAggregator{gate: make(chan struct{})}
	agg.set([]models.CandidateItem{item("a", "x", testEpoch), item("b", "y", testEpoch)}, nil)
	svc := newTestService(agg, newTestClock(testEpoch))
	vc := models.NewViewerContext("v1", "s1", []string{"y"}, nil)

	var wg sync.WaitGroup
	results := make([]models.FeedResult, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Fetch(context.Background(), vc, false)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(agg.gate)
	wg.Wait()

	assert.Equal(t, int32(1), agg.calls.Load())
	for _, r := range results {
		assert.Equal(t, models.FeedStatusOK, r.Status)
		assert.ElementsMatch(t, []string{"a", "b"}, ids(r.Items))
	}
}

func TestFeedService_Statuses(t *testing.T) {
	clock := newTestClock(testEpoch)
	agg := &stubAggregator{}
	svc := newTestService(agg, clock)
	vc := models.NewViewerContext("v1", "", nil, nil)

	agg.set(nil, errors.New("store offline"))
	res := svc.Fetch(context.Background(), vc, false)
	assert.Equal(t, models.FeedStatusDegraded, res.Status)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)

	agg.set([]models.CandidateItem{}, nil)
	res = svc.Fetch(context.Background(), vc, false)
	assert.Equal(t, models.FeedStatusEmpty, res.Status)

	agg.set([]models.CandidateItem{item("a", "x", testEpoch)}, nil)
	res = svc.Fetch(context.Background(), vc, false)
	assert.Equal(t, models.FeedStatusOK, res.Status)
	assert.False(t, res.FromCache)
	assert.Equal(t, testEpoch, res.UpdatedAt.UTC())

	res = svc.Fetch(context.Background(), vc, false)
	assert.Equal(t, models.FeedStatusOK, res.Status)
	assert.True(t, res.FromCache)

	clock.Set(testEpoch.Add(time.Hour))
	agg.set(nil, errors.New("store offline"))
	res = svc.Fetch(context.Background(), vc, true)
	assert.Equal(t, models.FeedStatusDegraded, res.Status)
	assert.True(t, res.FromCache)
	assert.Equal(t, []string{"a"}, ids(res.Items))
}

func TestFeedService_ReadCachedOnly(t *testing.T) {
	agg := &stubAggregator{}
	agg.set([]models.CandidateItem{item("a", "x", testEpoch)}, nil)
	svc := newTestService(agg, newTestClock(testEpoch))
	vc := models.NewViewerContext("", "s1", nil, nil)

	got := svc.ReadCachedOnly(context.Background(), vc)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, int32(0), agg.calls.Load())

	svc.Fetch(context.Background(), vc, false)
	assert.Equal(t, []string{"a"}, ids(svc.ReadCachedOnly(context.Background(), vc)))
	assert.Equal(t, int32(1), agg.calls.Load())
}

func TestFeedService_PrimeCache(t *testing.T) {
	agg := &stubAggregator{}
	agg.set([]models.CandidateItem{item("a", "x", testEpoch)}, nil)
	svc := newTestService(agg, newTestClock(testEpoch))
	vc := models.NewViewerContext("v1", "s1", nil, nil)

	svc.PrimeCache(vc)
	assert.Eventually(t, func() bool {
		return len(svc.ReadCachedOnly(context.Background(), vc)) == 1
	}, time.Second, 10*time.Millisecond)

	res := svc.Fetch(context.Background(), vc, false)
	assert.True(t, res.FromCache)
	assert.Equal(t, int32(1), agg.calls.Load())
}

func TestFeedService_PrimeCacheSwallowsFailures(t *testing.T) {
	agg := &stubAggregator{}
	agg.set(nil, errors.New("store offline"))
	svc := newTestService(agg, newTestClock(testEpoch))

	svc.PrimeCache(models.NewViewerContext("", "", nil, nil))
	assert.Eventually(t, func() bool { return agg.calls.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestFeedService_EndToEnd(t *testing.T) {
	repo := newFakeSourceRepo()
	for _, id := range []string{"x1", "x2", "x3"} {
		repo.add("performances", "X", id, map[string]interface{}{
			"videoUrl":  "https://cdn/" + id + ".mp4",
			"likes":     []interface{}{"u1", "u2", "u3", "u4", "u5"},
			"comments":  2,
			"shares":    0,
			"createdAt": testEpoch.Add(-time.Hour),
		})
	}
	for _, id := range []string{"y1", "y2"} {
		repo.add("publication", "Y", id, map[string]interface{}{
			"urlVideo":        "https://cdn/" + id + ".mp4",
			"partages":        1,
			"datePublication": testEpoch.Add(-200 * time.Hour),
		})
	}
	repo.add("publication", "Y", "broken", map[string]interface{}{"texte": "no video"})

	clock := newTestClock(testEpoch)
	agg := newTestAggregator(repo, nil)
	svc := newTestService(agg, clock)

	vc := models.NewViewerContext("viewer", "s1", []string{"Y"}, []string{"perf_x3"})
	res := svc.Fetch(context.Background(), vc, false)

	require.Equal(t, models.FeedStatusOK, res.Status)
	assert.ElementsMatch(t, []string{"perf_x1", "perf_x2", "pub_y1", "pub_y2"}, ids(res.Items))
	for _, it := range res.Items {
		assert.NotEmpty(t, it.MediaURL)
		assert.Equal(t, UnknownCreator, it.AuthorName)
	}
}

func TestAggregateThenRank_Scenario(t *testing.T) {
	repo := newFakeSourceRepo()
	for _, id := range []string{"x1", "x2", "x3"} {
		repo.add("performances", "X", id, map[string]interface{}{
			"videoUrl":  "https://cdn/" + id + ".mp4",
			"likes":     []interface{}{"u1", "u2", "u3", "u4", "u5"},
			"comments":  2,
			"shares":    0,
			"createdAt": testEpoch.Add(-time.Hour),
		})
	}
	for _, id := range []string{"y1", "y2"} {
		repo.add("publication", "Y", id, map[string]interface{}{
			"urlVideo":        "https://cdn/" + id + ".mp4",
			"partages":        1,
			"datePublication": testEpoch.Add(-200 * time.Hour),
		})
	}

	items, err := newTestAggregator(repo, nil).Aggregate(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 5)

	ranker := NewRanker(WithRandSource(rand.NewSource(42)), WithClock(func() time.Time { return testEpoch }))
	scored := ranker.RankScored(items, models.NewViewerContext("viewer", "", []string{"Y"}, nil))
	require.Len(t, scored, 5)

	for _, s := range scored {
		switch s.AuthorID {
		case "X":
			assert.Equal(t, 5, s.LikeCount)
			assert.Equal(t, 2, s.CommentCount)
			assert.Equal(t, 30.0, s.Breakdown.Recency, s.ID)
			assert.Equal(t, 0.0, s.Breakdown.Follow, s.ID)
		case "Y":
			assert.Equal(t, 1, s.ShareCount)
			assert.Equal(t, 0.0, s.Breakdown.Recency, s.ID)
			assert.Equal(t, float64(followBoost), s.Breakdown.Follow, s.ID)
		default:
			t.Fatalf("unexpected author %q", s.AuthorID)
		}
	}
}

func TestFeedService_CallersCannotEditCachedFeed(t *testing.T) {
	agg := &stubAggregator{}
	agg.set([]models.CandidateItem{item("a", "x", testEpoch)}, nil)
	svc := newTestService(agg, newTestClock(testEpoch))
	vc := models.NewViewerContext("v1", "s1", nil, nil)

	res := svc.Fetch(context.Background(), vc, false)
	require.Len(t, res.Items, 1)
	res.Items[0].ID = "edited"

	got := svc.ReadCachedOnly(context.Background(), vc)
	require.Len(t, got, 1)
	got[0].ID = "edited"

	assert.Equal(t, []string{"a"}, ids(svc.ReadCachedOnly(context.Background(), vc)))
}
