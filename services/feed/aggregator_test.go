package feed

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"reelfeed/services/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAggregator(repo *fakeSourceRepo, media storage.MediaResolver) *SourceAggregator {
	a := NewSourceAggregator(repo, media, AggregatorConfig{LookupConcurrency: 2}, zap.NewNop())
	a.now = func() time.Time { return testEpoch }
	return a
}

func TestAggregate_NormalizesBothSources(t *testing.T) {
	repo := newFakeSourceRepo()
	repo.add("performances", "x", "p1", map[string]interface{}{"videoUrl": "https://cdn/p1.mp4"})
	repo.add("performances", "x", "p2", map[string]interface{}{"caption": "no media"})
	repo.add("performances", "y", "p3", map[string]interface{}{"mediaUrl": "https://cdn/p3.mp4"})
	repo.add("publication", "z", "q1", map[string]interface{}{"urlVideo": "https://cdn/q1.mp4"})
	repo.users["x"] = map[string]interface{}{"displayName": "Xavi", "photoURL": "https://cdn/x.png"}
	repo.users["y"] = map[string]interface{}{"username": "yaya"}
	repo.users["z"] = map[string]interface{}{"name": "Zed Club"}

	items, err := newTestAggregator(repo, nil).Aggregate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"perf_p1", "perf_p3", "pub_q1"}, ids(items))
	for _, it := range items {
		assert.NotEmpty(t, it.MediaURL)
	}
	assert.Equal(t, "Xavi", items[0].AuthorName)
	assert.Equal(t, "https://cdn/x.png", items[0].AuthorAvatarURL)
	assert.Equal(t, "yaya", items[1].AuthorName)
	assert.Equal(t, "Zed Club", items[2].AuthorName)
}

func TestAggregate_OneLookupPerAuthor(t *testing.T) {
	repo := newFakeSourceRepo()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		repo.add("performances", "prolific", id, map[string]interface{}{"videoUrl": "https://cdn/" + id})
	}
	repo.add("publication", "prolific", "legacy", map[string]interface{}{"urlVideo": "https://cdn/legacy"})
	repo.add("publication", "other", "o1", map[string]interface{}{"urlVideo": "https://cdn/o1"})
	repo.users["prolific"] = map[string]interface{}{"displayName": "Pro"}

	items, err := newTestAggregator(repo, nil).Aggregate(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 7)

	assert.Equal(t, 1, repo.lookupCount("prolific"))
	assert.Equal(t, 1, repo.lookupCount("other"))
	for _, it := range items {
		if it.AuthorID == "prolific" {
			assert.Equal(t, "Pro", it.AuthorName)
		}
	}
}

func TestAggregate_AuthorFallbacks(t *testing.T) {
	repo := newFakeSourceRepo()
	repo.add("performances", "ghost", "g1", map[string]interface{}{"videoUrl": "https://cdn/g1"})
	repo.add("performances", "flaky", "f1", map[string]interface{}{"videoUrl": "https://cdn/f1"})
	repo.add("publication", "inline", "i1", map[string]interface{}{
		"urlVideo":  "https://cdn/i1",
		"nomAuteur": "Inline Name",
	})
	repo.userErr["flaky"] = errors.New("deadline exceeded")

	items, err := newTestAggregator(repo, nil).Aggregate(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, UnknownCreator, items[0].AuthorName)
	assert.Equal(t, UnknownCreator, items[1].AuthorName)
	assert.Equal(t, "Inline Name", items[2].AuthorName)
	assert.Equal(t, 0, repo.lookupCount("inline"), "inline author fields skip the lookup")
}

func TestAggregate_PartialSourceFailure(t *testing.T) {
	repo := newFakeSourceRepo()
	repo.groupErr["performances"] = errors.New("index missing")
	repo.add("publication", "y", "q1", map[string]interface{}{"urlVideo": "https://cdn/q1"})

	items, err := newTestAggregator(repo, nil).Aggregate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pub_q1"}, ids(items))
}

func TestAggregate_AllSourcesFail(t *testing.T) {
	repo := newFakeSourceRepo()
	repo.groupErr["performances"] = errors.New("unavailable")
	repo.groupErr["publication"] = errors.New("unavailable")

	items, err := newTestAggregator(repo, nil).Aggregate(context.Background())
	assert.Nil(t, items)
	assert.ErrorIs(t, err, ErrAllSourcesFailed)
}

type prefixResolver struct{}

func (prefixResolver) ResolveVideoURL(_ context.Context, ref string) (string, error) {
	if strings.HasPrefix(ref, "broken/") {
		return "", storage.ErrUnresolvable
	}
	return "https://res.example.com/video/" + ref, nil
}

func (prefixResolver) ResolveImageURL(_ context.Context, ref string) (string, error) {
	return "https://res.example.com/image/" + ref, nil
}

func TestAggregate_ResolvesStorageReferences(t *testing.T) {
	repo := newFakeSourceRepo()
	repo.add("performances", "x", "p1", map[string]interface{}{
		"videoUrl":     "clips/p1",
		"thumbnailUrl": "posters/p1",
	})
	repo.add("performances", "x", "p2", map[string]interface{}{"videoUrl": "broken/p2"})

	items, err := newTestAggregator(repo, prefixResolver{}).Aggregate(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://res.example.com/video/clips/p1", items[0].MediaURL)
	assert.Equal(t, "https://res.example.com/image/posters/p1", items[0].ThumbnailURL)

	withoutResolver, err := newTestAggregator(repo, nil).Aggregate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, withoutResolver, "storage references need a resolver")
}
