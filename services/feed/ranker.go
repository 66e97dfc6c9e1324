package feed

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"reelfeed/models"
)

const (
	likeWeight    = 1
	commentWeight = 3
	shareWeight   = 5

	viralityCap         = 50
	followBoost         = 25
	repeatAuthorPenalty = -20
	jitterScale         = 10

	// topSliceRatio is the share of the sorted list kept in score order.
	topSliceRatio = 0.7
	// A discovery item from the shuffled tail follows every minInsertGap to
	// maxInsertGap items of the top slice.
	minInsertGap = 5
	maxInsertGap = 7
)

// Ranker orders candidates for one viewer. It is safe for concurrent use.
type Ranker struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

type RankerOption func(*Ranker)

// WithRandSource makes jitter, shuffling and insertion gaps reproducible.
func WithRandSource(src rand.Source) RankerOption {
	return func(r *Ranker) { r.rng = rand.New(src) } //nolint:gosec // feed shuffling only
}

// WithClock overrides the time used for recency and virality.
func WithClock(now func() time.Time) RankerOption {
	return func(r *Ranker) { r.now = now }
}

func NewRanker(opts ...RankerOption) *Ranker {
	r := &Ranker{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // feed shuffling only
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank returns the serving order of items for the viewer.
func (r *Ranker) Rank(items []models.CandidateItem, vc models.ViewerContext) []models.CandidateItem {
	scored := r.RankScored(items, vc)
	out := make([]models.CandidateItem, len(scored))
	for i, s := range scored {
		out[i] = s.CandidateItem
	}
	return out
}

// RankScored is Rank with the score breakdown of every item kept.
// Authors are marked as placed while items are scored in input order, so the
// repeat-author penalty lands on an author's later input items, whatever
// position they end up in after sorting and interleaving.
func (r *Ranker) RankScored(items []models.CandidateItem, vc models.ViewerContext) []models.ScoredCandidate {
	r.mu.Lock()
	defer r.mu.Unlock()

	candidates := make([]models.CandidateItem, 0, len(items))
	for _, item := range items {
		if vc.HasSeen(item.ID) {
			continue
		}
		candidates = append(candidates, item)
	}

	perAuthor := make(map[string]int, len(candidates))
	for _, item := range candidates {
		perAuthor[item.AuthorID]++
	}

	now := r.now()
	placed := make(map[string]struct{}, len(perAuthor))
	scored := make([]models.ScoredCandidate, 0, len(candidates))
	for _, item := range candidates {
		b := scoreItem(item, now)
		b.Diversity = newcomerBoost(perAuthor[item.AuthorID])
		if _, ok := placed[item.AuthorID]; ok {
			b.Diversity += repeatAuthorPenalty
		}
		placed[item.AuthorID] = struct{}{}
		if vc.Follows(item.AuthorID) {
			b.Follow = followBoost
		}
		b.Jitter = r.rng.Float64() * jitterScale

		scored = append(scored, models.ScoredCandidate{
			CandidateItem: item,
			Score:         b.Total(),
			Breakdown:     b,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	top, tail := splitTopTail(scored)
	r.shuffle(tail)
	return r.interleave(top, tail)
}

// scoreItem computes the viewer-independent sub-scores.
func scoreItem(item models.CandidateItem, now time.Time) models.ScoreBreakdown {
	weighted := float64(item.LikeCount*likeWeight + item.CommentCount*commentWeight + item.ShareCount*shareWeight)
	ageHours := now.Sub(item.CreatedAt).Hours()

	return models.ScoreBreakdown{
		Engagement: math.Log10(weighted+1) * 10,
		Recency:    recencyScore(ageHours),
		Virality:   math.Min(weighted/math.Max(ageHours, 1)*2, viralityCap),
	}
}

func recencyScore(ageHours float64) float64 {
	switch {
	case ageHours < 24:
		return 30
	case ageHours < 72:
		return 20
	case ageHours < 168:
		return 10
	default:
		return 0
	}
}

// newcomerBoost favours creators with few items in the batch.
func newcomerBoost(authorItems int) float64 {
	switch {
	case authorItems == 1:
		return 15
	case authorItems <= 3:
		return 10
	case authorItems <= 5:
		return 5
	default:
		return 0
	}
}

// splitTopTail cuts a score-sorted list at floor(n*0.7). The tail is a copy.
func splitTopTail(sorted []models.ScoredCandidate) (top, tail []models.ScoredCandidate) {
	cut := int(math.Floor(float64(len(sorted)) * topSliceRatio))
	top = sorted[:cut:cut]
	tail = append([]models.ScoredCandidate(nil), sorted[cut:]...)
	return top, tail
}

// shuffle is a Fisher-Yates shuffle.
func (r *Ranker) shuffle(items []models.ScoredCandidate) {
	for i := len(items) - 1; i > 0; i-- {
		j := r.rng.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

func (r *Ranker) nextGap() int {
	return minInsertGap + r.rng.Intn(maxInsertGap-minInsertGap+1)
}

// interleave walks the top slice in order and inserts one tail item after
// every gap top items, drawing a new gap after each insertion.
func (r *Ranker) interleave(top, tail []models.ScoredCandidate) []models.ScoredCandidate {
	out := make([]models.ScoredCandidate, 0, len(top)+len(tail))
	gap := r.nextGap()
	sinceInsert := 0
	for len(top) > 0 && len(tail) > 0 {
		if sinceInsert >= gap {
			out = append(out, tail[0])
			tail = tail[1:]
			sinceInsert = 0
			gap = r.nextGap()
			continue
		}
		out = append(out, top[0])
		top = top[1:]
		sinceInsert++
	}
	out = append(out, top...)
	return append(out, tail...)
}
