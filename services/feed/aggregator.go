package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	videoRepo "reelfeed/database/repository/video"
	"reelfeed/models"
	"reelfeed/services/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrAllSourcesFailed is returned when no content source could be read.
var ErrAllSourcesFailed = errors.New("feed: every content source failed")

// Aggregator produces the normalized candidates of one feed build.
type Aggregator interface {
	Aggregate(ctx context.Context) ([]models.CandidateItem, error)
}

type AggregatorConfig struct {
	// SourceLimit caps the documents read per source; 0 reads everything.
	SourceLimit int
	// LookupConcurrency bounds parallel author lookups.
	LookupConcurrency int
	Schemas           []SourceSchema
}

// SourceAggregator reads every configured schema and resolves author identities.
type SourceAggregator struct {
	repo   videoRepo.VideoSourceRepository
	media  storage.MediaResolver
	cfg    AggregatorConfig
	now    func() time.Time
	logger *zap.Logger
}

// NewSourceAggregator wires the aggregator. media may be nil, in which case only
// documents that already carry http(s) URLs become candidates.
func NewSourceAggregator(repo videoRepo.VideoSourceRepository, media storage.MediaResolver, cfg AggregatorConfig, logger *zap.Logger) *SourceAggregator {
	if len(cfg.Schemas) == 0 {
		cfg.Schemas = DefaultSchemas
	}
	if cfg.LookupConcurrency <= 0 {
		cfg.LookupConcurrency = 8
	}
	return &SourceAggregator{
		repo:   repo,
		media:  media,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.Named("feed.aggregator"),
	}
}

func (a *SourceAggregator) Aggregate(ctx context.Context) ([]models.CandidateItem, error) {
	results := make([][]models.CandidateItem, len(a.cfg.Schemas))
	errs := make([]error, len(a.cfg.Schemas))

	var wg sync.WaitGroup
	for i, schema := range a.cfg.Schemas {
		wg.Add(1)
		go func(i int, schema SourceSchema) {
			defer wg.Done()
			items, err := a.readSource(ctx, schema)
			if err != nil {
				a.logger.Warn("source read failed, continuing without it",
					zap.String("source", schema.Name), zap.Error(err))
				errs[i] = err
				return
			}
			results[i] = items
		}(i, schema)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(errs) {
		return nil, fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(errs...))
	}

	var items []models.CandidateItem
	for _, r := range results {
		items = append(items, r...)
	}
	a.resolveAuthors(ctx, items)

	a.logger.Debug("aggregation complete", zap.Int("items", len(items)), zap.Int("failedSources", failed))
	return items, nil
}

func (a *SourceAggregator) readSource(ctx context.Context, schema SourceSchema) ([]models.CandidateItem, error) {
	docs, err := a.repo.ListCollectionGroup(ctx, schema.CollectionGroup, schema.OrderField, a.cfg.SourceLimit)
	if err != nil {
		return nil, err
	}

	now := a.now()
	items := make([]models.CandidateItem, 0, len(docs))
	for _, doc := range docs {
		item, ok := normalize(doc, schema, now)
		if !ok {
			continue
		}
		if !a.resolveMedia(ctx, &item) {
			a.logger.Debug("dropping document without playable media", zap.String("path", doc.Path))
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// resolveMedia turns storage references into URLs. A video that cannot be
// resolved drops the item; a thumbnail that cannot be resolved is cleared.
func (a *SourceAggregator) resolveMedia(ctx context.Context, item *models.CandidateItem) bool {
	if !storage.IsPlayableURL(item.MediaURL) {
		if a.media == nil {
			return false
		}
		url, err := a.media.ResolveVideoURL(ctx, item.MediaURL)
		if err != nil || url == "" {
			return false
		}
		item.MediaURL = url
	}
	item.ThumbnailURL = a.resolveImage(ctx, item.ThumbnailURL)
	return true
}

func (a *SourceAggregator) resolveImage(ctx context.Context, ref string) string {
	if ref == "" || storage.IsPlayableURL(ref) {
		return ref
	}
	if a.media == nil {
		return ""
	}
	url, err := a.media.ResolveImageURL(ctx, ref)
	if err != nil {
		return ""
	}
	return url
}

// authorCall is one shared author lookup; done closes once identity is set.
type authorCall struct {
	done     chan struct{}
	identity models.AuthorIdentity
	found    bool
}

// authorMemo deduplicates author lookups within a single aggregation pass.
type authorMemo struct {
	mu     sync.Mutex
	calls  map[string]*authorCall
	group  *errgroup.Group
	ctx    context.Context
	lookup func(ctx context.Context, authorID string) (models.AuthorIdentity, bool)
}

func (m *authorMemo) resolve(authorID string) *authorCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if call, ok := m.calls[authorID]; ok {
		return call
	}
	call := &authorCall{done: make(chan struct{})}
	m.calls[authorID] = call
	m.group.Go(func() error {
		defer close(call.done)
		call.identity, call.found = m.lookup(m.ctx, authorID)
		return nil
	})
	return call
}

// resolveAuthors backfills identity on items without inline author fields.
// Every lookup finishes before it returns.
func (a *SourceAggregator) resolveAuthors(ctx context.Context, items []models.CandidateItem) {
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(a.cfg.LookupConcurrency)
	memo := &authorMemo{
		calls:  make(map[string]*authorCall),
		group:  group,
		ctx:    gctx,
		lookup: a.lookupAuthor,
	}

	pending := make(map[int]*authorCall)
	for i := range items {
		if items[i].AuthorName != "" {
			continue
		}
		pending[i] = memo.resolve(items[i].AuthorID)
	}
	_ = group.Wait()

	for i, call := range pending {
		<-call.done
		if call.found && call.identity.DisplayName != "" {
			items[i].AuthorName = call.identity.DisplayName
		} else {
			items[i].AuthorName = UnknownCreator
		}
		if items[i].AuthorAvatarURL == "" {
			items[i].AuthorAvatarURL = call.identity.AvatarURL
		}
	}
}

func (a *SourceAggregator) lookupAuthor(ctx context.Context, authorID string) (models.AuthorIdentity, bool) {
	doc, err := a.repo.GetDocument(ctx, AuthorSchema.Collection, authorID)
	if err != nil {
		if errors.Is(err, videoRepo.ErrDocumentNotFound) {
			a.logger.Debug("author not found", zap.String("authorId", authorID))
		} else {
			a.logger.Warn("author lookup failed", zap.String("authorId", authorID), zap.Error(err))
		}
		return models.AuthorIdentity{}, false
	}
	return models.AuthorIdentity{
		DisplayName: firstString(doc.Data, AuthorSchema.NameFields),
		AvatarURL:   a.resolveImage(ctx, firstString(doc.Data, AuthorSchema.AvatarFields)),
	}, true
}
