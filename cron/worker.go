package cron

import (
	"context"
	"fmt"
	"time"

	"reelfeed/models"
	"reelfeed/services/feed"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeFeedWarm = "feed:warm"

// feedWarmUniqueTTL keeps replicas sharing one queue from enqueueing the same
// warm task more than once per window.
const feedWarmUniqueTTL = time.Minute

// FeedWarmPayload selects the feed to warm. The zero value warms the guest feed.
type FeedWarmPayload struct {
	ViewerID  string   `json:"viewerId,omitempty"`
	Following []string `json:"following,omitempty"`
}

// NewFeedWarmTask builds a warm task for the given feed.
func NewFeedWarmTask(p FeedWarmPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeFeedWarm, payload, asynq.MaxRetry(0), asynq.Unique(feedWarmUniqueTTL)), nil
}

// FeedWarmWorker keeps the guest feed fresh by running scheduled warm tasks
// inside this process, where the in-memory feed tier lives.
//
// Every replica runs its own scheduler against the shared queue. Warm tasks
// are unique per window, so only the replica that dequeues one warms its
// memory tier; the others build on their first guest request as usual.
type FeedWarmWorker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	schedule  string
	logger    *zap.Logger
}

func NewFeedWarmWorker(redisOpt asynq.RedisClientOpt, schedule string, feedSvc feed.FeedService, logger *zap.Logger) *FeedWarmWorker {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 1,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	logger = logger.Named("cron.feedwarm")
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeFeedWarm, handleFeedWarmTask(feedSvc, logger))

	return &FeedWarmWorker{
		server:    srv,
		scheduler: asynq.NewScheduler(redisOpt, nil),
		mux:       mux,
		schedule:  schedule,
		logger:    logger,
	}
}

// Start registers the periodic guest warm and starts processing.
func (w *FeedWarmWorker) Start() error {
	task, err := NewFeedWarmTask(FeedWarmPayload{})
	if err != nil {
		return err
	}
	if _, err := w.scheduler.Register(w.schedule, task); err != nil {
		return fmt.Errorf("FeedWarmWorker: register schedule %q: %w", w.schedule, err)
	}
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("FeedWarmWorker: start server: %w", err)
	}
	if err := w.scheduler.Start(); err != nil {
		w.server.Shutdown()
		return fmt.Errorf("FeedWarmWorker: start scheduler: %w", err)
	}
	w.logger.Info("feed warm worker started", zap.String("schedule", w.schedule))
	return nil
}

func (w *FeedWarmWorker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
}

func handleFeedWarmTask(feedSvc feed.FeedService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p FeedWarmPayload
		if len(task.Payload()) > 0 {
			if err := json.Unmarshal(task.Payload(), &p); err != nil {
				logger.Warn("invalid feed warm payload", zap.Error(err))
				return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
			}
		}

		vc := models.NewViewerContext(p.ViewerID, "", p.Following, nil)
		result := feedSvc.Fetch(ctx, vc, false)
		logger.Debug("feed warmed",
			zap.String("viewer", p.ViewerID),
			zap.String("status", string(result.Status)),
			zap.Int("items", len(result.Items)))
		return nil
	}
}
