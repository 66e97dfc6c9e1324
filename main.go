// File: reelfeed/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reelfeed/config"
	"reelfeed/cron"
	"reelfeed/database"
	historyRepo "reelfeed/database/repository/history"
	videoRepo "reelfeed/database/repository/video"
	"reelfeed/handlers"
	"reelfeed/middleware"
	"reelfeed/routes"
	"reelfeed/services/feed"
	"reelfeed/services/storage"
	"reelfeed/services/viewer"
	"reelfeed/utils"

	gcs "cloud.google.com/go/storage"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	cfg := config.AppConfig

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	database.InitDB()
	utils.InitSessionCache()
	utils.FirebaseInit()

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// media resolution.
	media := &storage.ChainResolver{}
	if cfg.CloudinaryURL != "" {
		cld, err := storage.NewCloudinaryResolver(cfg.CloudinaryURL)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to initialize cloudinary resolver: %v", err)
		}
		media.PublicID = cld
	}
	gcsClient, err := gcs.NewClient(rootCtx, option.WithCredentialsFile(cfg.FirebaseCredentialsPath))
	if err != nil {
		logger.Warn("main: bucket media resolution disabled", zap.Error(err))
	} else {
		defer gcsClient.Close()
		media.Bucket = storage.NewGCSResolver(gcsClient, time.Hour)
	}

	// repositories.
	videos := videoRepo.NewFirestoreVideoRepo(utils.FirestoreClient)
	history := historyRepo.NewMongoSeenHistoryRepo(database.Database())

	// services.
	aggregator := feed.NewSourceAggregator(videos, media, feed.AggregatorConfig{
		SourceLimit:       cfg.FeedSourceLimit,
		LookupConcurrency: cfg.FeedAuthorLookupConcurrency,
	}, logger)
	sessionStore := feed.NewRedisSessionStore(utils.GetSessionCacheClient(), cfg.FeedSessionTTL, logger)
	feedCache := feed.NewFeedCache(sessionStore, cfg.FeedFreshness, logger)
	feedService := feed.NewDefaultFeedService(aggregator, feed.NewRanker(), feedCache, logger)
	viewerService := viewer.NewDefaultViewerService(videos, history, cfg.FeedSeenHistoryLimit, logger)

	warmWorker := cron.NewFeedWarmWorker(utils.QueueRedisOpt(), cfg.FeedWarmSchedule, feedService, logger)
	if err := warmWorker.Start(); err != nil {
		logger.Warn("main: feed warm worker not running", zap.Error(err))
	} else {
		defer warmWorker.Shutdown()
	}

	utils.StartHealthMonitor(rootCtx, []*redis.Client{utils.GetSessionCacheClient()}, database.MongoClient)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))

	feedHandler := handlers.NewFeedHandler(feedService, viewerService)
	handlerBundle := &handlers.HandlerBundle{
		ViewerAuth: middleware.FirebaseViewerMiddleware(utils.AuthClient),

		GetFeedHandler:       feedHandler.GetFeedHandler,
		GetCachedFeedHandler: feedHandler.GetCachedFeedHandler,
		PrimeFeedHandler:     feedHandler.PrimeFeedHandler,
		RecordSeenHandler:    feedHandler.RecordSeenHandler,
	}
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	if err := utils.FirestoreClient.Close(); err != nil {
		logger.Warn("main: firestore close failed", zap.Error(err))
	}
	if err := database.Close(ctx); err != nil {
		logger.Warn("main: mongo disconnect failed", zap.Error(err))
	}
	logger.Sugar().Info("main: server stopped gracefully")
}
