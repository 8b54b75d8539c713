package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"truetestify/backend/internal/api" // Import API package
	"truetestify/backend/internal/config"
	"truetestify/backend/internal/queue"
	"truetestify/backend/internal/repository/mongo"
	"truetestify/backend/internal/service"
	"truetestify/backend/internal/storage"
	"truetestify/backend/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @title TrueTestify API
// @version 1.0
// @description API for collecting, moderating and publishing video, audio and text reviews.
// @contact.name API Support
// @contact.email support@example.com
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("FATAL: Could not initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting TrueTestify server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Fatal("Could not load config", zap.Error(err))
	}
	logger.Info("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logger.Fatal("Could not connect to MongoDB", zap.Error(err))
	}
	defer func() {
		logger.Info("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logger.Error("Failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logger.Info("Database connection established.")

	// --- Ensure Indexes ---
	go func() { // Run index creation concurrently/in background
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureBusinessIndexes(ctx, appDB.Collection("businesses"))
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureReviewIndexes(ctx, appDB.Collection("reviews"))
		mongo.EnsureMediaAssetIndexes(ctx, appDB.Collection("media_assets"))
		mongo.EnsureTranscodeJobIndexes(ctx, appDB.Collection("transcode_jobs"))
		mongo.EnsureUploadSessionIndexes(ctx, appDB.Collection("upload_sessions"))
		logger.Info("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	logger.Info("Initializing file storage service...")
	fileStorage, err := storage.NewS3Storage(cfg.S3, logger)
	if err != nil {
		logger.Fatal("Failed to initialize S3 storage", zap.Error(err))
	}

	// --- Initialize Job Queue ---
	logger.Info("Connecting to Redis job queue...")
	jobQueue, err := queue.NewRedisQueue(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer jobQueue.Close()

	// --- Initialize Repositories ---
	businessRepo := mongo.NewMongoBusinessRepository(appDB)
	userRepo := mongo.NewMongoUserRepository(appDB)
	reviewRepo := mongo.NewMongoReviewRepository(appDB)
	assetRepo := mongo.NewMongoMediaAssetRepository(appDB)
	jobRepo := mongo.NewMongoTranscodeJobRepository(appDB)
	sessionRepo := mongo.NewMongoUploadSessionRepository(appDB)

	// --- Initialize Services ---
	authService := service.NewAuthService(userRepo, businessRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	reviewService := service.NewReviewService(businessRepo, reviewRepo, assetRepo, jobRepo, fileStorage, jobQueue, cfg.Upload.MaxSizeBytes, logger)
	uploadService := service.NewUploadService(businessRepo, reviewRepo, assetRepo, jobRepo, sessionRepo, fileStorage, jobQueue, cfg.Upload.MaxSizeBytes, logger)
	feedService := service.NewFeedService(businessRepo, reviewRepo, assetRepo, fileStorage, logger)

	// --- Start Transcode Worker ---
	// The worker pool runs in-process alongside the HTTP server and shares
	// its lifecycle.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	transcodeWorker := worker.New(
		jobQueue, jobRepo, assetRepo, businessRepo,
		worker.NewCopyTranscoder(fileStorage),
		logger, cfg.Worker.Concurrency, cfg.Worker.DequeueTimeout,
	)
	workerDone := make(chan error, 1)
	go func() {
		workerDone <- transcodeWorker.Run(workerCtx)
	}()

	// --- Initialize Gin Engine ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	api.SetupRoutes(router, cfg.JWT.Secret, authService, reviewService, uploadService, feedService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  30 * time.Second, // Media uploads need headroom
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("Server starting", zap.String("address", cfg.Server.Address))

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("ListenAndServe error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	// Stop the worker after the HTTP surface drains; in-flight jobs finish
	// their current dequeue cycle.
	stopWorker()
	select {
	case err := <-workerDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Worker exited with error", zap.Error(err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("Worker did not stop in time")
	}

	logger.Info("Server exiting.")
}
