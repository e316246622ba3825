package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"wardrobeapi/controllers"
	"wardrobeapi/dbhelper"
	"wardrobeapi/services"
	"wardrobeapi/session"
	"wardrobeapi/tasks"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		panic(err)
	}
	cfg := services.LoadConfig()
	logger := services.NewLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal(err)
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Env,
		Release:          cfg.Release,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		logger.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Recover()
	defer sentry.Flush(2 * time.Second)

	ctx := context.Background()
	db := dbhelper.SetupDB()

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GoogleAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		logger.Fatalf("error initializing genai client: %v", err)
	}
	llm := services.NewGoogleLLMProcessor(genaiClient, logger)
	llm.ExtractModel = services.ParseLLMModelName(services.GetEnv("EXTRACT_MODEL", ""), llm.ExtractModel)
	llm.RenderModel = services.ParseLLMModelName(services.GetEnv("RENDER_MODEL", ""), llm.RenderModel)
	llm.RecommendModel = services.ParseLLMModelName(services.GetEnv("RECOMMEND_MODEL", ""), llm.RecommendModel)

	var store session.SnapshotStore
	switch cfg.StorageBackend {
	case services.StoragePostgres:
		store = services.NewPostgresSnapshotStore(db)
	default:
		app, err := firebase.NewApp(ctx, nil)
		if err != nil {
			logger.Fatalf("error initializing firebase app: %v", err)
		}
		firestoreStore, err := services.NewFirestoreSnapshotStore(ctx, app)
		if err != nil {
			logger.Fatal(err)
		}
		defer firestoreStore.Close()
		store = firestoreStore
	}
	logger.WithField("backend", cfg.StorageBackend).Info("Snapshot store ready")

	images := services.NewImageProcessor()
	sessions := session.NewManager(session.Collaborators{
		Extractor:   llm,
		Renderer:    llm,
		Recommender: llm,
		Cropper:     images,
		Store:       store,
	}, session.Options{
		SyncDebounce:   cfg.SyncDebounce,
		RenderDebounce: cfg.RenderDebounce,
		RenderTimeout:  cfg.RenderTimeout,
		IdleTimeout:    cfg.SessionIdle,
		Logger:         logger,
	})
	evictionCtx, stopEviction := context.WithCancel(ctx)
	go sessions.RunEviction(evictionCtx, time.Minute)

	asynqClient := tasks.NewClient(cfg.BrokerAddress)
	defer asynqClient.Close()

	awsService := &services.AWSService{}
	urlCache, err := services.NewURLCacheService(awsService, cfg.R2BucketName, logger)
	if err != nil {
		logger.Fatal("Failed to initialize URL cache service")
	}

	e := controllers.SetupServer(controllers.ServerDeps{
		DB:         db,
		Google:     services.GoogleService{},
		AWSService: awsService,
		URLCache:   urlCache,
		Sessions:   sessions,
		Tasks:      asynqClient,
		Images:     images,
		Config:     cfg,
		Logger:     logger,
	})
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimit))))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down, flushing sessions")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
	stopEviction()
	sessions.Shutdown()
}
