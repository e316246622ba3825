package main

import (
	"context"
	"errors"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"wardrobeapi/dbhelper"
	"wardrobeapi/services"
	"wardrobeapi/tasks"
)

func runScheduler(cfg services.Config) {
	logger := services.NewLogger(cfg)
	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{Addr: cfg.BrokerAddress}, &asynq.SchedulerOpts{
		LogLevel: asynq.InfoLevel,
	})

	entries := []struct {
		cron string
		task *asynq.Task
		desc string
	}{
		{
			cron: "*/30 * * * *",
			task: tasks.NewExpirePendingLooksTask(),
			desc: "Expire pending looks",
		},
	}

	for _, entry := range entries {
		entryID, err := scheduler.Register(entry.cron, entry.task, asynq.Queue(tasks.QueueLooks))
		if err != nil {
			logger.Fatalf("Failed to register task '%s': %v", entry.desc, err)
		}
		logger.Infof("Registered task '%s' with ID: %s, cron: %s", entry.desc, entryID, entry.cron)
	}

	logger.Info("Starting scheduler...")
	if err := scheduler.Run(); err != nil {
		logger.Fatalf("Scheduler failed: %v", err)
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		panic(err)
	}
	cfg := services.LoadConfig()
	logger := services.NewLogger(cfg)

	if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.Env, Release: cfg.Release}); err != nil {
		logger.Fatalf("sentry.Init: %s", err)
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.BrokerAddress},
		asynq.Config{Concurrency: 10, Queues: map[string]int{
			tasks.QueueLooks: 7,
			"default":        3,
		}},
	)
	awsService := &services.AWSService{}
	if err := awsService.InitPresignClient(context.Background()); err != nil {
		logger.Fatal("[Queue] Failed to initialize AWS provider: S3")
	}
	db := dbhelper.SetupDB()

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeArchiveLook, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleArchiveLookTask(ctx, t, db, awsService, cfg.R2BucketName, logger)
	})
	mux.HandleFunc(tasks.TypeExpirePendingLook, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleExpirePendingLooksTask(ctx, t, db, logger)
	})

	go runScheduler(cfg)
	if err := srv.Run(mux); err != nil {
		logger.Fatal(err)
	}
}
