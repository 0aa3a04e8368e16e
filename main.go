package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"eventpulse/internal/config"
	"eventpulse/internal/content"
	"eventpulse/internal/gateway"
	"eventpulse/internal/handler"
	"eventpulse/internal/override"
	"eventpulse/internal/queue"
	"eventpulse/internal/repository"
	"eventpulse/internal/response"
	"eventpulse/internal/scheduler"
	"eventpulse/internal/server"
	"eventpulse/internal/timing"
	"eventpulse/internal/worker"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err) // Should not happen in development
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	// Load configuration
	cfgPath := "configs/config.yml"
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, logger)

	// Initialize repositories
	eventRepo := repository.NewEventRepository(db, logger)
	attendeeRepo := repository.NewAttendeeRepository(db, logger)
	messageRepo := repository.NewMessageRepository(db, logger)
	matchRepo := repository.NewPeerMatchRepository(db, logger)
	learningRepo := repository.NewLearningEventRepository(db, logger)
	overrideRepo := repository.NewOverrideLogRepository(db, logger)

	// Timing resolver
	resolver := timing.NewResolver(
		eventRepo,
		cfg.Scheduling.DefaultStartHour,
		time.Duration(cfg.Scheduling.AcceleratedWindowMinutes)*time.Minute,
		logger,
	)

	// Content generator (falls back to deterministic templates when
	// the generative service is disabled)
	var generator *content.Generator
	if cfg.Generator.Enabled {
		generator, err = content.NewGenerator(content.Config{
			APIKey:          cfg.Generator.APIKey,
			ModelName:       cfg.Generator.ModelName,
			MaxOutputTokens: cfg.Generator.MaxOutputTokens,
			Timeout:         time.Duration(cfg.Generator.TimeoutSeconds) * time.Second,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize content generator", zap.Error(err))
		}
	} else {
		generator = content.NewFallbackGenerator(logger)
		logger.Info("Content generator disabled, using fallback templates")
	}
	defer generator.Close()

	// Delivery gateway client
	gatewayClient := gateway.NewClient(cfg.Gateway.URL, time.Duration(cfg.Gateway.TimeoutSeconds)*time.Second)

	// Delayed job queue
	jobQueue := queue.New(queue.Config{
		Workers:        cfg.Queue.Workers,
		MaxRetries:     cfg.Queue.MaxRetries,
		InitialBackoff: time.Duration(cfg.Queue.InitialBackoffSeconds) * time.Second,
	}, logger)

	// Scheduler and job handlers
	sched := scheduler.NewScheduler(eventRepo, attendeeRepo, messageRepo, learningRepo, resolver, jobQueue, logger)
	messageWorker := worker.NewWorker(
		messageRepo, attendeeRepo, eventRepo,
		generator, gatewayClient, learningRepo,
		time.Duration(cfg.Gateway.TimeoutSeconds)*time.Second, logger,
	)
	matchmaker := scheduler.NewMatchmaker(eventRepo, attendeeRepo, messageRepo, matchRepo, learningRepo, resolver, jobQueue, logger)
	jobQueue.Register(scheduler.JobKindMessage, messageWorker)
	jobQueue.Register(scheduler.JobKindPeerMatch, matchmaker)

	// Rebuild the queue from durable state before accepting traffic
	if _, err := sched.Reconcile(); err != nil {
		logger.Fatal("Failed to reconcile scheduled messages", zap.Error(err))
	}

	overrideController := override.NewController(messageRepo, overrideRepo, learningRepo, jobQueue, logger)
	tracker := response.NewTracker(messageRepo, learningRepo, logger)

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the job queue in a goroutine
	go jobQueue.Run(ctx)

	// Initialize and run the server
	srv := server.NewServer(server.Handlers{
		Schedule:   handler.NewScheduleHandler(sched, attendeeRepo, learningRepo, logger),
		Override:   handler.NewOverrideHandler(overrideController, logger),
		Webhook:    handler.NewWebhookHandler(tracker, logger),
		Monitoring: handler.NewMonitoringHandler(messageRepo, matchRepo, jobQueue, logger),
	}, logger)
	if err := srv.Run(cfg.Server.Port); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}

	<-ctx.Done()
	logger.Info("Application stopped.")
}
