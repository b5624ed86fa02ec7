package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"smartmailr/internal/config"
	"smartmailr/internal/executor"
	"smartmailr/internal/httpserver"
	"smartmailr/internal/model"
	"smartmailr/internal/mqhandler"
	"smartmailr/internal/orchestrator"
	"smartmailr/internal/provider"
	"smartmailr/internal/reporter"
	"smartmailr/internal/repository"
	"smartmailr/internal/store"
	"smartmailr/pkg/db"
	"smartmailr/pkg/logger"
	"smartmailr/pkg/mq"
	"smartmailr/pkg/otel"
	"smartmailr/pkg/outbox"
	"smartmailr/pkg/redis"
	"smartmailr/pkg/util"
)

func main() {
	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting pipeline-service...")

	// OpenTelemetry
	shutdownOtel, err := otel.Init(otel.Config{
		ServiceName:    "pipeline-service",
		ServiceVersion: "1.0.0",
		Endpoint:       cfg.Otel.Endpoint,
		Enabled:        cfg.Otel.Enabled,
	}, log)
	if err != nil {
		log.Warn("OpenTelemetry init failed, tracing disabled", zap.Error(err))
	} else {
		defer shutdownOtel()
	}

	// Redis
	rdb := redis.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, time.Hour, log)
	retryCounter := util.NewRetryCounter(rdb, time.Hour)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB connection failed", zap.Error(err))
	}
	defer dbConn.Close()

	log.Info("DB ready")

	caseRepo := repository.NewCaseRepository(dbConn)
	outboxRepo := outbox.NewRepository(dbConn)

	// MQ publisher (outbox dispatcher and DLQ)
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log)
	go dispatcher.Start(context.Background())

	// Capability providers
	var providers provider.Providers
	switch cfg.Providers.Mode {
	case "remote":
		providers = provider.NewRemoteProviders(cfg.Providers.BaseURL)
		log.Info("Using remote providers", zap.String("base_url", cfg.Providers.BaseURL))
	default:
		providers = provider.NewLocalProviders()
		log.Info("Using local rule-based providers")
	}

	// auto_send off: actions are staged, never executed
	if !cfg.Pipeline.AutoSend {
		providers.Actor = provider.NewStagingActor(providers.Actor)
		log.Info("auto_send disabled, actions will be staged")
	}

	// Pipeline core
	caseStore := store.NewCaseStore()

	execCfg := executor.ConfigFromOptions(cfg.Pipeline.RetryAttempts, cfg.Pipeline.StageTimeoutSeconds)
	exec := executor.NewExecutor(caseStore, execCfg, log)

	rep := reporter.NewReporter(dbConn, caseRepo, outboxRepo, log)

	orch := orchestrator.NewOrchestrator(
		caseStore,
		providers,
		exec,
		rep,
		model.ParseStyle(cfg.Pipeline.ReplyStyle),
		log,
	)

	// -------------------------
	// message.received consumer
	// -------------------------
	log.Info("Init consumer: message.received.q")
	consumer, err := mq.NewConsumer(
		cfg.MQ.URL,
		"message.received.q",
		"message.received",
		log,
	)
	if err != nil {
		log.Fatal("Consumer init failed", zap.Error(err))
	}

	msgHandler := mqhandler.NewMessageReceivedHandler(orch, deduper, retryCounter, publisher, log)
	consumer.SetHandler(msgHandler.Handle)

	go func() {
		if err := consumer.StartConsuming(); err != nil {
			log.Fatal("Consumer crashed", zap.Error(err))
		}
	}()
	defer consumer.Close()

	// -------------------------
	// HTTP API
	// -------------------------
	pipelineHandler := httpserver.NewPipelineHandler(orch, rep)
	router := httpserver.NewRouter(pipelineHandler, cfg.Auth.Secret, dbConn, publisher)

	go func() {
		log.Info("HTTP server listening", zap.String("port", cfg.Server.Port))
		if err := router.Run(":" + cfg.Server.Port); err != nil {
			log.Fatal("HTTP server crashed", zap.Error(err))
		}
	}()

	log.Info("pipeline-service running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down pipeline-service gracefully...")

	log.Info("Stopping MQ consumer...")
	consumer.Close()

	log.Info("Closing database connection...")
	dbConn.Close()

	log.Info("Closing Redis connection...")
	rdb.Close()

	log.Info("Closing publisher...")
	publisher.Close()

	log.Info("pipeline-service shutdown complete")
}
