package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/IndrawanLalu/gardu-alerting-service/internal/api"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/classify"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/config"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/db"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/dispatch"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/engine"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/kafka"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/logging"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/observability"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Config load failed:", err)
	}

	// Initialize logger
	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatal("Logger init failed:", err)
	}

	// Connect to DB
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		logger.Errorf("DB connect failed: %v", err)
		log.Fatal("DB connect failed:", err)
	}
	defer dbConn.Close()

	// Pick the notification gateway
	var gateway dispatch.Gateway
	switch {
	case cfg.Dispatch.BotToken != "":
		gateway, err = dispatch.NewTelegramGateway(cfg.Dispatch.BotToken, cfg.Dispatch.ChatID, logger)
		if err != nil {
			logger.Errorf("Telegram gateway init failed: %v", err)
			log.Fatal("Telegram gateway init failed:", err)
		}
	case cfg.Dispatch.WebhookURL != "":
		gateway = dispatch.NewWebhookGateway(cfg.Dispatch.WebhookURL)
	default:
		logger.Warnf("no notification gateway configured, alerts will not be dispatched")
	}
	dispatcher := dispatch.New(gateway, logger, cfg.Dispatch.Timeout, cfg.Dispatch.RatePerSecond)

	// Initialize the alerting engine
	metrics := observability.NewMetrics()
	classifier := classify.New(nil, classify.Boundaries{}, logger)
	svc, err := engine.New(dbConn, dbConn, classifier, dispatcher, logger, metrics, cfg)
	if err != nil {
		logger.Errorf("Engine init failed: %v", err)
		log.Fatal("Engine init failed:", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Start Kafka measurement consumer
	var consumer *kafka.Consumer
	if len(cfg.Kafka.Brokers) > 0 {
		consumer = kafka.NewConsumer(cfg, svc, logger)
		go consumer.Start(ctx)
	} else {
		logger.Warnf("KAFKA_BROKER not set, measurement intake is API-only")
	}

	// Start API server
	r := api.NewRouter(svc, logger, cfg)
	go func() {
		logger.Infof("API started on %s", cfg.API.Port)
		if err := r.Run(cfg.API.Port); err != nil {
			logger.Errorf("API run failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Infof("Shutting down...")
	cancel()
	if consumer != nil {
		consumer.Close()
	}
	logger.Infof("Service stopped")
}
