// Package main provides the entry point for the standalone ingestion service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/footy-edge/internal/config"
	"github.com/yourusername/footy-edge/internal/connector"
	"github.com/yourusername/footy-edge/internal/health"
	"github.com/yourusername/footy-edge/internal/logger"
	"github.com/yourusername/footy-edge/internal/models"
	"github.com/yourusername/footy-edge/internal/orchestrator"
	"github.com/yourusername/footy-edge/internal/store"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadWithDefaults(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			log.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			log.Fatalf("Failed to load secrets: %v", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLog := logger.NewLogger(cfg.App.LogLevel)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"log_level":   cfg.App.LogLevel,
	}).Info("Footy Edge ingestion service starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.NewPostgresStore(ctx, &cfg.Database)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to connect to store")
	}
	defer st.Close()
	if err := st.EnsureSchema(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to ensure schema")
	}
	appLog.Info("Store connection established")

	httpClient := connector.NewRateLimitedHTTPClient(connector.DefaultHTTPClientConfig(), appLog)
	factory := connector.NewFactory(cfg.Ingestion.DegradedAfterFailures, appLog)
	connectors, err := factory.NewConnectors(cfg.Connectors, httpClient)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to create connectors")
	}

	for _, c := range connectors {
		if stream, ok := c.(*connector.LiveScoreConnector); ok {
			if err := stream.Start(ctx); err != nil {
				appLog.WithError(err).Warn("Live score stream failed to start; will reconnect")
			}
		}
	}

	orch := orchestrator.New(&cfg.Ingestion, connectors, st, appLog)

	sched := orchestrator.NewScheduler(orch, appLog)
	scheduled := 0
	for _, src := range cfg.Connectors.Sources {
		if !src.Enabled || src.DailySyncCron == "" {
			continue
		}
		if err := sched.ScheduleDailySync(src.DailySyncCron, models.SourceKind(src.Kind)); err != nil {
			appLog.WithError(err).Fatal("Failed to schedule daily sync")
		}
		scheduled++
	}

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name + "-ingest",
		Logger:      appLog,
		Store:       st,
		Status:      orch,
	})
	if err := healthServer.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start health server")
	}

	if err := orch.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start orchestrator")
	}
	if scheduled > 0 {
		if err := sched.Start(); err != nil {
			appLog.WithError(err).Fatal("Failed to start scheduler")
		}
	}

	healthServer.SetReady(true)
	appLog.WithField("connectors", len(connectors)).Info("Ingestion service is running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")

	healthServer.SetReady(false)
	cancel()
	if scheduled > 0 {
		if err := sched.Stop(); err != nil {
			appLog.WithError(err).Error("Error stopping scheduler")
		}
	}
	orch.Stop()

	appLog.Info("Ingestion service shut down")
}
