// Package main provides the entry point for the prediction service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/footy-edge/internal/api"
	"github.com/yourusername/footy-edge/internal/cache"
	"github.com/yourusername/footy-edge/internal/calibration"
	"github.com/yourusername/footy-edge/internal/config"
	"github.com/yourusername/footy-edge/internal/connector"
	"github.com/yourusername/footy-edge/internal/ensemble"
	"github.com/yourusername/footy-edge/internal/feature"
	"github.com/yourusername/footy-edge/internal/health"
	"github.com/yourusername/footy-edge/internal/logger"
	"github.com/yourusername/footy-edge/internal/models"
	"github.com/yourusername/footy-edge/internal/orchestrator"
	"github.com/yourusername/footy-edge/internal/pipeline"
	"github.com/yourusername/footy-edge/internal/staking"
	"github.com/yourusername/footy-edge/internal/store"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile string
	cfg        *config.Config
	appLog     *logrus.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(statusCmd)
}

var rootCmd = &cobra.Command{
	Use:   "predictor",
	Short: "Football 1X2 prediction service",
	Long:  `Ingests multi-source match data, runs the super learner ensemble with calibration and blending, and emits staking recommendations.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "status" {
			return nil
		}
		return loadConfig()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the full pipeline: ingestion, inference API and health server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run ingestion only, without the inference stack",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running instance's connector status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	appLog = logger.NewLogger(cfg.App.LogLevel)
	return nil
}

// buildIngestion wires the store, connectors, orchestrator and scheduler
func buildIngestion(ctx context.Context, st store.Store) (*orchestrator.Orchestrator, *orchestrator.Scheduler, []connector.Connector, error) {
	httpClient := connector.NewRateLimitedHTTPClient(connector.DefaultHTTPClientConfig(), appLog)
	factory := connector.NewFactory(cfg.Ingestion.DegradedAfterFailures, appLog)

	connectors, err := factory.NewConnectors(cfg.Connectors, httpClient)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create connectors: %w", err)
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
			return nil, nil, nil, fmt.Errorf("failed to schedule daily sync for %s: %w", src.Kind, err)
		}
		scheduled++
	}
	if scheduled == 0 {
		sched = nil
	}

	return orch, sched, connectors, nil
}

func runServe() error {
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
	}).Info("Footy Edge prediction service starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.NewPostgresStore(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}
	defer st.Close()
	if err := st.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	appLog.Info("Store connection established")

	orch, sched, _, err := buildIngestion(ctx, st)
	if err != nil {
		return err
	}

	ens, err := ensemble.NewEngine(&cfg.Inference, appLog)
	if err != nil {
		return fmt.Errorf("failed to load model artifacts: %w", err)
	}

	calib := calibration.NewController(&cfg.Calibration, st, appLog)
	if err := calib.WarmStart(ctx, ens.BaseModelID(), ens.SecondaryModelID()); err != nil {
		appLog.WithError(err).Warn("Calibration warm start failed; starting cold")
	}

	var snapshots *cache.SnapshotCache
	if cfg.Cache.Enabled {
		snapshots = cache.New(cache.Config{
			TTL:             time.Duration(cfg.Cache.TTLSeconds) * time.Second,
			MaxSize:         cfg.Cache.MaxSize,
			BreakerFailures: cfg.Cache.BreakerFailures,
			BreakerCooldown: time.Duration(cfg.Cache.BreakerCooldownSeconds) * time.Second,
		}, appLog)
	}

	assembler := feature.NewAssembler(st, appLog)
	stake := staking.NewEngine(&cfg.Staking, appLog)
	engine := pipeline.New(&cfg.Inference, st, assembler, ens, calib, stake, snapshots, appLog)

	apiServer := api.NewServer(engine, api.Config{Logger: appLog})
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        fmt.Sprintf("%d", cfg.Metrics.Port),
		Logger:      appLog,
		Store:       st,
		Status:      orch,
	})
	if err := healthServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}

	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}
	if sched != nil {
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	healthServer.SetReady(true)
	appLog.Info("Prediction service is running")

	waitForShutdown()

	appLog.Info("Initiating graceful shutdown")
	healthServer.SetReady(false)
	cancel()
	if sched != nil {
		sched.Stop()
	}
	orch.Stop()

	appLog.Info("Prediction service shut down")
	return nil
}

func runIngest() error {
	appLog.WithField("environment", cfg.App.Environment).Info("Ingestion-only mode starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.NewPostgresStore(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}
	defer st.Close()
	if err := st.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	orch, sched, _, err := buildIngestion(ctx, st)
	if err != nil {
		return err
	}

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name + "-ingest",
		Version:     Version,
		Commit:      GitCommit,
		Port:        fmt.Sprintf("%d", cfg.Metrics.Port),
		Logger:      appLog,
		Store:       st,
		Status:      orch,
	})
	if err := healthServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}

	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}
	if sched != nil {
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	healthServer.SetReady(true)
	appLog.Info("Ingestion is running")

	waitForShutdown()

	cancel()
	if sched != nil {
		sched.Stop()
	}
	orch.Stop()

	appLog.Info("Ingestion shut down")
	return nil
}

func runStatus() error {
	port := os.Getenv("HEALTH_PORT")
	if port == "" {
		port = "8080"
	}

	resp, err := http.Get(fmt.Sprintf("http://localhost:%s/status", port))
	if err != nil {
		return fmt.Errorf("failed to reach running instance: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read status response: %w", err)
	}

	var pretty map[string]interface{}
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Println(string(body))
		return nil
	}
	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(out))
	return nil
}

func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")
}
