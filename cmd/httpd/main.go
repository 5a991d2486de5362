package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonesrussell/feedback-insight/internal/alert"
	"github.com/jonesrussell/feedback-insight/internal/api"
	"github.com/jonesrussell/feedback-insight/internal/classifier"
	"github.com/jonesrussell/feedback-insight/internal/cluster"
	"github.com/jonesrussell/feedback-insight/internal/config"
	"github.com/jonesrussell/feedback-insight/internal/database"
	"github.com/jonesrussell/feedback-insight/internal/llm"
	"github.com/jonesrussell/feedback-insight/internal/logging"
	"github.com/jonesrussell/feedback-insight/internal/pipeline"
	"github.com/jonesrussell/feedback-insight/internal/search"
	"github.com/jonesrussell/feedback-insight/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.GetConfigPath("config.yml"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting feedback-insight",
		logging.String("version", cfg.Service.Version),
		logging.Int("port", cfg.Service.Port),
		logging.Bool("poller_enabled", cfg.Service.PollerEnabled))

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer func() { _ = db.Close() }()

	items := database.NewFeedbackRepository(db)
	clusters := database.NewClusterRepository(db, items)

	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return fmt.Errorf("init llm client: %w", err)
	}

	tel := telemetry.NewProvider()
	cls := classifier.New(llmClient, cfg.Analyzer, logger)
	asm := cluster.NewAssembler(cluster.NewKeywordGrouper(0), logger)

	var notifier alert.Notifier
	if cfg.Alert.WebhookURL != "" {
		notifier = alert.NewWebhookNotifier(cfg.Alert.WebhookURL, cfg.Alert.Timeout)
	} else {
		logger.Warn("no alert webhook configured, alerts will only be logged")
		notifier = alert.NewLogNotifier(logger)
	}
	gate := alert.NewGate(notifier, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var indexer pipeline.Indexer
	if cfg.Search.Enabled {
		esClient, esErr := search.NewClient(ctx, cfg.Search)
		if esErr != nil {
			return fmt.Errorf("connect to elasticsearch: %w", esErr)
		}
		idx := search.NewIndexer(esClient, cfg.Search.Index, logger)
		if esErr = idx.EnsureIndex(ctx); esErr != nil {
			return fmt.Errorf("ensure search index: %w", esErr)
		}
		indexer = idx
	}

	pipe := pipeline.New(items, clusters, cls, asm, gate, indexer, tel, logger, cfg.Pipeline)

	var poller *pipeline.Poller
	if cfg.Service.PollerEnabled {
		poller = pipeline.NewPoller(pipe, logger, cfg.Poller)
		if err = poller.Start(ctx); err != nil {
			return fmt.Errorf("start poller: %w", err)
		}
		defer poller.Stop()
	}

	handler := api.NewHandler(items, clusters, pipe, db, tel, logger, cfg.Service.Version)
	server := api.NewServer(cfg.Service, handler, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case err = <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout)
	defer cancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
