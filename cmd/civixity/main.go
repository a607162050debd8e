package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/MikeSquared-Agency/civixity/internal/api"
	"github.com/MikeSquared-Agency/civixity/internal/chat"
	"github.com/MikeSquared-Agency/civixity/internal/chatctx"
	"github.com/MikeSquared-Agency/civixity/internal/config"
	"github.com/MikeSquared-Agency/civixity/internal/detect"
	"github.com/MikeSquared-Agency/civixity/internal/gemini"
	"github.com/MikeSquared-Agency/civixity/internal/hermes"
	"github.com/MikeSquared-Agency/civixity/internal/logging"
	"github.com/MikeSquared-Agency/civixity/internal/metrics"
	"github.com/MikeSquared-Agency/civixity/internal/model"
	"github.com/MikeSquared-Agency/civixity/internal/seed"
	"github.com/MikeSquared-Agency/civixity/internal/speech"
	"github.com/MikeSquared-Agency/civixity/internal/store"
	"github.com/MikeSquared-Agency/civixity/internal/telemetry"
)

var version = "dev"

// backend is the method set both store drivers provide.
type backend interface {
	ListIssues(ctx context.Context, q store.IssueQuery) ([]model.IssueReport, error)
	RecentTurns(ctx context.Context, userID string, limit int) ([]model.ConversationTurn, error)
	InsertTurn(ctx context.Context, t model.ConversationTurn) error
	Ping(ctx context.Context) error
	Close()
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	seedPath := flag.String("seed", "", "JSONL file of posts to load into the sqlite store at startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry first so the log bridge has a provider to attach to.
	tel, err := telemetry.Setup(ctx, cfg.OTel, version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup telemetry: %v\n", err)
		os.Exit(1)
	}
	logOpts := logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}
	if tel != nil {
		logOpts.OTelService = cfg.OTel.ServiceName
	}
	logger := logging.New(os.Stdout, logOpts)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("civixity starting", "port", cfg.Port, "version", version, "store", cfg.StoreDriver)

	// Database
	db, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected", "driver", cfg.StoreDriver)

	if *seedPath != "" {
		writer, ok := db.(seed.IssueWriter)
		if !ok {
			logger.Error("seeding is only supported for the sqlite store", "driver", cfg.StoreDriver)
			os.Exit(1)
		}
		if _, err := seed.Load(ctx, writer, *seedPath, logger); err != nil {
			logger.Error("failed to seed store", "path", *seedPath, "error", err)
			os.Exit(1)
		}
	}

	// Gemini
	llm, err := gemini.NewClient(gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.Gemini.Timeout,
	})
	if err != nil {
		logger.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}
	logger.Info("gemini client ready", "model", llm.Model())

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	// Chat pipeline
	assembler := chatctx.New(db, db, logger,
		chatctx.WithIssueWindow(cfg.Chat.IssueWindow),
		chatctx.WithHistoryLimit(cfg.Chat.HistoryLimit),
	)
	chatOpts := []chat.Option{chat.WithPromptBudget(cfg.Chat.MaxPromptChars)}
	var events api.EventBus

	// NATS/Hermes (optional: turns are still stored without it)
	if cfg.NatsURL != "" {
		hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			logger.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer hermesClient.Close()
		chatOpts = append(chatOpts, chat.WithPublisher(hermesClient))
		events = hermesClient
		logger.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		logger.Warn("NATS not configured, turn events disabled")
	}
	svc := chat.New(assembler, llm, db, logger, chatOpts...)

	// HTTP API
	srv := api.NewServer(api.Options{
		Port:           cfg.Port,
		FrontendURL:    cfg.FrontendURL,
		RateLimit:      cfg.RateLimit.Requests,
		RateLimitEvery: cfg.RateLimit.Window,
	}, api.Deps{
		Chat:       svc,
		Posts:      db,
		Summary:    assembler,
		Classifier: detect.NewClassifier(cfg.Detect.Python, cfg.Detect.Script, cfg.Detect.UploadDir, cfg.Detect.Timeout, logger),
		Speech:     speech.NewClient(cfg.Speech.BaseURL, cfg.Speech.Timeout),
		Gatherer:   reg,
		Events:     events,
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("civixity ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown failed", "error", err)
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown failed", "error", err)
	}
	cancel()
	logger.Info("civixity stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (backend, error) {
	if cfg.StoreDriver == config.DriverSQLite {
		db, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return db, nil
}
