package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/formaudit/backend/config"
	httpDelivery "github.com/formaudit/backend/internal/delivery/http"
	"github.com/formaudit/backend/internal/infrastructure/cache"
	"github.com/formaudit/backend/internal/infrastructure/checklist"
	"github.com/formaudit/backend/internal/infrastructure/probe"
	"github.com/formaudit/backend/internal/infrastructure/resilience"
	"github.com/formaudit/backend/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "formaudit server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting FormAudit backend",
		zap.String("version", "1.0.0"),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("checklist", cfg.Checklist.Path),
		zap.Float64("threshold", cfg.Matching.Threshold),
	)

	// Initialize infrastructure dependencies
	memoryCache := cache.NewMemoryCache(cache.Config{
		CleanupInterval: cfg.Traversal.CleanupInterval,
		Logger:          logger.Named("cache"),
	})
	defer memoryCache.Close()

	normalizer := usecase.NewTextNormalizer(usecase.NormalizerConfig{
		Stopwords:     cfg.Normalizer.Stopwords,
		Abbreviations: cfg.Normalizer.Abbreviations,
	})
	synonyms, err := usecase.NewSynonymIndex(normalizer, usecase.WithDefaultSynonyms(cfg.Matching.Synonyms))
	if err != nil {
		return fmt.Errorf("invalid synonym configuration: %w", err)
	}

	// Initialize usecase layer
	matcher := usecase.NewMatchingService(usecase.MatchConfig{
		Threshold:  cfg.Matching.Threshold,
		Normalizer: normalizer,
		Synonyms:   synonyms,
		Logger:     logger.Named("matcher"),
	})
	classifier := usecase.NewRequirednessClassifier(usecase.ClassifierConfig{
		RequiredKeywords: cfg.Classifier.RequiredKeywords,
		SkipNonEditable:  cfg.Classifier.SkipNonEditable,
		Normalizer:       normalizer,
		Logger:           logger.Named("classifier"),
	})

	var collector *usecase.ProbeCollector
	if cfg.Probe.BaseURL != "" {
		client := probe.NewClient(probe.ClientConfig{
			BaseURL:       cfg.Probe.BaseURL,
			Timeout:       cfg.Probe.Timeout,
			RatePerSecond: cfg.Probe.RatePerSecond,
			Burst:         cfg.Probe.Burst,
			Logger:        logger.Named("probe"),
		})
		retrier := resilience.NewRetrier(resilience.Policy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay,
			MaxDelay:   cfg.Retry.MaxDelay,
			Multiplier: cfg.Retry.Multiplier,
		}, logger.Named("retry"))
		collector = usecase.NewProbeCollector(client, retrier, usecase.ProbeCollectorConfig{
			Timeout:     cfg.Probe.Timeout,
			Concurrency: cfg.Probe.Concurrency,
			Logger:      logger.Named("probe"),
		})
		logger.Info("blur probe sidecar configured", zap.String("base_url", cfg.Probe.BaseURL))
	} else {
		logger.Info("blur probe sidecar not configured, using supplied signals only")
	}

	audits := usecase.NewAuditService(
		checklist.NewFileRepository(cfg.Checklist.Path, logger.Named("checklist")),
		matcher,
		classifier,
		collector,
		usecase.AuditServiceConfig{Logger: logger.Named("audit")},
	)
	loops := usecase.NewLoopGuardService(memoryCache, usecase.LoopGuardConfig{
		Loop: resilience.LoopConfig{
			MaxSameState: cfg.Loop.MaxSameState,
			StateTTL:     cfg.Loop.StateTTL,
		},
		TraversalTTL: cfg.Traversal.TTL,
		Logger:       logger.Named("loop"),
	})

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(audits, loops, logger.Named("http"))
	router := httpDelivery.SetupRouter(cfg, handler, logger.Named("http"))

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = level
	}
	return zcfg.Build()
}
