package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/luxgrid/dimming-reco-service/internal/adapter/csvstore"
	"github.com/luxgrid/dimming-reco-service/internal/adapter/fixtures"
	"github.com/luxgrid/dimming-reco-service/internal/adapter/kafkarefresh"
	"github.com/luxgrid/dimming-reco-service/internal/adapter/legacyapi"
	"github.com/luxgrid/dimming-reco-service/internal/api"
	"github.com/luxgrid/dimming-reco-service/internal/config"
	"github.com/luxgrid/dimming-reco-service/internal/domain"
	"github.com/luxgrid/dimming-reco-service/internal/observability"
	"github.com/luxgrid/dimming-reco-service/internal/service"
)

func main() {
	// Local development reads a .env file; deployed environments set real
	// environment variables and have no such file.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	store := csvstore.New(cfg.RecoCSVPath, domain.SeongsuCenter, cfg.CellMeters, logger, metrics)
	fixtureSrc := fixtures.New(cfg.FixtureDir, logger)

	sources := service.Sources{
		Areas: []domain.AreaSource{fixtureSrc},
		Grids: []domain.GridSource{store, fixtureSrc},
		Recos: []domain.RecommendationSource{store, fixtureSrc},
	}

	// The legacy backend, when configured, outranks the local sources.
	if cfg.LegacyAPIEnabled {
		legacy := legacyapi.NewClient(cfg.LegacyAPIURL, cfg.LegacyAPITimeout, logger, metrics)
		sources.Grids = append([]domain.GridSource{legacy}, sources.Grids...)
		sources.Recos = append([]domain.RecommendationSource{legacy}, sources.Recos...)
		logger.Info("legacy api enabled", "url", cfg.LegacyAPIURL, "timeout", cfg.LegacyAPITimeout)
	} else {
		logger.Info("legacy api disabled")
	}

	svc := service.New(sources, logger, metrics)
	srv := api.NewServer(cfg, svc, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	var consumer *kafkarefresh.Consumer
	if cfg.RefreshEnabled {
		consumer = kafkarefresh.NewConsumer(cfg, store, logger, metrics)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("refresh consumer error", "error", err)
			}
		}()
		logger.Info("kafka refresh enabled", "topic", cfg.KafkaRefreshTopic, "group", cfg.KafkaGroupID)
	} else {
		logger.Info("kafka refresh disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("refresh consumer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
