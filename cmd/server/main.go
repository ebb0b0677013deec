package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/trustmark-cpa/nexus-monitor/internal/business/ingest"
	"github.com/trustmark-cpa/nexus-monitor/internal/platform/config"
	firestoreclient "github.com/trustmark-cpa/nexus-monitor/internal/platform/firestore"
	apirouter "github.com/trustmark-cpa/nexus-monitor/internal/platform/http"
	"github.com/trustmark-cpa/nexus-monitor/internal/platform/piiscan"
	"github.com/trustmark-cpa/nexus-monitor/internal/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load(".env.local", ".env")

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load")
	}

	gin.SetMode(cfg.GinMode)

	firestoreClient, credsSource, err := firestoreclient.New(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("firestore init")
	}
	defer firestoreClient.Close()

	if err := firestoreclient.Ping(ctx, firestoreClient); err != nil {
		logger.Fatal().Err(err).Msg("firestore ping")
	}
	logger.Info().
		Str("project", cfg.FirebaseProjectID).
		Str("credentials", credsSource).
		Msg("connected to Firestore")

	recordRepo := repository.NewRecordRepository(firestoreClient)
	runRepo := repository.NewRunRepository(firestoreClient)
	statsRepo := repository.NewStatsRepository(firestoreClient)
	alertRepo := repository.NewAlertRepository(firestoreClient)

	scanner := piiscan.New(nil, piiscan.Config{
		APIKey: cfg.PIIScanAPIKey,
		Mock:   cfg.PIIScanMock,
	})
	ingestSvc := ingest.NewService(scanner, recordRepo, runRepo, alertRepo, statsRepo,
		cfg.IngestWorkers, cfg.AlertCooldown, cfg.DefaultThreshold, logger)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.StatsRefreshCron, func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := ingestSvc.RefreshStats(refreshCtx); err != nil {
			logger.Warn().Err(err).Msg("scheduled stats refresh failed")
		}
	}); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.StatsRefreshCron).Msg("stats refresh schedule")
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := apirouter.NewRouter(recordRepo, runRepo, statsRepo, alertRepo, ingestSvc, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()
	logger.Info().Str("addr", ":"+cfg.Port).Msg("server listening")

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
	logger.Info().Msg("server exited")
}
