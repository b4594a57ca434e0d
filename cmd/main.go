package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KotFed0t/fin_tracker/config"
	"github.com/KotFed0t/fin_tracker/data"
	"github.com/KotFed0t/fin_tracker/data/cache"
	"github.com/KotFed0t/fin_tracker/data/repository/postgres"
	"github.com/KotFed0t/fin_tracker/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/fin_tracker/internal/externalApi/quoteApi"
	"github.com/KotFed0t/fin_tracker/internal/priceservice"
	"github.com/KotFed0t/fin_tracker/internal/reportGenerator/chartGenerator"
	"github.com/KotFed0t/fin_tracker/internal/reportGenerator/xslsxGenerator"
	"github.com/KotFed0t/fin_tracker/internal/scheduler"
	"github.com/KotFed0t/fin_tracker/internal/service/portfolioService"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)

	quoteApiClient := quoteApi.New(cfg)

	priceSrv := priceservice.New(redisCache, quoteApiClient)

	reportGenerator := xslsxGenerator.New(chartGenerator.New())

	googleCloudStorage := googleDriveApi.New(ctx, cfg)

	portfolioSrv := portfolioService.New(cfg, pgRepo, priceSrv, reportGenerator, googleCloudStorage)

	sched := scheduler.New()
	sched.NewIntervalJob("warm quote cache", portfolioSrv.WarmQuoteCache, cfg.Jobs.WarmQuoteCacheInterval, true)
	sched.NewIntervalJob("check dividends", portfolioSrv.CheckDividends, cfg.Jobs.CheckDividendsInterval, false)
	sched.NewIntervalJob("emit dividend payouts", portfolioSrv.EmitDividendPayouts, cfg.Jobs.EmitPayoutsInterval, false)
	sched.NewIntervalJob("cleanup cloud storage", googleCloudStorage.DeleteOldFiles, cfg.Jobs.CloudCleanupInterval, false)
	sched.Start()
	defer sched.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
