package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mamadbah2/simba/internal/config"
	"github.com/mamadbah2/simba/internal/observability"
	"github.com/mamadbah2/simba/internal/repository/dataset"
	"github.com/mamadbah2/simba/internal/repository/mongodb"
	"github.com/mamadbah2/simba/internal/repository/sheets"
	"github.com/mamadbah2/simba/internal/scheduler"
	"github.com/mamadbah2/simba/internal/server/handlers"
	"github.com/mamadbah2/simba/internal/server/router"
	"github.com/mamadbah2/simba/internal/service/collector"
	"github.com/mamadbah2/simba/internal/service/export"
	"github.com/mamadbah2/simba/internal/service/insights"
	"github.com/mamadbah2/simba/internal/service/localization"
	"github.com/mamadbah2/simba/internal/service/periods"
	"github.com/mamadbah2/simba/internal/service/session"
	"github.com/mamadbah2/simba/pkg/clients/simba"
	"github.com/mamadbah2/simba/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(registry)
	if err != nil {
		baseLogger.Fatal("failed to register metrics", zap.Error(err))
	}

	datasetRepo := dataset.NewRepository(cfg.Data, metrics, baseLogger.Named("repo.dataset"))

	localizer := localization.NewLocalizer(cfg.I18n, baseLogger.Named("svc.localization"))
	if _, err := localizer.Init(ctx); err != nil {
		baseLogger.Fatal("failed to load default language pack", zap.Error(err))
	}

	resolver := periods.NewResolver(datasetRepo, baseLogger.Named("svc.periods"))
	sessions := session.NewManager(datasetRepo, resolver, localizer, metrics, cfg.Server.SessionIdleTTL, baseLogger.Named("svc.session"))
	insightsSvc := insights.NewService(datasetRepo, insights.NewEngine(baseLogger.Named("svc.insights.engine")), cfg.Insights.CacheTTL, baseLogger.Named("svc.insights"))

	var sheetsExporter *export.SheetsExporter
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		sheetsExporter = export.NewSheetsExporter(sheetsRepo, cfg.Sheets.ExportRange, baseLogger.Named("svc.export"))
		baseLogger.Info("google sheets export enabled")
	} else {
		baseLogger.Warn("google sheets credentials missing, sheets export disabled")
	}

	if cfg.Collector.CronSchedule != "" {
		var archive mongodb.Repository
		if cfg.MongoDB.Enabled() {
			mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
			if err != nil {
				baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
			}
			defer func() {
				if err := mongoRepo.Close(context.Background()); err != nil {
					baseLogger.Error("failed to close mongodb connection", zap.Error(err))
				}
			}()
			archive = mongoRepo
		}

		collectorSvc := collector.NewService(simba.NewClient(cfg.Collector), cfg.Collector, archive, baseLogger.Named("svc.collector"))
		sched, err := scheduler.NewScheduler(cfg.Collector, collectorSvc, baseLogger.Named("scheduler"), insightsSvc)
		if err != nil {
			baseLogger.Fatal("failed to init scheduler", zap.Error(err))
		}
		if err := sched.Start(); err != nil {
			baseLogger.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	sessionHandler := handlers.NewSessionHandler(sessions, localizer, sheetsExporter, baseLogger.Named("handlers.session"))
	dataHandler := handlers.NewDataHandler(datasetRepo, insightsSvc, localizer, cfg.Data.DefaultCity, cfg.Insights.TopN, baseLogger.Named("handlers.data"))
	engine := router.New(sessionHandler, dataHandler, router.Options{
		Gatherer:      registry,
		StaticDataDir: cfg.Server.StaticDataDir,
	}, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
