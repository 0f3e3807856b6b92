package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carelytic/platform/pkg/account"
	"github.com/carelytic/platform/pkg/common/config"
	"github.com/carelytic/platform/pkg/common/database"
	"github.com/carelytic/platform/pkg/common/kafka"
	"github.com/carelytic/platform/pkg/common/logger"
	"github.com/carelytic/platform/pkg/objectstore"
	"github.com/carelytic/platform/pkg/provider"
	"github.com/carelytic/platform/pkg/report"
	"github.com/carelytic/platform/pkg/upload"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	reportRepo := report.NewRepository(db)
	if err := reportRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate report tables")
	}

	accountRepo := account.NewRepository(db)
	if err := accountRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate account tables")
	}

	store, err := objectstore.New(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to initialise object store client")
	}

	policy, err := upload.LoadPolicy(cfg.UploadPolicyFile)
	if err != nil {
		logger.Log.WithError(err).Warn("falling back to default upload policy")
	}
	if cfg.UploadMaxBytes > 0 {
		policy.MaxSizeBytes = cfg.UploadMaxBytes
	}
	gatekeeper := upload.NewGatekeeper(policy)

	providerClient := provider.NewClient(cfg)

	var producer *kafka.Producer
	if cfg.ReportEventTopic != "" {
		producer = kafka.NewProducer(cfg.ReportEventTopic)
		defer producer.Close()
	}

	cache := report.NewProjectionCache(database.GetRedis(), cfg.HistoryCacheTTL)

	validator := report.NewValidator(cfg.StorageBucket)
	var events report.EventPublisher
	if producer != nil {
		events = producer
	}
	reportSvc := report.NewService(validator, reportRepo, store, providerClient, accountRepo, events, cache, cfg.ProviderTimeout)

	tokens := account.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)
	accountSvc := account.NewService(accountRepo, tokens)

	if os.Getenv("SEED_DEMO_USER") == "true" {
		if err := accountSvc.EnsureDemoUser(context.Background()); err != nil {
			logger.Log.WithError(err).Warn("failed to seed demo user")
		}
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	upload.NewHTTPHandler(gatekeeper, store, cfg.MaxRequestBody).Register(api)
	report.NewHTTPHandler(reportSvc, cfg.MaxRequestBody).Register(api)
	account.NewHTTPHandler(accountSvc).Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Report Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Report Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	if err := database.ClosePostgres(); err != nil {
		logger.Log.WithError(err).Warn("failed to close postgres connection")
	}
	if err := database.CloseRedis(); err != nil {
		logger.Log.WithError(err).Warn("failed to close redis connection")
	}

	logger.Log.Info("Report Service stopped")
}
