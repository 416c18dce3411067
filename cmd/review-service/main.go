package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/reviewpilot/platform/pkg/common/config"
	"github.com/reviewpilot/platform/pkg/common/database"
	"github.com/reviewpilot/platform/pkg/common/kafka"
	"github.com/reviewpilot/platform/pkg/common/logger"
	"github.com/reviewpilot/platform/pkg/common/models"
	"github.com/reviewpilot/platform/pkg/connections"
	"github.com/reviewpilot/platform/pkg/dispatch"
	"github.com/reviewpilot/platform/pkg/httpapi"
	"github.com/reviewpilot/platform/pkg/ingest"
	"github.com/reviewpilot/platform/pkg/ledger"
	"github.com/reviewpilot/platform/pkg/platform"
	"github.com/reviewpilot/platform/pkg/replies"
	"github.com/reviewpilot/platform/pkg/secrets"
	"github.com/reviewpilot/platform/pkg/stores"
	"github.com/reviewpilot/platform/pkg/templates"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer database.ClosePostgres()

	storeRepo := stores.NewRepository(db)
	connRepo := connections.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	templateRepo := templates.NewRepository(db)
	replyRepo := replies.NewRepository(db)
	for name, migrate := range map[string]func() error{
		"stores":      storeRepo.AutoMigrate,
		"connections": connRepo.AutoMigrate,
		"reviews":     ledgerRepo.AutoMigrate,
		"templates":   templateRepo.AutoMigrate,
		"replies":     replyRepo.AutoMigrate,
	} {
		if err := migrate(); err != nil {
			logger.Log.WithError(err).WithField("table", name).Fatal("failed to migrate")
		}
	}

	cipher, err := secrets.NewCipher(cfg.EncryptionKey)
	if err != nil {
		logger.Log.WithError(err).Fatal("invalid encryption key")
	}
	connSvc := connections.NewService(connRepo, cipher)

	adapterCfg, err := platform.LoadConfig(cfg.AdapterConfigPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load adapter config")
	}
	registry := platform.NewRegistry(
		platform.NewBaeminAdapter(adapterCfg.Endpoint("baemin")),
		platform.NewYogiyoAdapter(adapterCfg.Endpoint("yogiyo")),
		platform.NewCoupangEatsAdapter(adapterCfg.Endpoint("coupangeats")),
		platform.NewMockAdapter(),
	)

	var producer *kafka.Producer
	if cfg.KafkaOutcomeTopic != "" {
		producer = kafka.NewProducer(cfg.KafkaOutcomeTopic)
		defer producer.Close()
	}

	locker := ingest.NewRedisLocker(database.GetRedis(), cfg.SyncLockTTL)
	defer database.CloseRedis()

	var publisher ingest.Publisher
	var dispatchPublisher dispatch.Publisher
	if producer != nil {
		publisher = producer
		dispatchPublisher = producer
	}

	pipeline := ingest.NewPipeline(registry, connSvc, ledgerRepo, storeRepo, locker, publisher, cfg.SyncWorkers)
	engine := dispatch.NewEngine(registry, ledgerRepo, templateRepo, connSvc, storeRepo, replyRepo, dispatchPublisher, cfg.DispatchWorkers)

	handler := httpapi.NewHandler(storeRepo, templateRepo, connSvc, ledgerRepo, pipeline, engine, replyRepo, registry, cfg.MaxRequestBody)

	router := mux.NewRouter()
	router.Use(httpapi.Recovery, httpapi.Logging)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	handler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Review Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	// Scheduled sync across all stores; SYNC_INTERVAL=0 disables it and the
	// manual trigger endpoint remains the only entry point.
	if cfg.SyncInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.SyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					now := time.Now()
					rng := models.DateRange{From: now.Add(-24 * time.Hour), To: now}
					if _, err := pipeline.SyncAll(ctx, rng); err != nil {
						logger.Log.WithError(err).Warn("scheduled sync failed")
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Review Service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Review Service stopped")
}
