package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/HayashidaReo/nikken-sync/internal/api"
	"github.com/HayashidaReo/nikken-sync/internal/config"
	"github.com/HayashidaReo/nikken-sync/internal/localstore"
	"github.com/HayashidaReo/nikken-sync/internal/logger"
	"github.com/HayashidaReo/nikken-sync/internal/remote"
	"github.com/HayashidaReo/nikken-sync/internal/remote/httpstore"
	"github.com/HayashidaReo/nikken-sync/internal/sync"
)

func main() {
	// Load Config
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Init Logger
	if err := logger.InitLogger(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Multiple devices talk to the same gateway; tag every log line with
	// this device's identity.
	if cfg.Sync.DeviceID != "" {
		logger.Log = logger.Log.With(zap.String("deviceId", cfg.Sync.DeviceID))
	}

	logger.Log.Info("Starting tournament sync service")

	// Open Local Mirror Store
	db, err := localstore.Open(cfg.LocalStore.Path)
	if err != nil {
		logger.Log.Fatal("Failed to open local store", zap.Error(err))
	}
	defer db.Close()
	local := localstore.NewStore(db)

	// Remote Document Store
	var backend remote.RawBackend
	switch cfg.Remote.Mode {
	case "http":
		backend = httpstore.NewClient(cfg.Remote.BaseURL)
		logger.Log.Info("Using HTTP remote store", zap.String("baseURL", cfg.Remote.BaseURL))
	default:
		backend = remote.NewMemoryStore()
		logger.Log.Info("Using in-memory remote store")
	}
	remoteStore := remote.NewStore(backend)

	// Sync Manager + Scheduler
	manager := sync.NewManager(local, remoteStore, cfg.Sync.GetTimeout())
	scheduler := sync.NewScheduler(cfg.Sync.AutoUploadCron, manager)
	scheduler.Start()

	// Init API
	handler := api.NewHandler(manager)
	router := handler.Routes()

	// Start Server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.GetReadTimeout(),
		WriteTimeout: cfg.Server.GetWriteTimeout(),
	}

	go func() {
		logger.Log.Info("Server listening", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down...")
	scheduler.Stop()
	manager.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.Error("Server shutdown failed", zap.Error(err))
	}
}
