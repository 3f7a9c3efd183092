package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldui/infrastructure/config"
	"fieldui/infrastructure/connectivity"
	"fieldui/infrastructure/di"
	"fieldui/infrastructure/persistence/file"
	"fieldui/interfaces/http/rest"

	"go.uber.org/zap"
)

// probeInterval is how often the connectivity prober checks the sync
// endpoint
const probeInterval = 30 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer cleanup()

	logger := container.Logger

	// The replayer drains the queue in the background for the life of
	// the process
	container.Replayer.Start(ctx)
	defer container.Replayer.Stop()

	// With a sync endpoint configured, connectivity comes from probing
	// it; otherwise the monitor stays in its manual state
	if cfg.SyncEndpoint != "" {
		prober := connectivity.NewProber(container.Connectivity, cfg.SyncEndpoint, probeInterval, logger)
		prober.Start(ctx)
		defer prober.Stop()
	}

	// Hot reload of screen definitions while authoring
	if cfg.EnableScreenWatch && cfg.ScreenSource == "file" {
		watcher, err := file.NewScreenWatcher(cfg.ScreenDir, logger)
		if err != nil {
			logger.Warn("screen watcher unavailable", zap.Error(err))
		} else {
			watcher.OnChange(func(screen string, version int) {
				container.Loader.Invalidate(context.Background(), screen, version)
			})
			watcher.Start()
			defer watcher.Stop()
		}
	}

	router := rest.NewRouter(container)
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("screen_source", cfg.ScreenSource),
			zap.String("queue_store", cfg.QueueStore),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}
