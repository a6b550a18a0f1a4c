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

	"github.com/ikkim/storefront-cart/config"
	"github.com/ikkim/storefront-cart/internal/app/controller"
	"github.com/ikkim/storefront-cart/internal/app/repository"
	"github.com/ikkim/storefront-cart/internal/app/service"
	"github.com/ikkim/storefront-cart/internal/middleware"
	"github.com/ikkim/storefront-cart/internal/router"
	"github.com/ikkim/storefront-cart/internal/scheduler"
	"github.com/ikkim/storefront-cart/internal/storage"
	"github.com/ikkim/storefront-cart/internal/websocket"
	"github.com/ikkim/storefront-cart/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := cfg.Log.Level
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      cfg.Log.Format,
		EnableColor: cfg.Log.Format == "console",
	})

	logger.Info("Starting storefront cart server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
		"storage":     cfg.Storage.Backend,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open persistent storage
	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open storage", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Failed to close storage", err)
		}
	}()

	// Initialize repositories and services
	snapshotRepo := repository.NewSnapshotRepository(backend)
	bridge := service.NewCartBridge(snapshotRepo, cfg.Storage.WriteTimeout)
	store := service.NewCartStore(bridge)
	uiService := service.NewUIService(snapshotRepo, cfg.Storage.WriteTimeout)
	ownerService := service.NewOwnerService(snapshotRepo, cfg.Session.OwnerUserID, cfg.Storage.WriteTimeout)
	sessionService := service.NewSessionService(store, bridge, ownerService)
	exportService := service.NewExportService()

	// Restore persisted state before serving
	bridge.Restore(ctx, store)
	uiService.Restore(ctx)
	ownerService.Restore(ctx)

	hub := websocket.NewHub(store)
	ownerService.OnRelease(hub.DisconnectUser)
	resync := scheduler.NewResyncScheduler(bridge, cfg.Scheduler.ResyncSpec, cfg.Storage.WriteTimeout)

	// Initialize controllers
	cartController := controller.NewCartController(store, exportService)
	uiController := controller.NewUIController(uiService)
	sessionController := controller.NewSessionController(sessionService)
	wsController := controller.NewWSController(hub, cfg.CORS.AllowedOrigins)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Setup router
	r := router.NewRouter(
		cartController,
		uiController,
		sessionController,
		wsController,
		authMiddleware,
		ownerService,
		bridge,
		cfg,
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r.Setup(),
	}

	if err := resync.Start(); err != nil {
		logger.Fatal("Failed to start resync scheduler", err)
	}
	defer resync.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": server.Addr,
			"pid":     os.Getpid(),
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", err)
	}

	// 마지막으로 저장 실패한 스냅샷을 한 번 더 기록
	if bridge.Pending() {
		resync.RunOnce()
	}

	logger.Info("Server stopped successfully")
}
