package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/minewatch/go-mine-alerts/internal/api"
	"github.com/minewatch/go-mine-alerts/internal/config"
	"github.com/minewatch/go-mine-alerts/internal/dispatch"
	"github.com/minewatch/go-mine-alerts/internal/events"
	"github.com/minewatch/go-mine-alerts/internal/logging"
	"github.com/minewatch/go-mine-alerts/internal/monitor"
	"github.com/minewatch/go-mine-alerts/internal/provider"
	"github.com/minewatch/go-mine-alerts/internal/repository"
	"github.com/minewatch/go-mine-alerts/internal/risk"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	adjacency, err := config.ParseAdjacency(cfg.Zones.Adjacency)
	if err != nil {
		logging.Fatalf("Failed to parse zone adjacency: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers := provider.NewSet(cfg.Providers, cfg.Dispatch.SendTimeout)
	resolver := dispatch.NewResolver(db, adjacency)
	orchestrator := dispatch.NewOrchestrator(resolver, providers, db, cfg.Dispatch.Concurrency)
	evaluator := risk.NewEvaluator(risk.Thresholds{
		High:      cfg.Risk.HighThreshold,
		Critical:  cfg.Risk.CriticalThreshold,
		Emergency: cfg.Risk.EmergencyThreshold,
	})

	// Broadcaster decouples the monitor loop from the dispatch queue.
	broadcaster := events.NewBroadcaster()

	mgr := monitor.NewManager(cfg, evaluator, orchestrator, db, broadcaster)
	mgr.Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))
	router.Use(api.RateLimitMiddleware(10)) // 10 req/s global limit

	handler := api.NewHandler(db, evaluator, orchestrator)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	mgr.Stop()
	broadcaster.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
