package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/davidtorcivia/stifle-sub000/internal/auth"
	"github.com/davidtorcivia/stifle-sub000/internal/config"
	"github.com/davidtorcivia/stifle-sub000/internal/database"
	"github.com/davidtorcivia/stifle-sub000/internal/eventsync"
	"github.com/davidtorcivia/stifle-sub000/internal/handlers"
	"github.com/davidtorcivia/stifle-sub000/internal/scoring"
)

var Version = "dev"

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := database.New(ctx, cfg.DatabaseURL, logger)
	cancel()
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.EnsureSchema(context.Background()); err != nil {
		logger.Fatal("failed to bootstrap schema", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer)
	materializer := scoring.NewMaterializer(db, db, db, logger)
	normalizer := eventsync.NewNormalizer(cfg.MaxEventAge, cfg.MaxFutureDrift, logger)
	reconciler := eventsync.NewReconciler(db, normalizer, materializer, logger, cfg.SyncPageSize)

	r := handlers.NewRouter(handlers.RouterDeps{
		Events:       db,
		Scores:       db,
		Users:        db,
		Reconciler:   reconciler,
		Materializer: materializer,
		JWT:          jwtService,
		Logger:       logger,
		Version:      Version,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
