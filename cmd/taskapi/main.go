package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"taskapi/internal/auth"
	"taskapi/internal/config"
	"taskapi/internal/server"
	"taskapi/internal/storage/mongodb"
	"taskapi/internal/storage/sqlite"
	"taskapi/internal/tasks"
)

// backend is what both storage implementations provide.
type backend interface {
	tasks.Store
	auth.UserStore
	server.Pinger
	Close() error
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(2)
	}

	level := slog.LevelInfo
	if cfg.IsDevelopment() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	logger.Info("task api starting", slog.String("env", cfg.Env), slog.Bool("auth_gate", cfg.AuthGate))

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	userSvc := auth.NewService(store,
		auth.NewPasswordHasher(cfg.BcryptCost),
		auth.NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL),
		logger)

	srv := server.New(tasks.NewService(store), userSvc, store, logger, server.Options{
		Development: cfg.IsDevelopment(),
		AuthGate:    cfg.AuthGate,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   rate.Limit(cfg.RateLimitRPS),
		RateBurst:   cfg.RateLimitBurst,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

func openStore(cfg *config.Config, logger *slog.Logger) (backend, error) {
	if !cfg.UsesMongo() {
		return sqlite.Open(cfg.DatabaseURI, logger)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return mongodb.Open(ctx, cfg.DatabaseURI, cfg.DatabaseName, logger)
}
