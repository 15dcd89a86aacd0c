package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Bo-Simmons/ingest-process-service/internal/config"
	"github.com/Bo-Simmons/ingest-process-service/internal/httpapi"
	"github.com/Bo-Simmons/ingest-process-service/internal/ingest"
	"github.com/Bo-Simmons/ingest-process-service/internal/logging"
	"github.com/Bo-Simmons/ingest-process-service/internal/store/postgres"
)

func main() {
	cfg, err := config.LoadAPI()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New("api")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrationsOnStartup {
		if err := postgres.RunMigrations(rootCtx, cfg.PostgresDSN); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	store, err := postgres.New(rootCtx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer store.Close()

	svc := ingest.New(store)
	handler := httpapi.NewRouter(svc, store, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", zap.Error(err))
	}
	logger.Info("bye")
}
