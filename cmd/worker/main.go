package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Bo-Simmons/ingest-process-service/internal/config"
	"github.com/Bo-Simmons/ingest-process-service/internal/logging"
	"github.com/Bo-Simmons/ingest-process-service/internal/retry"
	"github.com/Bo-Simmons/ingest-process-service/internal/store/postgres"
	"github.com/Bo-Simmons/ingest-process-service/internal/telemetry"
	"github.com/Bo-Simmons/ingest-process-service/internal/worker"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New("worker")
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

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: telemetry.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("metrics listening", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()

	workerCfg := worker.Config{
		StaleLockTimeout: time.Duration(cfg.StaleLockTimeoutSeconds) * time.Second,
		PollDelay:        time.Duration(cfg.WorkerPollSeconds) * time.Second,
		IdleBackoffMax:   time.Duration(cfg.WorkerIdleBackoffMaxSeconds) * time.Second,
		Retry: retry.Config{
			MaxAttempts:        cfg.MaxAttempts,
			BaseBackoffSeconds: cfg.BaseBackoffSeconds,
		},
	}

	runID := processRunID()

	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerConcurrency; i++ {
		wg.Add(1)
		slotCfg := workerCfg
		slotCfg.WorkerID = runID + "-" + strconv.Itoa(i)
		go func() {
			defer wg.Done()
			worker.Loop(rootCtx, store, slotCfg, logger)
		}()
	}

	<-rootCtx.Done()
	logger.Info("shutdown signal received")

	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown error", zap.Error(err))
	}
	logger.Info("bye")
}

// processRunID identifies this process instance uniquely for the
// lifetime of its run (spec.md §4.3: "<hostname>-<random>"), so
// locked_by stays a useful diagnostic across restarts and across
// worker processes running on the same host.
func processRunID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}

	var b [8]byte
	_, _ = rand.Read(b[:])
	return host + "-" + hex.EncodeToString(b[:])
}
