package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hexasec/argus/internal/adapter/fetch"
	"github.com/hexasec/argus/internal/adapter/notifier"
	"github.com/hexasec/argus/internal/adapter/queue"
	"github.com/hexasec/argus/internal/adapter/repository"
	"github.com/hexasec/argus/internal/config"
	"github.com/hexasec/argus/internal/core/ports"
	"github.com/hexasec/argus/internal/metrics"
	"github.com/hexasec/argus/internal/pipeline"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics.Init()

	dbPool, err := connectDatabase(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	nc, err := connectNATS(cfg.NATSURL, logger)
	if err != nil {
		logger.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()

	clients, err := fetch.NewClientSet(cfg.FetchTimeout, cfg.TorProxyAddr)
	if err != nil {
		logger.Error("failed to build fetch clients", "error", err)
		os.Exit(1)
	}

	repos := repository.New(dbPool)
	dispatcher := queue.NewDispatcher(nc)

	var alertChannel ports.AlertNotifier
	if cfg.HasTelegram() {
		alertChannel = notifier.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		logger.Info("telegram alerting enabled")
	} else {
		logger.Info("telegram alerting disabled, alerts go to the log")
	}

	fetcher := pipeline.NewFetcher(repos.Sources, repos.Documents, dispatcher, clients,
		pipeline.FetcherConfig{
			Timeout:       cfg.FetchTimeout,
			RatePerSecond: cfg.FetchRatePerSecond,
			RateBurst:     cfg.FetchRateBurst,
		}, logger)
	extractor := pipeline.NewExtractor(repos.Documents, dispatcher, nil, logger)
	correlator := pipeline.NewCorrelator(repos.Documents, repos.Assets, repos.Incidents, dispatcher, logger)
	alerter := pipeline.NewAlerter(repos.Incidents, alertChannel, logger)

	worker := queue.NewWorker(nc, cfg.QueueGroup, logger)
	worker.Register(ports.StageFetch, fetcher, cfg.Pools.Fetch)
	worker.Register(ports.StageExtract, extractor, cfg.Pools.Extract)
	worker.Register(ports.StageCorrelate, correlator, cfg.Pools.Correlate)
	worker.Register(ports.StageNotify, alerter, cfg.Pools.Notify)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		logger.Info("metrics listening", "addr", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	workerDone := make(chan error, 1)
	go func() {
		workerDone <- worker.Run(ctx)
	}()

	logger.Info("argus worker started",
		"fetch_pool", cfg.Pools.Fetch,
		"extract_pool", cfg.Pools.Extract,
		"correlate_pool", cfg.Pools.Correlate,
		"notify_pool", cfg.Pools.Notify)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker")
	cancel()

	select {
	case err := <-workerDone:
		if err != nil {
			logger.Error("worker stopped with error", "error", err)
		}
	case <-time.After(30 * time.Second):
		logger.Error("worker shutdown timed out")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	logger.Info("worker stopped")
}

func connectDatabase(ctx context.Context, url string, logger *slog.Logger) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	operation := func() error {
		p, err := pgxpool.New(ctx, url)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database")
	return pool, nil
}

func connectNATS(url string, logger *slog.Logger) (*nats.Conn, error) {
	var nc *nats.Conn
	operation := func() error {
		conn, err := nats.Connect(url)
		if err != nil {
			return err
		}
		nc = conn
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	logger.Info("connected to NATS")
	return nc, nil
}
