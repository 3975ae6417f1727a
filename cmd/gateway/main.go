// Package main implements the Verdant reward gateway: the HTTP service
// that takes image submissions through eligibility checks, AI
// classification, and reward registration on the ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/verdant-network/reward-layer/internal/chain"
	"github.com/verdant-network/reward-layer/internal/classifier"
	"github.com/verdant-network/reward-layer/internal/config"
	"github.com/verdant-network/reward-layer/internal/dedup"
	"github.com/verdant-network/reward-layer/internal/httpapi"
	"github.com/verdant-network/reward-layer/internal/httputil"
	"github.com/verdant-network/reward-layer/internal/logging"
	"github.com/verdant-network/reward-layer/internal/metrics"
	"github.com/verdant-network/reward-layer/internal/middleware"
	"github.com/verdant-network/reward-layer/internal/monitor"
	"github.com/verdant-network/reward-layer/internal/pipeline"
	"github.com/verdant-network/reward-layer/internal/storage"
	"github.com/verdant-network/reward-layer/internal/storage/memory"
	"github.com/verdant-network/reward-layer/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New("reward-gateway", cfg.Logging.Level)
	logger.WithFields(map[string]interface{}{
		"port":     cfg.Server.Port,
		"rpc_url":  cfg.Chain.RPCURL,
		"contract": cfg.Chain.ContractAddress,
	}).Info("starting reward gateway")

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("gateway exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rewardAmount, err := chain.ParseVERD(cfg.Reward.Amount)
	if err != nil {
		return fmt.Errorf("invalid reward amount: %w", err)
	}

	client, err := chain.NewClient(chain.ClientConfig{
		RPCURL:  cfg.Chain.RPCURL,
		Timeout: cfg.Chain.RequestTimeout.Std(),
	})
	if err != nil {
		return fmt.Errorf("failed to create chain client: %w", err)
	}
	contract, err := chain.NewRewardsContract(client, chain.ContractConfig{
		Address:      cfg.Chain.ContractAddress,
		WaitTimeout:  cfg.Chain.TxWaitTimeout.Std(),
		PollInterval: cfg.Chain.PollInterval.Std(),
	})
	if err != nil {
		return fmt.Errorf("failed to bind rewards contract: %w", err)
	}
	ledger := pipeline.NewChainLedger(contract)

	judge, err := classifier.NewClient(classifier.Config{
		Endpoint: cfg.Classifier.Endpoint,
		APIKey:   cfg.Classifier.APIKey,
		Model:    cfg.Classifier.Model,
		Timeout:  cfg.Classifier.Timeout.Std(),
	})
	if err != nil {
		return fmt.Errorf("failed to create classifier client: %w", err)
	}

	store, cleanup, err := newRegistrationStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	dedupStore, dedupCleanup, err := newDedupStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer dedupCleanup()

	m := metrics.New()
	proc := pipeline.New(ledger, judge, store, pipeline.Config{RewardAmount: rewardAmount}, logger, m)
	api := httpapi.NewServer(proc, ledger, store, dedupStore, logger)

	cycleMonitor := monitor.NewCycleMonitor(ledger, m, logger)
	if err := cycleMonitor.Start(cfg.Monitor.Schedule); err != nil {
		return fmt.Errorf("failed to start cycle monitor: %w", err)
	}
	defer cycleMonitor.Stop()

	router, err := buildRouter(cfg, logger, m, api)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("gateway stopped")
	return nil
}

func buildRouter(cfg *config.Config, logger *logging.Logger, m *metrics.Metrics, api *httpapi.Server) (*mux.Router, error) {
	router := mux.NewRouter()

	tracing := middleware.NewTracingMiddleware(logger)
	cors := middleware.NewCORSMiddleware(cfg.Server.AllowedOrigins)
	router.Use(tracing.Handler, cors.Handler, middleware.MetricsMiddleware("reward-gateway", m))

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)
	limiter.StartCleanup(10 * time.Minute)
	router.Use(limiter.Handler)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	adminRouter := apiRouter.PathPrefix("/admin").Subrouter()

	if cfg.Auth.PublicKeyPath != "" {
		publicKey, err := loadPublicKey(cfg.Auth.PublicKeyPath)
		if err != nil {
			return nil, err
		}
		auth := middleware.NewAuthMiddleware(publicKey, logger, nil)
		apiRouter.Use(auth.Handler)
		adminRouter.Use(middleware.RequireAdmin)
	} else {
		logger.Warn("auth.public_key_path not set, running without authentication")
	}

	api.Register(apiRouter, adminRouter)
	return router, nil
}

func loadPublicKey(path string) (interface{}, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read auth public key: %w", err)
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("failed to parse auth public key: %w", err)
	}
	return key, nil
}

func newRegistrationStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (storage.RegistrationStore, func(), error) {
	if cfg.Storage.PostgresDSN == "" {
		logger.Info("using in-memory registration store")
		return memory.New(), func() {}, nil
	}

	store, err := postgres.Open(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open postgres store: %w", err)
	}
	logger.Info("using postgres registration store")
	return store, func() { _ = store.Close() }, nil
}

func newDedupStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (dedup.Store, func(), error) {
	if cfg.Redis.Addr == "" {
		logger.Info("using in-memory dedup store")
		return dedup.NewMemoryStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("using redis dedup store")
	return dedup.NewRedisStore(client, cfg.Redis.DedupTTL.Std()), func() { _ = client.Close() }, nil
}
