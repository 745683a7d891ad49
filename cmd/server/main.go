package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	h "newsharvest/internal/api/http"
	cfgpkg "newsharvest/internal/config"
	"newsharvest/internal/crawl"
	"newsharvest/internal/llm"
	"newsharvest/internal/progress"
	svc "newsharvest/internal/service"
	"newsharvest/internal/store"
)

func main() {

	cfg, err := cfgpkg.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	cfgpkg.SetupLogger(cfg)
	slog.Info("configuration loaded successfully")

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	pool, err := llm.NewPool(llm.PoolConfig{
		Endpoint:      cfg.LLMEndpoint,
		APIKey:        cfg.LLMAPIKey,
		Model:         cfg.LLMModel,
		Size:          cfg.LLMPoolSize,
		MaxTokens:     cfg.LLMMaxTokens,
		ContextWindow: cfg.LLMContextWindow,
	})
	if err != nil {
		slog.Error("failed to create llm session pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var bus progress.Bus
	var registry progress.Registry
	if cfg.BusBackend == "redis" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			slog.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		bus = progress.NewRedisBus(rdb, slog.Default())
		registry = progress.NewRedisRegistry(rdb)
		slog.Info("using redis progress bus", "addr", cfg.RedisAddr)
	} else {
		bus = progress.NewMemoryBus()
		registry = progress.NewMemoryRegistry()
		slog.Info("using in-memory progress bus")
	}

	states := progress.NewTaskStates()
	reporter := progress.NewBusReporter(bus, states, slog.Default())
	crawler := crawl.NewCrawler(cfg.CrawlTimeout, cfg.CrawlMaxBodySize, slog.Default())

	fetchService := svc.NewFetchService(
		st, st, st, crawler, pool,
		registry, states, reporter,
		cfg.ChunkCount, cfg.MaxConcurrentFetches, slog.Default(),
	)

	handler := h.NewFetchHandler(fetchService, registry, st, slog.Default())
	gateway := h.NewObserverGateway(bus, registry, states, st, slog.Default())
	router := h.NewRouter(handler, gateway, slog.Default())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTPTimeout,
		// No WriteTimeout: observer connections are long-lived streams.
		IdleTimeout: cfg.HTTPTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	if err := fetchService.Shutdown(shutdownCtx); err != nil {
		slog.Error("fetch service shutdown failed", "error", err)
	} else {
		slog.Info("server stopped gracefully")
	}
}
