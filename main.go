package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"api-router/internal/common/logging"
	"api-router/internal/config"
	"api-router/internal/gateway"
	"api-router/internal/handlers"
	"api-router/internal/metrics"
	"api-router/internal/middleware"
	"api-router/internal/routing"
	"api-router/internal/server"
	"api-router/internal/storage"
)

// defaultDocument seeds the store on first start when no configuration
// exists under the default name.
var defaultDocument = []byte(`[
	{"field": "user", "op": "eq", "value": 1, "location": null, "api_endpoint": "http://localhost:83/data"},
	{"field": "user", "op": "eq", "value": 2, "location": null, "api_endpoint": "http://localhost:83/data2"},
	{"field": "branch", "op": "eq", "value": "kingston", "location": null, "api_endpoint": "http://localhost:83/data3"}
]`)

func main() {
	_ = godotenv.Load()
	logging.Init()
	logger := logging.GetGlobalLogger()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", err)
		os.Exit(1)
	}

	metrics.Register()

	store, err := storage.New(cfg)
	if err != nil {
		logger.Error("failed to initialize config store", err)
		os.Exit(1)
	}
	defer store.Close()

	table := routing.NewTable()
	if err := loadActiveConfig(store, table, cfg); err != nil {
		logger.Error("failed to load routing configuration", err)
		os.Exit(1)
	}
	metrics.ActiveRules.Set(float64(len(table.Rules())))
	logger.Info("routing configuration loaded",
		logging.Int("rules", len(table.Rules())),
		logging.String("config_name", cfg.DefaultConfigName))

	var gwOpts []gateway.Option
	if cfg.CircuitBreakerEnabled {
		gwOpts = append(gwOpts, gateway.WithBreaker(
			gateway.NewBreaker("forwarding", gateway.DefaultBreakerConfig(), logger)))
	}
	gw := gateway.New(
		gateway.NewHTTPClient(gateway.WithTimeout(cfg.ForwardTimeoutDuration())),
		logger, gwOpts...)

	h := handlers.New(store, gw, table, cfg, logger)

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.HandleFunc("/forward", h.Forward).Methods("POST")
	router.HandleFunc("/health", h.Health).Methods("GET")
	router.HandleFunc("/config/filter", h.UpdateConfig).Methods("POST")
	router.HandleFunc("/config/getfilters", h.GetConfig).Methods("GET")
	router.HandleFunc("/config/reload", h.ReloadConfig).Methods("POST")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	srv := server.New(router, cfg.Port)
	errCh := srv.Start()
	logger.Info("server started", logging.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("server failed", err)
	case sig := <-quit:
		logger.Info("shutting down", logging.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", err)
	}

	logging.MustSync()
}

// loadActiveConfig loads the named document from the store (seeding the
// built-in default when absent), publishes it to the table, and writes the
// canonicalized normalized form back so the store always holds the
// list-of-rules shape.
func loadActiveConfig(store storage.Storage, table *routing.Table, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	document := defaultDocument
	record, err := store.LoadConfig(ctx, cfg.DefaultConfigName)
	switch {
	case err == nil:
		document = record.Document
	case errors.Is(err, storage.ErrNotFound):
		// first start, seed the default
	default:
		return err
	}

	rules := table.Publish(document)

	canonical, err := rules.Document()
	if err != nil {
		return err
	}
	if err := store.SaveConfig(ctx, cfg.DefaultConfigName, canonical); err != nil {
		return err
	}
	table.Publish(canonical)
	return nil
}
