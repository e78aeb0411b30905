package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/efreitasn/livestock/internal/broadcast"
	"github.com/efreitasn/livestock/internal/config"
	"github.com/efreitasn/livestock/internal/domain"
	"github.com/efreitasn/livestock/internal/engine"
	"github.com/efreitasn/livestock/internal/handler"
	"github.com/efreitasn/livestock/internal/logging"
	"github.com/efreitasn/livestock/internal/metrics"
	"github.com/efreitasn/livestock/internal/pricefeed"
	"github.com/efreitasn/livestock/internal/service"
	"github.com/efreitasn/livestock/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, logCloser := logging.New(logging.Options{
		Level:     cfg.LogLevel,
		File:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
	})
	defer logCloser.Close()
	slog.SetDefault(logger)

	// Metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Stores and registries.
	tradeStore := store.NewTradeStore(cfg.TradeHistoryCap)
	symbols := domain.NewSymbolRegistry(cfg.StockList...)
	books := engine.NewBookRegistry()
	queue := engine.NewOrderQueue()

	// Broadcast sinks.
	hub := broadcast.NewHub(cfg.BroadcastBuffer, nil, m, logger)
	sinks := broadcast.Fanout{hub}
	var kafkaPub *broadcast.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub = broadcast.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.BroadcastTimeout, cfg.BroadcastBuffer, m, logger)
		sinks = append(sinks, kafkaPub)
		logger.Info("kafka publishing enabled",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("topic", cfg.KafkaTopic),
		)
	}

	// Price feed.
	feed := pricefeed.NewClient(cfg.FinnhubBaseURL, cfg.FinnhubAPIKey, cfg.BroadcastTimeout, m, logger)
	var prices service.PriceSource
	var priceCache *pricefeed.PriceCache
	if feed.Configured() {
		priceCache = pricefeed.NewPriceCache(feed, cfg.TrackedSymbols, cfg.PricePollInterval, logger)
		prices = priceCache
	} else {
		logger.Warn("FINNHUB_API_KEY not set, price lookups disabled")
	}

	// Engine and services.
	matchingEngine := engine.NewEngine(queue, books, tradeStore, sinks, m, logger, cfg.BookDepth)
	orderSvc := service.NewOrderService(queue, symbols, m)
	stockSvc := service.NewStockService(books, symbols, prices, cfg.BookDepth)
	tradeSvc := service.NewTradeService(tradeStore)

	// Router.
	router := handler.NewRouter(orderSvc, stockSvc, tradeSvc, hub, m, reg, cfg.CORSOrigins, logger)

	// Background work: matching engine and price poller.
	engineCtx, stopEngine := context.WithCancel(context.Background())
	defer stopEngine()
	matchingEngine.Start(engineCtx)

	pollCtx, stopPolling := context.WithCancel(context.Background())
	defer stopPolling()
	if priceCache != nil {
		go priceCache.Start(pollCtx)
	}

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop accepting requests, close intake, let the
	// engine drain what was already queued, then stop the sinks.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	stopPolling()

	queue.Close()
	select {
	case <-matchingEngine.Done():
	case <-shutdownCtx.Done():
		logger.Warn("matching engine did not drain before shutdown timeout",
			slog.Int("pending_orders", queue.Len()),
		)
		stopEngine()
		select {
		case <-matchingEngine.Done():
		case <-time.After(time.Second):
		}
	}

	hub.Close()
	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			logger.Error("kafka writer close error", slog.String("error", err.Error()))
		}
	}

	logger.Info("server stopped")
}
