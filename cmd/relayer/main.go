// Copyright 2025 Interlayer Labs
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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/interlayer-labs/relayer-core/pkg/config"
	"github.com/interlayer-labs/relayer-core/pkg/logging"
	"github.com/interlayer-labs/relayer-core/pkg/relayer"
)

func main() {
	var configPath = flag.String("config", ".", "directory to search for relayer.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "relayer: load config: %v\n", err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "relayer: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.NewLogger(&logging.Config{Level: level, Format: cfg.LogFormat, Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "relayer: init logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobalLogger(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rel, err := relayer.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("relayer: initialize", logging.Field{Key: "error", Value: err.Error()})
	}

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped", logging.Field{Key: "error", Value: err.Error()})
		}
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- rel.Run(ctx) }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("shutdown signal received")
	case err := <-runErr:
		if err != nil && err != context.Canceled {
			log.Error("relayer stopped with error", logging.Field{Key: "error", Value: err.Error()})
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	log.Info("relayer stopped")
}
