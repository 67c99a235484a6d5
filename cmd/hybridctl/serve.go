package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/agenthybrid/hybridctl"
	"github.com/agenthybrid/hybridctl/config"
	"github.com/agenthybrid/hybridctl/internal/metrics"
	"github.com/agenthybrid/hybridctl/internal/telemetry"
)

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting hybridctl",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	collector := metrics.NewCollector("hybridctl", logger)

	sys, err := hybridctl.New(cfg, logger, collector)
	if err != nil {
		logger.Fatal("failed to assemble system", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sys.Start(ctx); err != nil {
		logger.Fatal("failed to start bridge endpoint", zap.Error(err))
	}

	opsServer := startOpsServer(cfg.Server.MetricsAddr, sys, logger)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ops server shutdown", zap.Error(err))
	}
	if err := sys.Close(); err != nil {
		logger.Warn("bridge shutdown", zap.Error(err))
	}
	if otelProviders != nil {
		if err := otelProviders.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}

	logger.Info("hybridctl stopped")
}

// startOpsServer serves Prometheus metrics and the health endpoint.
func startOpsServer(addr string, sys *hybridctl.System, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		peerID, since, attached := sys.Endpoint.Peer()
		status := map[string]any{
			"state":          string(sys.Endpoint.State()),
			"peer_connected": attached,
		}
		if attached {
			status["peer_id"] = peerID
			status["peer_since"] = since.Format(time.RFC3339)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Info("ops endpoint listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server stopped", zap.Error(err))
		}
	}()
	return srv
}

// runHealthCheck probes a running instance's health endpoint.
func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:9334", "Metrics address of the running instance")
	fs.Parse(args)

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/healthz", *addr))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var status map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: invalid response: %v\n", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(status, "", "  ")
	fmt.Println(string(out))
}
