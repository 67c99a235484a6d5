// Package hybridctl wires the command bridge, routing engine, and their
// collaborators from one configuration. It is a convenience layer for
// embedders; the subpackages can also be assembled by hand.
//
//	cfg := config.Default()
//	sys, err := hybridctl.New(&cfg, logger, nil)
//	if err != nil { ... }
//	if err := sys.Start(ctx); err != nil { ... }
//	defer sys.Close()
//
//	instruction := sys.Engine.Click(ctx, "Sign in button")
package hybridctl

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/agenthybrid/hybridctl/bridge"
	"github.com/agenthybrid/hybridctl/config"
	"github.com/agenthybrid/hybridctl/history"
	"github.com/agenthybrid/hybridctl/internal/metrics"
	"github.com/agenthybrid/hybridctl/routing"
	"github.com/agenthybrid/hybridctl/visual"
	"github.com/agenthybrid/hybridctl/window"
)

// System is the assembled hybrid control stack. The bridge endpoint is the
// only component with a lifecycle; Start and Close manage it.
type System struct {
	Bridge   *bridge.Bridge
	Endpoint *bridge.Endpoint
	Engine   *routing.Engine
	Recorder *history.Recorder // nil when history is disabled
}

// New assembles a system from configuration. The collector may be nil to
// run without metrics.
func New(cfg *config.Config, logger *zap.Logger, collector *metrics.Collector) (*System, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := bridge.NewRegistry(logger)
	endpoint := bridge.NewEndpoint(bridge.EndpointConfig{
		Host:      cfg.Bridge.Host,
		Port:      cfg.Bridge.Port,
		ReadLimit: cfg.Bridge.ReadLimitBytes,
	}, registry, logger, collector)
	br := bridge.New(endpoint, registry, logger, collector)

	engineOpts := []routing.Option{
		routing.WithTimeout(cfg.Routing.CallTimeout),
		routing.WithLogger(logger),
	}
	if collector != nil {
		engineOpts = append(engineOpts, routing.WithMetrics(collector))
	}

	var recorder *history.Recorder
	if cfg.History.Enabled {
		db, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		recorder, err = history.NewRecorder(db, logger)
		if err != nil {
			return nil, fmt.Errorf("init history store: %w", err)
		}
		engineOpts = append(engineOpts, routing.WithRecorder(recorder))
	}

	engine := routing.NewEngine(
		br,
		window.NewSystemClassifier(logger),
		visual.NewScriptExecutor(logger),
		engineOpts...,
	)

	return &System{
		Bridge:   br,
		Endpoint: endpoint,
		Engine:   engine,
		Recorder: recorder,
	}, nil
}

// Start binds the bridge listener.
func (s *System) Start(ctx context.Context) error {
	return s.Endpoint.Start(ctx)
}

// Close shuts the bridge down, unblocking every in-flight call.
func (s *System) Close() error {
	return s.Endpoint.Close()
}
