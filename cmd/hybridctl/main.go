// hybridctl runs the browser control bridge: a WebSocket listener the
// browser extension dials into, a routing engine that prefers DOM control
// and falls back to visual grounding, and an operational HTTP surface with
// Prometheus metrics and a health endpoint.
//
// Usage:
//
//	hybridctl serve                        # start the bridge
//	hybridctl serve --config config.yaml   # with a config file
//	hybridctl version                      # show version information
//	hybridctl health                       # probe a running instance
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Version information, injected at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`hybridctl - hybrid DOM/visual browser control bridge

Commands:
  serve      Start the bridge and the metrics endpoint
  version    Show version information
  health     Probe a running instance
  help       Show this help

Flags for serve:
  --config   Path to a YAML config file

Flags for health:
  --addr     Metrics address of the running instance (default 127.0.0.1:9334)`)
}

func printVersion() {
	fmt.Printf("hybridctl %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
}

// newLogger builds the zap logger from config.
func newLogger(level, format string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	cfg.Level = lvl

	return cfg.Build()
}
