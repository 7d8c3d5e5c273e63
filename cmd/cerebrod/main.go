// Command cerebrod runs the scripted helpdesk daemon: in-memory store,
// conversation engine, analysis simulator and the REST/WebSocket API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cerebro-io/cerebro/internal/analysis"
	"github.com/cerebro-io/cerebro/internal/api"
	"github.com/cerebro-io/cerebro/internal/config"
	"github.com/cerebro-io/cerebro/internal/engine"
	"github.com/cerebro-io/cerebro/internal/logbuf"
	"github.com/cerebro-io/cerebro/internal/notify"
	"github.com/cerebro-io/cerebro/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Path to config JSON file")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	// Load config (2 modes: file, env)
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Set up logging: JSON to stdout, every record also captured in the
	// ring buffer behind GET /api/logs.
	logLevel, _ := config.ParseLevel(cfg.Logging.Level)
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logBuf := logbuf.New(cfg.Logging.BufferSize)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))

	logger.Info("cerebrod starting")

	// 1. In-memory store, seeded with the demo KB and ticket history.
	st, err := store.New()
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// 2. WebSocket hub for ticket/message invalidation pushes.
	hub := notify.NewHub(logger.With("component", "ws"))

	// 3. Delayed log-analysis simulator.
	sim := analysis.NewSimulator(st, hub,
		time.Duration(cfg.Analysis.DelayMS)*time.Millisecond,
		time.Duration(cfg.Analysis.RerunDelayMS)*time.Millisecond,
		logger.With("component", "analysis"))
	defer sim.Close()

	// 4. Conversation engine.
	eng := engine.New(st, sim, logger.With("component", "engine"))

	// 5. API server.
	srv := api.NewServer(st, eng, sim, hub, hub, logBuf, api.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, logger.With("component", "api"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go safeGo(logger, "api-server", func() { srv.Start(ctx) })
	logger.Info("api server started", "port", cfg.Server.Port)

	// 6. Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()
	sim.Close()
	logger.Info("cerebrod stopped")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
