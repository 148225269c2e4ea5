package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lab1702/fleetmind/ai"
	"github.com/lab1702/fleetmind/server"
)

func main() {
	addr := flag.String("addr", "", "Listen address (overrides config)")
	configPath := flag.String("config", "", "Path to YAML config file")
	logLevel := flag.String("log-level", "", "Log level (overrides config)")
	flag.Parse()

	cfg, err := ai.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("config load failed", "err", err)
	}
	if *addr != "" {
		cfg.Listen = *addr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal("bad log level", "level", cfg.LogLevel)
	}
	log.SetLevel(level)

	log.Info("starting fleetmind server", "addr", cfg.Listen, "agents", cfg.Sim.Agents)

	// Create the engine server
	gameServer, err := server.NewServer(cfg)
	if err != nil {
		log.Fatal("server init failed", "err", err)
	}
	go gameServer.Run()

	// Start HTTP server
	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      gameServer.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed to start", "err", err)
		}
	}()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal from OS
	sig := <-sigChan
	log.Info("shutting down", "signal", sig)

	// Create a context with timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Signal game server to stop background goroutines
	gameServer.Shutdown()

	// Shutdown the HTTP server gracefully
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("server shutdown error", "err", err)
	}

	log.Info("server stopped")
	os.Exit(0)
}
