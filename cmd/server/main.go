package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kvwebserver/internal/config"
	"kvwebserver/internal/dispatch"
	"kvwebserver/internal/httpserver"
	"kvwebserver/internal/logging"
	"kvwebserver/internal/reactor"

	"go.uber.org/zap"
)

// usage: server <port>. All other knobs (worker count, MAX_FD,
// TIMESLOT, index capacities) are env-var-overridable, see
// internal/config; there are no flags.
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: server <port>")
		os.Exit(1)
	}

	cfg := config.Load()
	cfg.Addr = ":" + os.Args[1]

	log := logging.New()
	defer log.Sync()

	engine := dispatch.NewEngine(cfg.ArrayCapacity, cfg.HashBuckets, cfg.TreeCapacity)
	router := httpserver.NewRouter(engine, log)
	r := reactor.New(cfg, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info("shutdown signal received")
		cancel()
	}()

	go func() {
		ticker := time.NewTicker(cfg.TimeSlot)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				engine.ObserveMetrics()
			}
		}
	}()

	log.Info("kv server starting", zap.String("addr", cfg.Addr), zap.Int("workers", cfg.Workers))
	if err := r.Run(ctx); err != nil {
		log.Error("server exited with error", zap.Error(err))
		os.Exit(1)
	}
	os.Exit(0)
}
