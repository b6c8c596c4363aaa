package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/empirical-ra/riskengine/config"
	"github.com/empirical-ra/riskengine/internal/app"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
)

var configFile = flag.String("config", "", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.GetLogger("risk-engine").Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.GetLogger("risk-engine")
	log.Info("Starting portfolio risk engine")

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to wire application: %v", err)
	}
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Infof("Received signal %v, shutting down", sig)
		cancel()
	}()

	if _, err := application.RunOnce(ctx); err != nil {
		log.Fatalf("Analysis run failed: %v", err)
	}

	interval := cfg.Analysis.RerunInterval
	if interval <= 0 {
		log.Info("Single run complete")
		return
	}

	log.Infof("Re-running every %v", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Risk engine stopped")
			return
		case <-ticker.C:
			if _, err := application.RunOnce(ctx); err != nil {
				log.Errorf("Analysis run failed: %v", err)
			}
		}
	}
}
