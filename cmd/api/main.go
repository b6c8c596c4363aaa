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
	"github.com/empirical-ra/riskengine/pkg/api"
	"github.com/empirical-ra/riskengine/pkg/utils/logger"
)

var configFile = flag.String("config", "", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.GetLogger("api.main").Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.GetLogger("api.main")
	log.Info("Starting portfolio risk API service")

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to wire application: %v", err)
	}
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go application.Hub.Run(ctx)

	// Warm the report cache so the first /api/v1/analysis request is served
	// immediately.
	if _, err := application.RunOnce(ctx); err != nil {
		log.Errorf("Initial analysis run failed: %v", err)
	}

	server := api.NewServer(cfg.Server, application.Portfolio, application.Engine,
		application.Hub, application.Recorder)
	go func() {
		if err := server.Start(); err != nil {
			log.Errorf("API server error: %v", err)
			cancel()
		}
	}()

	if interval := cfg.Analysis.RerunInterval; interval > 0 {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := application.RunOnce(ctx); err != nil {
						log.Errorf("Scheduled analysis run failed: %v", err)
					}
				}
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		log.Infof("Received signal %v, initiating shutdown", sig)
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("API server shutdown error: %v", err)
	}
	log.Info("API service stopped")
}
