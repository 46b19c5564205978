package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-xray-sdk-go/strategy/ctxmissing"
	"github.com/aws/aws-xray-sdk-go/xray"

	"insights-gateway/config"
	"insights-gateway/handlers"
	"insights-gateway/logger"
	"insights-gateway/server"
	"insights-gateway/services"
)

// @title Insights Gateway API
// @version 1.0
// @description Serves the dashboard bundle and runs the insight generation script on demand
// @host localhost:5000
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	// Spans without a parent segment are dropped silently
	if err := xray.Configure(xray.Config{
		ContextMissingStrategy: ctxmissing.NewDefaultIgnoreErrorStrategy(),
	}); err != nil {
		zlog.Fatalw("Failed to configure X-Ray", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	faults := services.NewFaultPolicy(zlog, cfg.IsProduction())

	artifacts, err := services.NewArtifactStore(ctx, cfg.ArtifactStore, cfg.ArtifactBucket)
	if err != nil {
		zlog.Fatalw("Failed to initialize artifact store", "error", err)
	}

	locker, err := services.NewLocker(cfg.LockBackend, cfg.RedisAddr(), cfg.LockTTL, zlog)
	if err != nil {
		zlog.Fatalw("Failed to initialize artifact lock", "error", err)
	}
	health := map[string]handlers.Pinger{}
	if rl, ok := locker.(*services.RedisLocker); ok {
		defer rl.Close()
		health["redis"] = rl
	}

	opts, err := server.InsightOptions(cfg, os.Environ())
	if err != nil {
		zlog.Fatalw("Failed to resolve script paths", "error", err)
	}
	insightService := services.NewInsightService(opts, services.NewProcessRunner(zlog, faults), artifacts, locker, zlog)

	app := server.New(cfg, server.Deps{
		Insights: insightService,
		Health:   health,
		Log:      zlog,
	})

	zlog.Infow("Environment check",
		"mode", cfg.Mode,
		"port", cfg.Port,
		"openaiKeySet", os.Getenv("OPENAI_API_KEY") != "")

	go func() {
		<-ctx.Done()
		zlog.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			zlog.Errorw("Shutdown failed", "error", err)
		}
	}()

	zlog.Infow("Server starting",
		"mode", cfg.Mode,
		"port", cfg.Port,
		"interpreter", opts.Program,
		"script", opts.ScriptPath,
		"buildDir", cfg.BuildDir,
		"exportDir", cfg.ExportDir,
		"lockBackend", cfg.LockBackend,
		"artifactStore", cfg.ArtifactStore)
	if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		zlog.Fatalw("Server stopped", "error", err)
	}
}
