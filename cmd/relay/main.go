package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"sells-service/internal/app"
	"sells-service/internal/config"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[MAIN] No .env file found, relying on system env vars")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := app.NewRelayServer(ctx, config.Load(), logger)
	if err != nil {
		logger.Fatal("failed to start relay", zap.Error(err))
	}

	// Run server in a separate goroutine so we can listen for shutdown signals
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("relay stopped", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down relay")
	}

	// buffered batches are flushed on shutdown and may need an AI round trip
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return
	}
	logger.Info("relay stopped gracefully")
}
