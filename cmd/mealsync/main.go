// Package main runs the MealSync API server
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/omq/mealsync/internal/infrastructure/config"
	"github.com/omq/mealsync/internal/infrastructure/container"
	"go.uber.org/fx"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to ./config.yaml or ./config/config.yaml)")
	flag.Parse()

	shutdownTimeout := 30 * time.Second
	app := fx.New(
		fx.NopLogger,
		container.Options(*configPath),
		fx.Invoke(func(cfg *config.Config) {
			if cfg.Server.ShutdownTimeout > 0 {
				shutdownTimeout = cfg.Server.ShutdownTimeout
			}
		}),
	)
	if err := app.Err(); err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start MealSync: %v", err)
	}

	select {
	case <-ctx.Done():
	case sig := <-app.Wait():
		if sig.ExitCode != 0 {
			defer os.Exit(sig.ExitCode)
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Printf("Failed to stop MealSync gracefully: %v", err)
	}
}
