package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/victor-wayward/ironode/internal/infra/app"
	"github.com/victor-wayward/ironode/internal/infra/config"
)

func main() {
	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

// run wires configuration, signal handling and the HTTP application so main
// stays a thin exit-code adapter. A missing .env file is not an error since
// production deployments configure through the environment directly.
func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("assemble application: %w", err)
	}

	return application.Run(ctx)
}
