package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/admin"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := admin.NewRootCommand(connect, os.Stdout).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func connect(ctx context.Context) (admin.Gateway, func(), error) {
	cfg := config.LoadBaseConfig()
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	core, err := server.Bootstrap(ctx, cfg, logging.NewJSONLogger(os.Stderr, cfg.LogLevel))
	if err != nil {
		return nil, nil, err
	}
	return core.Gateway, func() { _ = core.Close() }, nil
}
