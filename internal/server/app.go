// Package server wires storage, services and transports together and runs
// the HTTP and gRPC servers until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/events"
	"github.com/dmitrijs2005/gophauth/internal/server/httpapi"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/storage"
	"github.com/dmitrijs2005/gophauth/internal/server/telemetry"
	"github.com/dmitrijs2005/gophauth/internal/server/validation"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
)

const serviceName = "gophauth"

type App struct {
	config *config.Config
	logger logging.Logger
	core   *Core
}

// Core is the storage and service graph shared by the server and the admin
// tool.
type Core struct {
	DB        *sql.DB
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Gateway   *services.AuthService
}

// Bootstrap opens the database, applies migrations and builds the services.
func Bootstrap(ctx context.Context, c *config.Config, logger logging.Logger) (*Core, error) {
	db, err := storage.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if c.NATSURL != "" {
		p, err := events.NewNATSPublisher(c.NATSURL, serviceName)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("nats init error: %w", err)
		}
		publisher = p
	}

	m := metrics.New()

	accounts := services.NewAccountService(db, rm, c, publisher, logger)
	tokens, err := services.NewTokenService(db, rm, c, services.WithTokenLogger(logger))
	if err != nil {
		publisher.Close()
		_ = db.Close()
		return nil, fmt.Errorf("token service init error: %w", err)
	}
	avatars := services.NewAvatarService(c)

	gateway := services.NewAuthService(accounts, tokens, avatars, validation.NewValidator(accounts), logger,
		services.WithRecorder(m))

	return &Core{DB: db, Publisher: publisher, Metrics: m, Gateway: gateway}, nil
}

// Close drains the publisher and closes the database.
func (c *Core) Close() error {
	c.Publisher.Close()
	return c.DB.Close()
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	core, err := Bootstrap(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	return &App{config: c, logger: logger, core: core}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.core.Gateway)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc, tracing httpapi.Middleware) {
	api := httpapi.New(app.core.Gateway, app.logger)
	handler := api.Routes(httpapi.Options{
		AllowedOrigins: app.config.AllowedOrigins,
		LoginRateLimit: app.config.LoginRateLimit,
		Metrics:        app.core.Metrics.Handler(),
		Observer:       app.core.Metrics,
		Tracing:        tracing,
	})

	s := httpapi.NewServer(app.config.EndpointAddrHTTP, handler, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "HTTP server failed", "error", err)
		cancelFunc()
	}
}

// Run blocks until a signal arrives or one of the servers fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	shutdownTracing, tracing, err := telemetry.Init(ctx, serviceName, app.config.OTLPEndpoint)
	if err != nil {
		app.logger.Warn(ctx, "tracing disabled", "error", err)
		shutdownTracing, tracing = nil, nil
	}

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc, tracing)
	}()

	wg.Wait()

	app.close(context.WithoutCancel(ctx), shutdownTracing)
}

func (app *App) close(ctx context.Context, shutdownTracing telemetry.ShutdownFunc) {
	if shutdownTracing != nil {
		if err := shutdownTracing(ctx); err != nil {
			app.logger.Warn(ctx, "tracing shutdown failed", "error", err)
		}
	}
	if err := app.core.Close(); err != nil {
		app.logger.Error(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
