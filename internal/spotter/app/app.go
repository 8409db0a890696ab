package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/carspotters/spotter/internal/spotter/http"
	"github.com/carspotters/spotter/internal/spotter/service"
	"github.com/carspotters/spotter/internal/spotter/store"
	"github.com/carspotters/spotter/internal/spotter/store/drivers/sqlite"
	"github.com/carspotters/spotter/pkg/fireauth"
	"github.com/carspotters/spotter/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the spotter service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         store.Store
	credential *fireauth.SigningCredential
	provider   fireauth.ProviderClient
	gateway    *fireauth.Gateway

	// Services
	sessionService *service.SessionService
	authService    *service.AuthService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "spotter-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initProvider(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("spotter auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down spotter auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("spotter auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initProvider initializes the signing credential, the identity provider
// client and the bearer token gateway
func (app *Application) initProvider() error {
	credential, err := fireauth.NewSigningCredential(
		app.cfg.FirebaseProjectID,
		app.cfg.FirebaseClientEmail,
		[]byte(app.cfg.FirebasePrivateKey),
	)
	if err != nil {
		return fmt.Errorf("failed to load signing credential: %w", err)
	}
	app.credential = credential

	app.provider = fireauth.NewRESTClient(credential, app.cfg.FirebaseWebKey)

	app.gateway = &fireauth.Gateway{
		Codec: &fireauth.Codec{Credential: credential},
		Classifier: fireauth.Classifier{
			ProjectID:           app.cfg.FirebaseProjectID,
			ServiceAccountEmail: app.cfg.FirebaseClientEmail,
		},
		Provider: app.provider,
	}

	if app.cfg.FirebaseWebKey == "" {
		app.logger.Warn("no web API key configured, login will not verify passwords")
	}
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.sessionService = &service.SessionService{
		Codec:  app.gateway.Codec,
		MaxAge: app.cfg.RefreshMaxAge,
	}

	app.authService = &service.AuthService{
		Provider:       app.provider,
		Store:          app.db,
		Sessions:       app.sessionService,
		VerifyPassword: app.cfg.FirebaseWebKey != "",
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.gateway,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AuthService = app.authService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
