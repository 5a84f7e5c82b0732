package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/aeolius/internal/aeolius/http"
	"github.com/aussiebroadwan/aeolius/internal/aeolius/service"
	"github.com/aussiebroadwan/aeolius/internal/aeolius/store"
	"github.com/aussiebroadwan/aeolius/internal/aeolius/store/drivers/sqlite"
	"github.com/aussiebroadwan/aeolius/pkg/cryptox"
	"github.com/aussiebroadwan/aeolius/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	masterKeyEnv = "AEOLIUS_MASTER_KEY"
)

// Application is the manager: the configuration API with its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db     store.Store
	sealer *cryptox.Sealer

	// Services
	configurationService *service.ConfigurationService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a manager with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg:    cfg,
		logger: newLogger("aeolius-manager", cfg),
	}

	sealer, err := initSealer(cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.sealer = sealer

	db, err := initDatabase(cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.db = db

	app.configurationService = &service.ConfigurationService{
		Store:  app.db,
		Sealer: app.sealer,
		Dial:   service.XRPCDialer(&http.Client{Timeout: 30 * time.Second}),
		Policy: service.NewServicePolicy(cfg.AllowedServices),
	}
	if len(app.configurationService.Policy.Allowed) == 0 {
		app.logger.Warn("ALLOWED_SERVICES not set, accepting tokens from any PDS")
	}

	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)
	router.ConfigurationService = app.configurationService
	router.AllowedOrigin = cfg.AllowedOrigin
	router.ApplyManagerRoutes()
	app.router = router

	app.server = newServer(cfg.Port, router)
	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("manager starting", "port", app.cfg.Port, "version", BuildVersion)
	return serve(app.server, app.logger, app.Shutdown)
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down manager...")

	shutdownServer(app.server, app.logger, app.cfg.ShutdownGracePeriod)

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("manager stopped")
	return nil
}

func newLogger(name string, cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: name,
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

func newServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// initSealer loads the key refresh tokens are encrypted with at rest.
func initSealer(cfg Config, logger *slog.Logger) (*cryptox.Sealer, error) {
	material, ephemeral, err := cryptox.LoadMasterKey(cfg.MasterKeyPath, masterKeyEnv)
	if err != nil {
		return nil, fmt.Errorf("failed to load master key: %w", err)
	}
	if ephemeral {
		if cfg.Env == "prod" {
			return nil, errors.New("a master key is required in prod: set MASTER_KEY_PATH or " + masterKeyEnv)
		}
		logger.Warn("using ephemeral master key, stored refresh tokens will not survive a restart")
	}

	sealer, err := cryptox.NewSealer(material)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sealer: %w", err)
	}
	return sealer, nil
}

// initDatabase opens the database and applies migrations
func initDatabase(cfg Config, logger *slog.Logger) (store.Store, error) {
	host := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}

	logger.Info("database migrations applied successfully")
	return db, nil
}

// serve runs server until it fails or a shutdown signal arrives, in which
// case shutdown is called.
func serve(server *http.Server, logger *slog.Logger, shutdown func() error) error {
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.ListenAndServe()
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-signals:
		logger.Info("shutdown signal received", "signal", sig)

		if err := shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

func shutdownServer(server *http.Server, logger *slog.Logger, grace time.Duration) {
	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful server shutdown failed", "error", err)
		if err := server.Close(); err != nil {
			logger.Error("error closing server", "error", err)
		}
	}
}
