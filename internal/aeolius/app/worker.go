package app

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	httpapi "github.com/aussiebroadwan/aeolius/internal/aeolius/http"
	"github.com/aussiebroadwan/aeolius/internal/aeolius/store"
	"github.com/aussiebroadwan/aeolius/internal/aeolius/worker"
	"github.com/aussiebroadwan/aeolius/pkg/atproto"
	"github.com/jonboulle/clockwork"
)

var errMissingAPIKey = errors.New("WORKER_API_KEY is required")

// Worker is the worker application: periodic sweeps plus the sweep trigger.
type Worker struct {
	cfg    WorkerConfig
	logger *slog.Logger

	db      store.Store
	sweeper *worker.Sweeper
	service *worker.Service

	server *http.Server
}

// NewWorker creates a worker with all dependencies initialized.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.APIKey == "" {
		return nil, errMissingAPIKey
	}

	w := &Worker{
		cfg:    cfg,
		logger: newLogger("aeolius-worker", cfg.Config),
	}

	sealer, err := initSealer(cfg.Config, w.logger)
	if err != nil {
		return nil, err
	}

	db, err := initDatabase(cfg.Config, w.logger)
	if err != nil {
		return nil, err
	}
	w.db = db

	clock := clockwork.NewRealClock()
	limiter := atproto.NewLimiter(cfg.RateLimitPointsGlobal, cfg.RateLimitResetInterval, clock, func(wait time.Duration) {
		w.logger.Info("pausing until rate limit budget refills", "wait", wait)
	})

	w.sweeper = worker.NewSweeper(
		db,
		sealer,
		worker.XRPCDialer(&http.Client{Timeout: 30 * time.Second}),
		limiter,
		clock,
		w.logger,
		worker.Config{
			PointsPerDID:     cfg.RateLimitPointsDID,
			ListRecordsLimit: cfg.ListRecordsLimit,
			ApplyWritesLimit: cfg.ApplyWritesLimit,
			DryRun:           cfg.DryRun,
		},
	)
	w.service = worker.NewService(w.sweeper, w.logger, clock, cfg.SweepInterval)

	router := httpapi.NewRouter(BuildVersion, db, w.logger)
	router.Sweeper = w.sweeper
	router.WorkerAPIKey = cfg.APIKey
	router.ApplyWorkerRoutes()

	w.server = newServer(cfg.Port, router)
	return w, nil
}

// Run starts sweeping and serving and blocks until shutdown is requested
func (w *Worker) Run() error {
	w.service.Start()

	w.logger.Info("worker starting", "port", w.cfg.Port, "version", BuildVersion, "dry_run", w.cfg.DryRun)
	return serve(w.server, w.logger, w.Shutdown)
}

// Shutdown gracefully shuts down the worker
func (w *Worker) Shutdown() error {
	w.logger.Info("shutting down worker...")

	shutdownServer(w.server, w.logger, w.cfg.ShutdownGracePeriod)
	w.service.Stop()

	if err := w.db.Close(); err != nil {
		w.logger.Error("error closing database", "error", err)
		return err
	}

	w.logger.Info("worker stopped")
	return nil
}
