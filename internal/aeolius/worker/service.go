package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Service periodically runs sweeps in the background.
type Service struct {
	Sweeper  *Sweeper
	Logger   *slog.Logger
	Clock    clockwork.Clock
	Interval time.Duration

	// Internal channels for lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	doneCh chan struct{}
}

// NewService creates a sweep service. An interval of 0 or less disables
// periodic sweeps; sweeps then only run when triggered over HTTP.
func NewService(sweeper *Sweeper, logger *slog.Logger, clock clockwork.Clock, interval time.Duration) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		Sweeper:  sweeper,
		Logger:   logger,
		Clock:    clock,
		Interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background loop. It runs a sweep right away and then
// once per interval. Call Stop to shut it down.
func (s *Service) Start() {
	if s.Interval <= 0 {
		close(s.doneCh)
		s.Logger.Info("periodic sweeps disabled")
		return
	}

	go s.run()
	s.Logger.Info("sweep service started", "interval", s.Interval)
}

// Stop cancels an in-progress sweep and waits for the loop to exit. Progress
// is saved after every delete batch, so a cancelled sweep resumes where it
// left off.
func (s *Service) Stop() {
	s.cancel()
	<-s.doneCh
	s.Logger.Info("sweep service stopped")
}

func (s *Service) run() {
	defer close(s.doneCh)

	ticker := s.Clock.NewTicker(s.Interval)
	defer ticker.Stop()

	s.sweep()

	for {
		select {
		case <-ticker.Chan():
			s.sweep()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Service) sweep() {
	if _, err := s.Sweeper.Sweep(s.ctx); err != nil && s.ctx.Err() == nil {
		s.Logger.Error("sweep failed", "error", err)
	}
}
