// Package worker deletes posts older than each account's configured TTL.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aussiebroadwan/aeolius/internal/aeolius/domain"
	"github.com/aussiebroadwan/aeolius/internal/aeolius/store"
	"github.com/aussiebroadwan/aeolius/pkg/aeoliussdk"
	"github.com/aussiebroadwan/aeolius/pkg/atproto"
	"github.com/aussiebroadwan/aeolius/pkg/cryptox"
	"github.com/aussiebroadwan/aeolius/pkg/idx"
	"github.com/aussiebroadwan/aeolius/pkg/jwtx"
	"github.com/jonboulle/clockwork"
)

// Listing is capped at 100 records per call by PDSes.
const maxListRecordsLimit = 100

var (
	errBudgetExhausted = errors.New("per-account rate limit budget exhausted")
	errRefreshExpired  = errors.New("stored refresh token has expired")
	errDIDMismatch     = errors.New("refreshed session belongs to another account")
)

// PDS is the part of a PDS the sweeper talks to.
type PDS interface {
	RefreshSession(ctx context.Context, refreshJwt string) (*atproto.Session, error)
	ListRecords(ctx context.Context, accessJwt string, p atproto.ListRecordsParams) (*atproto.ListRecordsOutput, error)
	DeleteRecords(ctx context.Context, accessJwt, repo, collection string, rkeys []string) error
}

// Dialer returns the PDS at a service URL.
type Dialer func(service string) PDS

// XRPCDialer dials PDSes over XRPC, sharing hc between them when set.
func XRPCDialer(hc *http.Client) Dialer {
	return func(service string) PDS {
		c := atproto.NewClient(service)
		if hc != nil {
			c.HTTPClient = hc
		}
		return c
	}
}

// Config tunes a sweep.
type Config struct {
	// PointsPerDID caps the rate limit points one account may use per sweep.
	PointsPerDID int

	// ListRecordsLimit is the page size of listRecords calls.
	ListRecordsLimit int

	// ApplyWritesLimit is the number of deletes per applyWrites call.
	ApplyWritesLimit int

	// DryRun finds posts to delete without deleting them.
	DryRun bool
}

// Sweeper deletes expired posts of all enabled configurations. Sweeps never
// overlap; a sweep started while another runs waits for it.
type Sweeper struct {
	Store   store.Store
	Sealer  *cryptox.Sealer
	Dial    Dialer
	Limiter *atproto.Limiter
	Clock   clockwork.Clock
	Logger  *slog.Logger
	Config  Config

	mu sync.Mutex
}

// NewSweeper creates a sweeper, filling out-of-range settings with the
// defaults PDSes document.
func NewSweeper(st store.Store, sealer *cryptox.Sealer, dial Dialer, limiter *atproto.Limiter, clock clockwork.Clock, logger *slog.Logger, cfg Config) *Sweeper {
	if cfg.PointsPerDID <= 0 {
		cfg.PointsPerDID = 200
	}
	if cfg.ListRecordsLimit <= 0 || cfg.ListRecordsLimit > maxListRecordsLimit {
		cfg.ListRecordsLimit = maxListRecordsLimit
	}
	if cfg.ApplyWritesLimit <= 0 {
		cfg.ApplyWritesLimit = 10
	}

	return &Sweeper{
		Store:   st,
		Sealer:  sealer,
		Dial:    dial,
		Limiter: limiter,
		Clock:   clock,
		Logger:  logger,
		Config:  cfg,
	}
}

// Sweep runs one pass over all enabled configurations. Failures of single
// accounts are logged and skipped; only a failure to list configurations or
// a cancelled ctx is returned, together with the statistics so far.
func (s *Sweeper) Sweep(ctx context.Context) (aeoliussdk.Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.Logger.With("sweep_id", idx.New().String())
	start := s.Clock.Now()
	spent, throttled := s.Limiter.Spent(), s.Limiter.Throttled()

	stats := aeoliussdk.Statistics{DryRun: s.Config.DryRun}
	finish := func() aeoliussdk.Statistics {
		stats.SpentPoints = s.Limiter.Spent() - spent
		stats.Throttled = s.Limiter.Throttled() - throttled
		stats.SpentTime = int64(s.Clock.Since(start))
		return stats
	}

	configs, err := s.Store.Configurations().ListEnabled(ctx)
	if err != nil {
		return finish(), fmt.Errorf("could not list configurations: %w", err)
	}

	log.Info("sweep started", "configurations", len(configs), "dry_run", s.Config.DryRun)

	for _, c := range configs {
		n, err := s.sweepAccount(ctx, log.With("did", c.DID), c)
		stats.PostsDeleted += n

		if ctx.Err() != nil {
			finish()
			log.Warn("sweep aborted", "error", ctx.Err(), "posts_deleted", stats.PostsDeleted)
			return stats, ctx.Err()
		}
		if err != nil {
			log.Warn("skipping configuration", "did", c.DID, "error", err)
		}
	}

	finish()
	log.Info("sweep completed",
		"spent_points", stats.SpentPoints,
		"spent_time", time.Duration(stats.SpentTime),
		"throttled", stats.Throttled,
		"posts_deleted", stats.PostsDeleted,
		"dry_run", stats.DryRun,
	)
	return stats, nil
}

// sweepAccount deletes the expired posts of one account and returns how many
// it deleted, or would have in a dry run.
func (s *Sweeper) sweepAccount(ctx context.Context, log *slog.Logger, c domain.Configuration) (int, error) {
	refresh, err := s.Sealer.Open(c.RefreshJWT)
	if err != nil {
		return 0, fmt.Errorf("could not open refresh token: %w", err)
	}

	// Save a round trip for tokens that are known to be dead. Undecodable
	// tokens are left for the PDS to judge.
	if claims, err := jwtx.Peek(refresh); err == nil && claims.ExpiredAt(s.Clock.Now(), time.Minute) {
		return 0, errRefreshExpired
	}

	pds := s.Dial(c.Service)
	sess, err := pds.RefreshSession(ctx, refresh)
	if err != nil {
		return 0, fmt.Errorf("could not refresh session: %w", err)
	}
	if sess.DID != c.DID {
		return 0, fmt.Errorf("%w: %s", errDIDMismatch, sess.DID)
	}

	// The old refresh token is spent now, store the new one before anything
	// else can fail.
	sealed, err := s.Sealer.Seal(sess.RefreshJwt)
	if err != nil {
		return 0, fmt.Errorf("could not seal refresh token: %w", err)
	}
	cursor := c.Cursor
	save := func() error {
		if err := s.Store.Configurations().UpdateSweepState(ctx, c.DID, sealed, cursor); err != nil {
			return fmt.Errorf("could not save sweep state: %w", err)
		}
		return nil
	}
	if err := save(); err != nil {
		return 0, err
	}

	cutoff := s.Clock.Now().AddDate(0, -c.PostTTL, 0)
	budget := s.Config.PointsPerDID
	spend := func(points int) error {
		if budget < points {
			return errBudgetExhausted
		}
		if err := s.Limiter.Spend(ctx, points); err != nil {
			return err
		}
		budget -= points
		return nil
	}

	deleted := 0
	flush := func(rkeys []string) error {
		if s.Config.DryRun {
			deleted += len(rkeys)
			return nil
		}
		if err := spend(atproto.PointsDelete); err != nil {
			return err
		}
		if err := pds.DeleteRecords(ctx, sess.AccessJwt, c.DID, atproto.CollectionPost, rkeys); err != nil {
			return fmt.Errorf("could not delete posts: %w", err)
		}
		deleted += len(rkeys)
		cursor = rkeys[len(rkeys)-1]
		return save()
	}

	err = s.collect(ctx, log, pds, sess.AccessJwt, c, cutoff, spend, flush)
	if errors.Is(err, errBudgetExhausted) {
		log.Debug("rate limit budget exhausted", "points", s.Config.PointsPerDID, "posts_deleted", deleted)
		err = nil
	}
	if err != nil {
		return deleted, err
	}

	log.Debug("account swept", "posts_deleted", deleted, "cursor", cursor)
	return deleted, nil
}

// collect pages through the account's posts oldest first, handing batches of
// rkeys older than cutoff to flush. It stops at the first newer post.
func (s *Sweeper) collect(
	ctx context.Context,
	log *slog.Logger,
	pds PDS,
	accessJwt string,
	c domain.Configuration,
	cutoff time.Time,
	spend func(points int) error,
	flush func(rkeys []string) error,
) error {
	var pending []string
	listCursor := c.Cursor

	for done := false; !done; {
		if err := spend(atproto.PointsGet); err != nil {
			return err
		}

		out, err := pds.ListRecords(ctx, accessJwt, atproto.ListRecordsParams{
			Repo:       c.DID,
			Collection: atproto.CollectionPost,
			Limit:      s.Config.ListRecordsLimit,
			Cursor:     listCursor,
			Reverse:    true,
		})
		if err != nil {
			return fmt.Errorf("could not list posts: %w", err)
		}

		for _, rec := range out.Records {
			createdAt, err := rec.CreatedAt()
			if err != nil {
				log.Warn("stopping at unreadable post", "uri", rec.URI, "error", err)
				done = true
				break
			}
			if !createdAt.Before(cutoff) {
				done = true
				break
			}

			uri, err := atproto.ParseATURI(rec.URI)
			if err != nil {
				log.Warn("stopping at unreadable post", "uri", rec.URI, "error", err)
				done = true
				break
			}
			pending = append(pending, uri.Rkey)
		}

		for len(pending) >= s.Config.ApplyWritesLimit {
			if err := flush(pending[:s.Config.ApplyWritesLimit]); err != nil {
				return err
			}
			pending = pending[s.Config.ApplyWritesLimit:]
		}

		if out.Cursor == "" || len(out.Records) < s.Config.ListRecordsLimit {
			done = true
		}
		listCursor = out.Cursor
	}

	if len(pending) > 0 {
		return flush(pending)
	}
	return nil
}
