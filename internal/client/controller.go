// Package client drives an Aeolius session for a front-end: credential
// exchange with the user's PDS, profile lookup, and reading, saving and
// deleting the configuration stored by the manager.
package client

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/aussiebroadwan/aeolius/pkg/aeoliussdk"
)

var (
	ErrMissingCredentials = errors.New("username, password and service are required")
	ErrNotSignedIn        = errors.New("not signed in")
	ErrStale              = errors.New("superseded by a newer login or logout")
)

// FailureFunc reports an error to the user. loggedOut is set when the
// failure ended the session.
type FailureFunc func(err error, loggedOut bool)

// Controller is the session state machine. All transitions go through one
// reducer under a mutex, so it may be driven from several goroutines.
//
// Each Login starts a new generation and Logout ends one. Results of
// operations started in an older generation are dropped and reported as
// ErrStale.
type Controller struct {
	api       *aeoliussdk.Client
	logger    *slog.Logger
	onFailure FailureFunc

	mu        sync.Mutex
	m         model
	inflight  int
	observers map[int]func(Snapshot)
	nextID    int

	// notifyMu keeps observers seeing snapshots in order.
	notifyMu sync.Mutex
}

// NewController creates a signed out controller talking to the manager
// through api. onFailure may be nil.
func NewController(api *aeoliussdk.Client, logger *slog.Logger, onFailure FailureFunc) *Controller {
	return &Controller{
		api:       api,
		logger:    logger,
		onFailure: onFailure,
		observers: map[int]func(Snapshot){},
	}
}

// Subscribe registers fn to receive every published snapshot. fn must not
// call back into the controller. The returned func unsubscribes.
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.observers[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m.snapshot(c.inflight)
}

// Session returns the PDS session, or nil when signed out.
func (c *Controller) Session() *aeoliussdk.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m.session
}

// Login exchanges the credentials for a session, fetches the profile and
// loads the configuration, provisioning the defaults for new accounts.
//
// Authentication failures end the session. A failure to load the
// configuration leaves the session signed in with the default
// configuration and is returned.
func (c *Controller) Login(ctx context.Context, identifier, password, service string) error {
	if identifier == "" || password == "" || service == "" {
		return ErrMissingCredentials
	}

	c.begin()
	defer c.end()

	gen := c.startLogin()

	sess, err := aeoliussdk.NewIdentityClient(service).Login(ctx, identifier, password)
	if err != nil {
		return c.fail(gen, err, true)
	}
	if !c.dispatch(event{kind: evSessionCreated, gen: gen, session: sess}) {
		return ErrStale
	}

	avatar, err := sess.Avatar(ctx)
	if err != nil {
		return c.fail(gen, err, true)
	}

	cc, err := c.api.Configuration(sess.Service(), sess.AccessToken(), sess.RefreshToken())
	if err != nil {
		return c.fail(gen, err, true)
	}
	if !c.dispatch(event{kind: evProfileFetched, gen: gen, avatar: avatar, config: cc}) {
		return ErrStale
	}

	return c.load(ctx, gen, cc)
}

// Reload fetches the configuration again.
func (c *Controller) Reload(ctx context.Context) error {
	gen, cc, err := c.signedIn()
	if err != nil {
		return err
	}

	c.begin()
	defer c.end()

	if !c.dispatch(event{kind: evConfigRequested, gen: gen}) {
		return ErrStale
	}
	return c.load(ctx, gen, cc)
}

// Save replaces the remote configuration and returns what the manager
// stored. Failures keep the session.
func (c *Controller) Save(ctx context.Context, cfg aeoliussdk.Configuration) (*aeoliussdk.Configuration, error) {
	gen, cc, err := c.signedIn()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, c.fail(gen, err, false)
	}

	c.begin()
	defer c.end()

	if !c.dispatch(event{kind: evSaveStarted, gen: gen}) {
		return nil, ErrStale
	}

	stored, err := cc.Update(ctx, cfg)
	if err != nil {
		return nil, c.fail(gen, err, false)
	}
	if !c.dispatch(event{kind: evConfigLoaded, gen: gen, cfg: stored}) {
		return nil, ErrStale
	}
	return stored, nil
}

// Delete removes the remote configuration and ends the session, whether
// the removal succeeded or not.
func (c *Controller) Delete(ctx context.Context) error {
	gen, cc, err := c.signedIn()
	if err != nil {
		return err
	}

	c.begin()
	defer c.end()

	if !c.dispatch(event{kind: evDeleteStarted, gen: gen}) {
		return ErrStale
	}

	err = cc.Delete(ctx)
	if !c.dispatch(event{kind: evLoggedOut, gen: gen, err: err}) {
		return ErrStale
	}
	if err != nil {
		c.report(err, true)
		return err
	}
	return nil
}

// Logout ends the session. In-flight operations become stale.
func (c *Controller) Logout() {
	c.dispatch(event{kind: evLoggedOut, current: true})
}

// Export returns what the manager stores about the signed in user, minus
// credentials.
func (c *Controller) Export() (aeoliussdk.ExportedData, error) {
	s := c.Snapshot()
	if !s.SignedIn || s.Configuration == nil {
		return aeoliussdk.ExportedData{}, ErrNotSignedIn
	}

	return aeoliussdk.ExportedData{
		DID:     s.DID,
		Service: s.Service,
		Enabled: s.Configuration.Enabled,
		PostTTL: s.Configuration.PostTTL,
	}, nil
}

func (c *Controller) load(ctx context.Context, gen uint64, cc *aeoliussdk.ConfigurationClient) error {
	cfg, err := cc.Get(ctx)
	if err != nil {
		return c.fail(gen, err, false)
	}
	if !c.dispatch(event{kind: evConfigLoaded, gen: gen, cfg: cfg}) {
		return ErrStale
	}
	return nil
}

func (c *Controller) signedIn() (uint64, *aeoliussdk.ConfigurationClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.m.config == nil {
		return 0, nil, ErrNotSignedIn
	}
	return c.m.gen, c.m.config, nil
}

// fail records err for generation gen and reports it, unless gen is stale.
func (c *Controller) fail(gen uint64, err error, loggedOut bool) error {
	if !c.dispatch(event{kind: evFailed, gen: gen, err: err, loggedOut: loggedOut}) {
		return ErrStale
	}
	c.report(err, loggedOut)
	return err
}

func (c *Controller) report(err error, loggedOut bool) {
	c.logger.Debug("session operation failed", "error", err, "logged_out", loggedOut)
	if c.onFailure != nil {
		c.onFailure(err, loggedOut)
	}
}

func (c *Controller) startLogin() uint64 {
	c.mu.Lock()
	c.m.reduce(event{kind: evLoginStarted, current: true})
	gen := c.m.gen
	c.publishLocked()
	return gen
}

func (c *Controller) dispatch(ev event) bool {
	c.mu.Lock()
	if !c.m.reduce(ev) {
		c.mu.Unlock()
		return false
	}
	c.publishLocked()
	return true
}

func (c *Controller) begin() {
	c.mu.Lock()
	c.inflight++
	c.publishLocked()
}

func (c *Controller) end() {
	c.mu.Lock()
	c.inflight--
	c.publishLocked()
}

// publishLocked sends the current snapshot to all observers and releases
// c.mu.
func (c *Controller) publishLocked() {
	snap := c.m.snapshot(c.inflight)

	observers := make([]func(Snapshot), 0, len(c.observers))
	for _, id := range slices.Sorted(maps.Keys(c.observers)) {
		observers = append(observers, c.observers[id])
	}

	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}
