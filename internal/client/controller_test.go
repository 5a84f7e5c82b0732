package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	aeoliushttp "github.com/aussiebroadwan/aeolius/internal/aeolius/http"
	"github.com/aussiebroadwan/aeolius/internal/aeolius/service"
	"github.com/aussiebroadwan/aeolius/internal/aeolius/store/drivers/sqlite"
	"github.com/aussiebroadwan/aeolius/internal/client"
	"github.com/aussiebroadwan/aeolius/pkg/aeoliussdk"
	"github.com/aussiebroadwan/aeolius/pkg/atproto/atprototest"
	"github.com/aussiebroadwan/aeolius/pkg/cryptox"
	"github.com/aussiebroadwan/aeolius/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const (
	createSession  = "com.atproto.server.createSession"
	getSession     = "com.atproto.server.getSession"
	refreshSession = "com.atproto.server.refreshSession"
	getProfile     = "app.bsky.actor.getProfile"
)

var alice = atprototest.Account{
	DID:      "did:plc:alice",
	Handle:   "alice.test",
	Password: "app-password",
	Avatar:   "https://cdn.test/alice.jpg",
}

type failure struct {
	err       error
	loggedOut bool
}

type fixture struct {
	pds  *atprototest.PDS
	ctrl *client.Controller

	mu        sync.Mutex
	failures  []failure
	snapshots []client.Snapshot
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	pds := atprototest.New(t)
	pds.AddAccount(alice)

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	sealer, err := cryptox.NewSealer([]byte("test-master-key"))
	require.NoError(t, err)

	router := aeoliushttp.NewRouter("test", st, slogx.Discard())
	router.ConfigurationService = &service.ConfigurationService{
		Store:  st,
		Sealer: sealer,
		Dial:   service.XRPCDialer(nil),
	}
	router.ApplyManagerRoutes()

	manager := httptest.NewServer(router)
	t.Cleanup(manager.Close)

	f := &fixture{pds: pds}
	f.ctrl = client.NewController(aeoliussdk.NewClient(manager.URL), slogx.Discard(), func(err error, loggedOut bool) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.failures = append(f.failures, failure{err, loggedOut})
	})
	unsubscribe := f.ctrl.Subscribe(func(s client.Snapshot) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.snapshots = append(f.snapshots, s)
	})
	t.Cleanup(unsubscribe)

	return f
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.ctrl.Login(context.Background(), alice.Handle, alice.Password, f.pds.URL))
}

func (f *fixture) reported() []failure {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]failure(nil), f.failures...)
}

func (f *fixture) states() []client.State {
	f.mu.Lock()
	defer f.mu.Unlock()

	var states []client.State
	for _, s := range f.snapshots {
		if len(states) == 0 || states[len(states)-1] != s.State {
			states = append(states, s.State)
		}
	}
	return states
}

func TestLoginProvisionsDefaults(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	s := f.ctrl.Snapshot()
	require.Equal(t, client.StateReady, s.State)
	require.True(t, s.SignedIn)
	require.False(t, s.Loading)
	require.Equal(t, alice.DID, s.DID)
	require.Equal(t, alice.Handle, s.Handle)
	require.Equal(t, alice.Avatar, s.Avatar)
	require.Equal(t, f.pds.URL, s.Service)
	require.Equal(t, aeoliussdk.DefaultConfiguration, *s.Configuration)
	require.NoError(t, s.Err)

	require.Equal(t, []client.State{
		client.StateUnauthenticated,
		client.StateAuthenticatingProfile,
		client.StateConfigLoading,
		client.StateReady,
	}, f.states())

	// Signed in only once the configuration client exists.
	f.mu.Lock()
	for _, snap := range f.snapshots {
		require.Equal(t, snap.State >= client.StateConfigLoading, snap.SignedIn, snap.State.String())
	}
	f.mu.Unlock()

	// The provisioned record is what a later read returns.
	require.NoError(t, f.ctrl.Reload(context.Background()))
	require.Equal(t, aeoliussdk.DefaultConfiguration, *f.ctrl.Snapshot().Configuration)
}

func TestSaveThenReload(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	stored, err := f.ctrl.Save(ctx, aeoliussdk.Configuration{Enabled: true, PostTTL: 3})
	require.NoError(t, err)
	require.Equal(t, aeoliussdk.Configuration{Enabled: true, PostTTL: 3}, *stored)

	require.NoError(t, f.ctrl.Reload(ctx))
	require.Equal(t, aeoliussdk.Configuration{Enabled: true, PostTTL: 3}, *f.ctrl.Snapshot().Configuration)

	data, err := f.ctrl.Export()
	require.NoError(t, err)
	require.Equal(t, aeoliussdk.ExportedData{DID: alice.DID, Service: f.pds.URL, Enabled: true, PostTTL: 3}, data)
}

func TestSaveRejectsInvalidTTL(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	_, err := f.ctrl.Save(context.Background(), aeoliussdk.Configuration{Enabled: true, PostTTL: 0})
	require.ErrorIs(t, err, aeoliussdk.ErrInvalidConfiguration)

	s := f.ctrl.Snapshot()
	require.True(t, s.SignedIn)
	require.Equal(t, aeoliussdk.DefaultConfiguration, *s.Configuration)
	require.Equal(t, []failure{{err, false}}, f.reported())
}

func TestDeleteLogsOut(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)

		require.NoError(t, f.ctrl.Delete(context.Background()))

		s := f.ctrl.Snapshot()
		require.False(t, s.SignedIn)
		require.Equal(t, client.StateUnauthenticated, s.State)
		require.Nil(t, s.Configuration)
		require.Empty(t, f.reported())
		require.Contains(t, f.states(), client.StateDeleting)
	})

	t.Run("failure", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)
		f.pds.Fail(getSession, http.StatusInternalServerError, "InternalServerError")

		err := f.ctrl.Delete(context.Background())
		require.Error(t, err)

		s := f.ctrl.Snapshot()
		require.False(t, s.SignedIn)
		require.Equal(t, client.StateUnauthenticated, s.State)
		require.Equal(t, []failure{{err, true}}, f.reported())
	})
}

func TestLoginFailures(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		f := newFixture(t)

		err := f.ctrl.Login(context.Background(), alice.Handle, "", f.pds.URL)
		require.ErrorIs(t, err, client.ErrMissingCredentials)
		require.Empty(t, f.states())
		require.Empty(t, f.reported())
	})

	t.Run("rejected password", func(t *testing.T) {
		f := newFixture(t)

		err := f.ctrl.Login(context.Background(), alice.Handle, "wrong", f.pds.URL)
		require.Error(t, err)

		s := f.ctrl.Snapshot()
		require.False(t, s.SignedIn)
		require.Nil(t, f.ctrl.Session())
		require.Equal(t, []failure{{err, true}}, f.reported())
	})

	t.Run("profile", func(t *testing.T) {
		f := newFixture(t)
		f.pds.Fail(getProfile, http.StatusBadRequest, "InvalidRequest")

		err := f.ctrl.Login(context.Background(), alice.Handle, alice.Password, f.pds.URL)
		require.Error(t, err)

		s := f.ctrl.Snapshot()
		require.False(t, s.SignedIn)
		require.Equal(t, client.StateUnauthenticated, s.State)
		require.Equal(t, []failure{{err, true}}, f.reported())
	})

	t.Run("configuration", func(t *testing.T) {
		f := newFixture(t)
		f.pds.Fail(getSession, http.StatusInternalServerError, "InternalServerError")

		err := f.ctrl.Login(context.Background(), alice.Handle, alice.Password, f.pds.URL)
		require.Error(t, err)

		// Surfaced without logout; the defaults stand in.
		s := f.ctrl.Snapshot()
		require.True(t, s.SignedIn)
		require.Equal(t, client.StateReady, s.State)
		require.Equal(t, aeoliussdk.DefaultConfiguration, *s.Configuration)
		require.Equal(t, err, s.Err)
		require.Equal(t, []failure{{err, false}}, f.reported())

		f.pds.Recover()
		require.NoError(t, f.ctrl.Reload(context.Background()))
		require.NoError(t, f.ctrl.Snapshot().Err)
	})
}

func TestOperationsRequireSignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.ctrl.Reload(ctx), client.ErrNotSignedIn)
	_, err := f.ctrl.Save(ctx, aeoliussdk.DefaultConfiguration)
	require.ErrorIs(t, err, client.ErrNotSignedIn)
	require.ErrorIs(t, f.ctrl.Delete(ctx), client.ErrNotSignedIn)
	_, err = f.ctrl.Export()
	require.ErrorIs(t, err, client.ErrNotSignedIn)

	f.login(t)
	f.ctrl.Logout()
	require.ErrorIs(t, f.ctrl.Reload(ctx), client.ErrNotSignedIn)
}

func TestBinder(t *testing.T) {
	f := newFixture(t)
	b := client.Bind(f.ctrl)
	t.Cleanup(b.Close)

	require.False(t, b.Bound())
	require.Equal(t, aeoliussdk.DefaultConfiguration, b.Values())

	f.login(t)
	require.True(t, b.Bound())

	b.SetEnabled(true)
	b.SetPostTTL(12)
	require.Equal(t, aeoliussdk.Configuration{Enabled: true, PostTTL: 12}, b.Values())

	require.NoError(t, b.Save(context.Background()))
	require.Equal(t, aeoliussdk.Configuration{Enabled: true, PostTTL: 12}, b.Values())

	// A reload publishes the stored configuration over local edits.
	b.SetPostTTL(2)
	require.NoError(t, f.ctrl.Reload(context.Background()))
	require.Equal(t, 12, b.Values().PostTTL)

	require.NoError(t, b.Delete(context.Background()))
	require.False(t, b.Bound())
	require.Equal(t, aeoliussdk.DefaultConfiguration, b.Values())
}

func TestLoadingWhileInFlight(t *testing.T) {
	cases := []struct {
		name     string
		nsid     string
		signedIn bool
		run      func(ctx context.Context, f *fixture) error
	}{
		{
			name: "login",
			nsid: createSession,
			run: func(ctx context.Context, f *fixture) error {
				return f.ctrl.Login(ctx, alice.Handle, alice.Password, f.pds.URL)
			},
		},
		{
			name: "profile",
			nsid: getProfile,
			run: func(ctx context.Context, f *fixture) error {
				return f.ctrl.Login(ctx, alice.Handle, alice.Password, f.pds.URL)
			},
		},
		{
			name:     "get",
			nsid:     getSession,
			signedIn: true,
			run: func(ctx context.Context, f *fixture) error {
				return f.ctrl.Reload(ctx)
			},
		},
		{
			name:     "update",
			nsid:     refreshSession,
			signedIn: true,
			run: func(ctx context.Context, f *fixture) error {
				_, err := f.ctrl.Save(ctx, aeoliussdk.Configuration{Enabled: true, PostTTL: 3})
				return err
			},
		},
		{
			name:     "delete",
			nsid:     getSession,
			signedIn: true,
			run: func(ctx context.Context, f *fixture) error {
				return f.ctrl.Delete(ctx)
			},
		},
	}

	for _, tc := range cases {
		for _, failing := range []bool{false, true} {
			name := tc.name
			if failing {
				name += " failing"
			}

			t.Run(name, func(t *testing.T) {
				f := newFixture(t)
				if tc.signedIn {
					f.login(t)
				}
				if failing {
					f.pds.Fail(tc.nsid, http.StatusInternalServerError, "InternalServerError")
				}
				require.False(t, f.ctrl.Snapshot().Loading)

				reached, release := f.pds.Hold(tc.nsid)
				t.Cleanup(release)

				done := make(chan error, 1)
				go func() { done <- tc.run(context.Background(), f) }()

				select {
				case <-reached:
				case <-time.After(5 * time.Second):
					t.Fatalf("%s never reached the PDS", tc.nsid)
				}
				require.True(t, f.ctrl.Snapshot().Loading)

				release()
				err := <-done
				if failing {
					require.Error(t, err)
				} else {
					require.NoError(t, err)
				}
				require.False(t, f.ctrl.Snapshot().Loading)
			})
		}
	}
}
