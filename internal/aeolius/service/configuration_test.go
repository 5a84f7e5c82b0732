package service_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/aeolius/internal/aeolius/service"
	"github.com/aussiebroadwan/aeolius/internal/aeolius/store/drivers/sqlite"
	"github.com/aussiebroadwan/aeolius/pkg/atproto"
	"github.com/aussiebroadwan/aeolius/pkg/atproto/atprototest"
	"github.com/aussiebroadwan/aeolius/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

var alice = atprototest.Account{DID: "did:plc:alice", Handle: "alice.test", Password: "pw"}

type fixture struct {
	pds    *atprototest.PDS
	svc    *service.ConfigurationService
	st     *sqlite.Store
	sealer *cryptox.Sealer
}

func newFixture(t *testing.T, allowed ...string) *fixture {
	t.Helper()

	pds := atprototest.New(t)
	pds.AddAccount(alice)

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	sealer, err := cryptox.NewSealer([]byte("test-master-key"))
	require.NoError(t, err)

	if len(allowed) == 0 {
		allowed = []string{pds.URL}
	}

	return &fixture{
		pds: pds,
		st:  st,
		svc: &service.ConfigurationService{
			Store:  st,
			Sealer: sealer,
			Dial:   service.XRPCDialer(nil),
			Policy: service.NewServicePolicy(allowed),
		},
		sealer: sealer,
	}
}

func TestPutGetDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.pds.Issue(alice.DID)

	_, err := f.svc.Get(ctx, f.pds.URL, sess.AccessJwt)
	require.ErrorIs(t, err, service.ErrConfigurationNotFound)

	stored, err := f.svc.Put(ctx, f.pds.URL+"/", sess.RefreshJwt, true, 3)
	require.NoError(t, err)
	require.Equal(t, alice.DID, stored.DID)
	require.Equal(t, f.pds.URL, stored.Service)
	require.True(t, stored.Enabled)
	require.Equal(t, 3, stored.PostTTL)

	// The stored token is sealed and is the rotated one, not the caller's.
	refresh, err := f.sealer.Open(stored.RefreshJWT)
	require.NoError(t, err)
	require.NotEqual(t, sess.RefreshJwt, refresh)
	_, err = atproto.NewClient(f.pds.URL).RefreshSession(ctx, refresh)
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, f.pds.URL, sess.AccessJwt)
	require.NoError(t, err)
	require.Equal(t, 3, got.PostTTL)

	require.NoError(t, f.svc.Delete(ctx, f.pds.URL, sess.AccessJwt))
	_, err = f.svc.Get(ctx, f.pds.URL, sess.AccessJwt)
	require.ErrorIs(t, err, service.ErrConfigurationNotFound)
}

func TestPutValidatesBeforeCallingPDS(t *testing.T) {
	f := newFixture(t)
	sess := f.pds.Issue(alice.DID)

	_, err := f.svc.Put(context.Background(), f.pds.URL, sess.RefreshJwt, true, 0)
	require.ErrorIs(t, err, service.ErrInvalidConfiguration)
	require.Zero(t, f.pds.Calls("com.atproto.server.refreshSession"))
}

func TestTokenErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess := f.pds.Issue(alice.DID)

	_, err := f.svc.Get(ctx, f.pds.URL, "garbage")
	require.ErrorIs(t, err, service.ErrUnauthenticated)

	// An access token is not a refresh token.
	_, err = f.svc.Put(ctx, f.pds.URL, sess.AccessJwt, true, 6)
	require.ErrorIs(t, err, service.ErrUnauthenticated)

	f.pds.Fail("com.atproto.server.getSession", http.StatusInternalServerError, "InternalServerError")
	err = f.svc.Delete(ctx, f.pds.URL, sess.AccessJwt)
	require.ErrorIs(t, err, service.ErrUpstream)
}

func TestServicePolicy(t *testing.T) {
	f := newFixture(t, "https://bsky.social")
	sess := f.pds.Issue(alice.DID)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, f.pds.URL, sess.AccessJwt)
	require.ErrorIs(t, err, service.ErrServiceNotAllowed)
	require.Zero(t, f.pds.Calls("com.atproto.server.getSession"))

	_, err = f.svc.Get(ctx, "ftp://bsky.social", sess.AccessJwt)
	require.ErrorIs(t, err, service.ErrInvalidService)

	open := service.NewServicePolicy(nil)
	n, err := open.Check(" https://pds.example/ ")
	require.NoError(t, err)
	require.Equal(t, "https://pds.example", n)

	p := service.NewServicePolicy([]string{"https://bsky.social/", "not a url"})
	require.Equal(t, []string{"https://bsky.social"}, p.Allowed)
}
