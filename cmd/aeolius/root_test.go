package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aussiebroadwan/aeolius/internal/client"
	"github.com/aussiebroadwan/aeolius/pkg/aeoliussdk"
	"github.com/aussiebroadwan/aeolius/pkg/atproto/atprototest"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestKeygen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")

	a, err := run(t, "--prefs", path, "keygen")
	require.NoError(t, err)
	b, err := run(t, "--prefs", path, "keygen")
	require.NoError(t, err)

	require.NotEmpty(t, strings.TrimSpace(a))
	require.NotEqual(t, a, b)
}

func TestLogoutForgetsPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	prefs := client.DefaultPrefs()
	prefs.Username = "alice.test"
	prefs.Password = "app-password"
	require.NoError(t, prefs.Save(path))

	out, err := run(t, "--prefs", path, "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Logged out")

	saved, err := client.LoadPrefs(path)
	require.NoError(t, err)
	require.Equal(t, "alice.test", saved.Username)
	require.Empty(t, saved.Password)
}

func TestStatusWithoutCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")

	out, err := run(t, "--prefs", path, "status")
	require.NoError(t, err)
	require.Contains(t, out, "Not signed in")
}

func TestCommandsRequireLogin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")

	for _, args := range [][]string{{"config", "get"}, {"export"}, {"delete", "--yes"}} {
		_, err := run(t, append([]string{"--prefs", path}, args...)...)
		require.ErrorIs(t, err, errNotLoggedIn, args)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")

	_, err := run(t, "--prefs", path, "delete")
	require.ErrorContains(t, err, "--yes")
}

func TestSweepRequiresWorkerAndKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	t.Setenv("AEOLIUS_API_KEY", "")

	_, err := run(t, "--prefs", path, "sweep")
	require.ErrorContains(t, err, "--api-key")
}

// A manager outage must not undo a successful PDS login.
func TestLoginKeepsSessionWhenManagerFails(t *testing.T) {
	pds := atprototest.New(t)
	pds.AddAccount(atprototest.Account{DID: "did:plc:alice", Handle: "alice.test", Password: "app-password"})

	manager := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(manager.Close)

	path := filepath.Join(t.TempDir(), "prefs.yaml")
	flags := []string{"--prefs", path, "--service", pds.URL, "--api", manager.URL}

	out, err := run(t, append(flags, "login", "--username", "alice.test", "--password", "app-password")...)
	require.ErrorIs(t, err, aeoliussdk.ErrUpstream)
	require.Contains(t, out, "Signed in as alice.test (did:plc:alice)")
	require.Contains(t, out, "Deletion: disabled, posts older than 6 months")

	saved, err := client.LoadPrefs(path)
	require.NoError(t, err)
	require.Equal(t, "alice.test", saved.Username)
	require.Equal(t, "app-password", saved.Password)

	out, err = run(t, append(flags, "status")...)
	require.ErrorIs(t, err, aeoliussdk.ErrUpstream)
	require.Contains(t, out, "Signed in as alice.test")
	require.NotContains(t, out, "Not signed in")
}

func TestSweepReadsWorkerFromEnv(t *testing.T) {
	worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/posts" || r.Header.Get("Authorization") != "Bearer env-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spentPoints":4,"postsDeleted":3,"dryRun":true}`))
	}))
	t.Cleanup(worker.Close)

	t.Setenv("AEOLIUS_WORKER", worker.URL)
	t.Setenv("AEOLIUS_API_KEY", "env-key")

	out, err := run(t, "--prefs", filepath.Join(t.TempDir(), "prefs.yaml"), "sweep")
	require.NoError(t, err)
	require.Contains(t, out, `"postsDeleted": 3`)
	require.Contains(t, out, `"dryRun": true`)
}
