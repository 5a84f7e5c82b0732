package client

import (
	"errors"
	"testing"

	"github.com/aussiebroadwan/aeolius/pkg/aeoliussdk"
	"github.com/aussiebroadwan/aeolius/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestReducerDropsStaleGenerations(t *testing.T) {
	var m model

	require.True(t, m.reduce(event{kind: evLoginStarted, current: true}))
	first := m.gen

	require.True(t, m.reduce(event{kind: evLoginStarted, current: true}))
	second := m.gen
	require.Greater(t, second, first)

	cfg := aeoliussdk.Configuration{Enabled: true, PostTTL: 2}
	require.False(t, m.reduce(event{kind: evConfigLoaded, gen: first, cfg: &cfg}))
	require.Nil(t, m.current)

	require.False(t, m.reduce(event{kind: evFailed, gen: first, err: errors.New("late"), loggedOut: true}))
	require.Equal(t, second, m.gen)
	require.NoError(t, m.err)

	require.True(t, m.reduce(event{kind: evSessionCreated, gen: second}))
	require.Equal(t, StateAuthenticatingProfile, m.state)
}

func TestReducerConfigurationFailureKeepsSession(t *testing.T) {
	m := model{gen: 1, state: StateConfigLoading, config: &aeoliussdk.ConfigurationClient{}}
	err := errors.New("manager unavailable")

	require.True(t, m.reduce(event{kind: evFailed, gen: 1, err: err}))
	require.Equal(t, StateReady, m.state)
	require.Equal(t, aeoliussdk.DefaultConfiguration, *m.current)
	require.Equal(t, err, m.err)

	s := m.snapshot(0)
	require.True(t, s.SignedIn)
	require.Equal(t, uint64(1), s.Generation)
}

func TestLoadingCountsOverlappingOperations(t *testing.T) {
	c := NewController(aeoliussdk.NewClient("http://manager.test"), slogx.Discard(), nil)

	c.begin()
	c.begin()
	require.True(t, c.Snapshot().Loading)

	c.end()
	require.True(t, c.Snapshot().Loading)

	c.end()
	require.False(t, c.Snapshot().Loading)
}

func TestLogoutMakesInFlightResultsStale(t *testing.T) {
	c := NewController(aeoliussdk.NewClient("http://manager.test"), slogx.Discard(), nil)
	gen := c.startLogin()

	c.Logout()

	require.False(t, c.dispatch(event{kind: evSessionCreated, gen: gen}))
	require.ErrorIs(t, c.fail(gen, errors.New("late"), true), ErrStale)
	require.Equal(t, StateUnauthenticated, c.Snapshot().State)
}
