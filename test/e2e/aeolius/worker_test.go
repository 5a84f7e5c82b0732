package aeolius_test

import (
	"testing"

	"github.com/aussiebroadwan/aeolius/pkg/aeoliussdk"
	"github.com/stretchr/testify/require"
)

func TestWorkerHealth(t *testing.T) {
	baseURL := setupWorkerContainer(t)
	client := aeoliussdk.NewClient(baseURL)

	health, err := client.GetLiveness(t.Context())
	assertHealthy(t, health, err)

	health, err = client.GetReadiness(t.Context())
	assertHealthy(t, health, err)
}

// TestTriggerSweep verifies the API key is enforced and a sweep over an
// empty database does nothing.
func TestTriggerSweep(t *testing.T) {
	baseURL := setupWorkerContainer(t)
	client := aeoliussdk.NewClient(baseURL)

	_, err := client.TriggerSweep(t.Context(), "wrong-key")
	require.True(t, aeoliussdk.IsUnauthorized(err), "got %v", err)

	stats, err := client.TriggerSweep(t.Context(), workerAPIKey)
	require.NoError(t, err)
	require.Zero(t, stats.PostsDeleted)
	require.Zero(t, stats.SpentPoints)
	require.True(t, stats.DryRun)
}
