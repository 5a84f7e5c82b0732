package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aussiebroadwan/aeolius/internal/aeolius/domain"
	"github.com/aussiebroadwan/aeolius/internal/aeolius/store"
	"github.com/aussiebroadwan/aeolius/internal/aeolius/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	// Applying twice is a no-op.
	require.NoError(t, st.ApplyMigrations())
	return st
}

func TestConfigurationLifecycle(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	repo := st.Configurations()

	_, err := repo.Get(ctx, "did:plc:alice")
	require.ErrorIs(t, err, store.ErrNotFound)

	stored, err := repo.Upsert(ctx, domain.Configuration{
		DID:        "did:plc:alice",
		Service:    "https://pds.example",
		RefreshJWT: "sealed-1",
		Enabled:    false,
		PostTTL:    6,
	})
	require.NoError(t, err)
	require.Equal(t, "did:plc:alice", stored.DID)
	require.Equal(t, 6, stored.PostTTL)
	require.False(t, stored.Enabled)
	require.Empty(t, stored.Cursor)
	require.False(t, stored.CreatedAt.IsZero())

	stored, err = repo.Upsert(ctx, domain.Configuration{
		DID:        "did:plc:alice",
		Service:    "https://pds.example",
		RefreshJWT: "sealed-2",
		Enabled:    true,
		PostTTL:    3,
	})
	require.NoError(t, err)
	require.True(t, stored.Enabled)
	require.Equal(t, 3, stored.PostTTL)
	require.Equal(t, "sealed-2", stored.RefreshJWT)

	require.NoError(t, repo.Delete(ctx, "did:plc:alice"))
	_, err = repo.Get(ctx, "did:plc:alice")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "did:plc:alice"))
}

func TestUpsertRejectsInvalidTTL(t *testing.T) {
	st := newStore(t)

	_, err := st.Configurations().Upsert(context.Background(), domain.Configuration{
		DID: "did:plc:alice", Service: "https://pds.example", RefreshJWT: "x", PostTTL: 0,
	})
	require.Error(t, err)
}

func TestSweepState(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	repo := st.Configurations()

	for _, c := range []domain.Configuration{
		{DID: "did:plc:carol", Service: "https://a.example", RefreshJWT: "c", Enabled: true, PostTTL: 1},
		{DID: "did:plc:alice", Service: "https://a.example", RefreshJWT: "a", Enabled: true, PostTTL: 6},
		{DID: "did:plc:bob", Service: "https://a.example", RefreshJWT: "b", Enabled: false, PostTTL: 6},
	} {
		_, err := repo.Upsert(ctx, c)
		require.NoError(t, err)
	}

	enabled, err := repo.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 2)
	require.Equal(t, "did:plc:alice", enabled[0].DID)
	require.Equal(t, "did:plc:carol", enabled[1].DID)

	require.NoError(t, repo.UpdateSweepState(ctx, "did:plc:alice", "a-rotated", "3k0042"))
	got, err := repo.Get(ctx, "did:plc:alice")
	require.NoError(t, err)
	require.Equal(t, "a-rotated", got.RefreshJWT)
	require.Equal(t, "3k0042", got.Cursor)

	require.ErrorIs(t, repo.UpdateSweepState(ctx, "did:plc:nobody", "x", "y"), store.ErrNotFound)

	// Saving the configuration keeps the cursor on the same service...
	got, err = repo.Upsert(ctx, domain.Configuration{
		DID: "did:plc:alice", Service: "https://a.example", RefreshJWT: "a2", Enabled: true, PostTTL: 2,
	})
	require.NoError(t, err)
	require.Equal(t, "3k0042", got.Cursor)

	// ...and resets it when the account moved.
	got, err = repo.Upsert(ctx, domain.Configuration{
		DID: "did:plc:alice", Service: "https://b.example", RefreshJWT: "a3", Enabled: true, PostTTL: 2,
	})
	require.NoError(t, err)
	require.Empty(t, got.Cursor)
}

func TestWithTx(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Configurations().Upsert(ctx, domain.Configuration{
			DID: "did:plc:alice", Service: "https://a.example", RefreshJWT: "a", PostTTL: 6,
		})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = st.Configurations().Get(ctx, "did:plc:alice")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, st.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Configurations().Upsert(ctx, domain.Configuration{
			DID: "did:plc:alice", Service: "https://a.example", RefreshJWT: "a", PostTTL: 6,
		})
		return err
	}))

	_, err = st.Configurations().Get(ctx, "did:plc:alice")
	require.NoError(t, err)
	require.NoError(t, st.Ping(ctx))
}
