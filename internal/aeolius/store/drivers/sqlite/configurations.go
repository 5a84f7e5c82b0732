package sqlite

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/aeolius/internal/aeolius/domain"
	"github.com/aussiebroadwan/aeolius/internal/aeolius/store"
	"github.com/aussiebroadwan/aeolius/internal/aeolius/store/drivers/sqlite/gen"
)

type configurationsRepo struct {
	q *gen.Queries
}

func (r *configurationsRepo) Get(ctx context.Context, did string) (domain.Configuration, error) {
	row, err := r.q.GetConfiguration(ctx, did)
	if err != nil {
		return domain.Configuration{}, mapNotFound(err)
	}
	return mapConfiguration(row), nil
}

func (r *configurationsRepo) Upsert(ctx context.Context, c domain.Configuration) (domain.Configuration, error) {
	if err := r.q.UpsertConfiguration(ctx, gen.UpsertConfigurationParams{
		Did:        c.DID,
		Service:    c.Service,
		RefreshJwt: c.RefreshJWT,
		Enabled:    c.Enabled,
		PostTtl:    int64(c.PostTTL),
	}); err != nil {
		return domain.Configuration{}, fmt.Errorf("could not upsert configuration: %w", err)
	}
	return r.Get(ctx, c.DID)
}

func (r *configurationsRepo) Delete(ctx context.Context, did string) error {
	return r.q.DeleteConfiguration(ctx, did)
}

func (r *configurationsRepo) ListEnabled(ctx context.Context) ([]domain.Configuration, error) {
	rows, err := r.q.ListEnabledConfigurations(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Configuration, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapConfiguration(row))
	}
	return out, nil
}

func (r *configurationsRepo) UpdateSweepState(ctx context.Context, did, refreshJWT, cursor string) error {
	n, err := r.q.UpdateConfigurationSweepState(ctx, gen.UpdateConfigurationSweepStateParams{
		RefreshJwt: refreshJWT,
		Cursor:     cursor,
		Did:        did,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
