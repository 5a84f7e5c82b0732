package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/aeolius/internal/aeolius/domain"
	"github.com/aussiebroadwan/aeolius/internal/aeolius/store"
	"github.com/aussiebroadwan/aeolius/pkg/cryptox"
	"github.com/aussiebroadwan/aeolius/pkg/slogx"
)

var (
	ErrConfigurationNotFound = errors.New("configuration not found")
	ErrInvalidConfiguration  = errors.New("postTTL must be at least one month")
)

// ConfigurationService manages configurations on behalf of callers who
// prove account ownership with tokens issued by their PDS.
type ConfigurationService struct {
	Store  store.Store
	Sealer *cryptox.Sealer
	Dial   Dialer
	Policy ServicePolicy
}

// Get returns the configuration of the account accessJwt belongs to.
func (s *ConfigurationService) Get(ctx context.Context, service, accessJwt string) (domain.Configuration, error) {
	did, err := s.resolve(ctx, service, accessJwt)
	if err != nil {
		return domain.Configuration{}, err
	}

	c, err := s.Store.Configurations().Get(ctx, did)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Configuration{}, ErrConfigurationNotFound
	}
	if err != nil {
		return domain.Configuration{}, fmt.Errorf("could not load configuration: %w", err)
	}
	return c, nil
}

// Put replaces the configuration of the account refreshJwt belongs to. The
// token is rotated against the PDS and the new refresh token is stored
// sealed for the worker.
func (s *ConfigurationService) Put(ctx context.Context, service, refreshJwt string, enabled bool, postTTL int) (domain.Configuration, error) {
	if postTTL < 1 {
		return domain.Configuration{}, ErrInvalidConfiguration
	}

	service, err := s.Policy.Check(service)
	if err != nil {
		return domain.Configuration{}, err
	}

	sess, err := s.Dial(service).RefreshSession(ctx, refreshJwt)
	if err != nil {
		return domain.Configuration{}, mapIdentityError(err)
	}

	sealed, err := s.Sealer.Seal(sess.RefreshJwt)
	if err != nil {
		return domain.Configuration{}, fmt.Errorf("could not seal refresh token: %w", err)
	}

	c, err := s.Store.Configurations().Upsert(ctx, domain.Configuration{
		DID:        sess.DID,
		Service:    service,
		RefreshJWT: sealed,
		Enabled:    enabled,
		PostTTL:    postTTL,
	})
	if err != nil {
		return domain.Configuration{}, fmt.Errorf("could not store configuration: %w", err)
	}

	slogx.FromContext(ctx).Info("configuration stored", "did", c.DID, "enabled", c.Enabled, "post_ttl", c.PostTTL)
	return c, nil
}

// Delete removes the configuration of the account accessJwt belongs to.
func (s *ConfigurationService) Delete(ctx context.Context, service, accessJwt string) error {
	did, err := s.resolve(ctx, service, accessJwt)
	if err != nil {
		return err
	}

	if err := s.Store.Configurations().Delete(ctx, did); err != nil {
		return fmt.Errorf("could not delete configuration: %w", err)
	}

	slogx.FromContext(ctx).Info("configuration deleted", "did", did)
	return nil
}

func (s *ConfigurationService) resolve(ctx context.Context, service, accessJwt string) (string, error) {
	service, err := s.Policy.Check(service)
	if err != nil {
		return "", err
	}

	info, err := s.Dial(service).GetSession(ctx, accessJwt)
	if err != nil {
		return "", mapIdentityError(err)
	}
	return info.DID, nil
}
