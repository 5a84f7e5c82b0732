package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/aussiebroadwan/aeolius/pkg/atproto"
)

var (
	ErrInvalidService    = errors.New("service is not an http(s) URL")
	ErrServiceNotAllowed = errors.New("service is not allowed")
	ErrUnauthenticated   = errors.New("identity provider rejected the token")
	ErrUpstream          = errors.New("identity provider request failed")
)

// IdentityProvider is the part of a PDS the manager needs to authenticate
// callers.
type IdentityProvider interface {
	GetSession(ctx context.Context, accessJwt string) (*atproto.SessionInfo, error)
	RefreshSession(ctx context.Context, refreshJwt string) (*atproto.Session, error)
}

// Dialer returns the identity provider at a service URL.
type Dialer func(service string) IdentityProvider

// XRPCDialer dials PDSes over XRPC, sharing hc between them when set.
func XRPCDialer(hc *http.Client) Dialer {
	return func(service string) IdentityProvider {
		c := atproto.NewClient(service)
		if hc != nil {
			c.HTTPClient = hc
		}
		return c
	}
}

// NormalizeService canonicalises a PDS URL for comparison and storage.
func NormalizeService(service string) (string, error) {
	service = strings.TrimSuffix(strings.TrimSpace(service), "/")

	u, err := url.Parse(service)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidService, service)
	}
	return service, nil
}

// ServicePolicy restricts which PDSes the server is willing to call.
type ServicePolicy struct {
	// Allowed lists normalised service URLs. Empty allows any.
	Allowed []string
}

// NewServicePolicy normalises allowed; entries that are not URLs are
// dropped.
func NewServicePolicy(allowed []string) ServicePolicy {
	var p ServicePolicy
	for _, s := range allowed {
		if n, err := NormalizeService(s); err == nil {
			p.Allowed = append(p.Allowed, n)
		}
	}
	return p
}

// Check normalises service and verifies it is allowed.
func (p ServicePolicy) Check(service string) (string, error) {
	n, err := NormalizeService(service)
	if err != nil {
		return "", err
	}
	if len(p.Allowed) > 0 && !slices.Contains(p.Allowed, n) {
		return "", fmt.Errorf("%w: %s", ErrServiceNotAllowed, n)
	}
	return n, nil
}

func mapIdentityError(err error) error {
	if atproto.IsAuthError(err) {
		return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
