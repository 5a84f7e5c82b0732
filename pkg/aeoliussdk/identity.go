package aeoliussdk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/aeolius/pkg/atproto"
	"github.com/aussiebroadwan/aeolius/pkg/jwtx"
)

// ErrMissingCredentials is returned by Login when the identifier or
// password is empty.
var ErrMissingCredentials = errors.New("aeoliussdk: identifier and password are required")

// IdentityClient exchanges credentials with a user's PDS.
type IdentityClient struct {
	service string
	xrpc    *atproto.Client
}

// NewIdentityClient creates an identity client for the PDS at service.
func NewIdentityClient(service string) *IdentityClient {
	xrpc := atproto.NewClient(service)
	return &IdentityClient{service: xrpc.Host, xrpc: xrpc}
}

// Service returns the PDS base URL.
func (c *IdentityClient) Service() string { return c.service }

// Login exchanges an identifier and app password for a session.
func (c *IdentityClient) Login(ctx context.Context, identifier, password string) (*Session, error) {
	if identifier == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	out, err := c.xrpc.CreateSession(ctx, identifier, password)
	if err != nil {
		return nil, fmt.Errorf("could not create session: %w", err)
	}

	return &Session{
		identity:     c,
		identifier:   identifier,
		did:          out.DID,
		handle:       out.Handle,
		accessToken:  out.AccessJwt,
		refreshToken: out.RefreshJwt,
	}, nil
}

// Session is an authenticated PDS session. It is immutable.
type Session struct {
	identity *IdentityClient

	identifier   string
	did          string
	handle       string
	accessToken  string
	refreshToken string
}

// Identifier is what the user logged in with.
func (s *Session) Identifier() string { return s.identifier }

func (s *Session) DID() string { return s.did }
func (s *Session) Handle() string { return s.handle }
func (s *Session) Service() string { return s.identity.service }
func (s *Session) AccessToken() string { return s.accessToken }
func (s *Session) RefreshToken() string { return s.refreshToken }

// AccessExpiresAt returns when the access token expires, or the zero time
// if the token carries no expiry.
func (s *Session) AccessExpiresAt() time.Time {
	claims, err := jwtx.Peek(s.accessToken)
	if err != nil {
		return time.Time{}
	}
	exp, err := claims.Expiry()
	if err != nil {
		return time.Time{}
	}
	return exp
}

// Avatar fetches the profile of the logged in user and returns its avatar
// URL, or "" when it has none. A failure means the session is unusable.
func (s *Session) Avatar(ctx context.Context) (string, error) {
	profile, err := s.identity.xrpc.GetProfile(ctx, s.accessToken, s.did)
	if err != nil {
		return "", fmt.Errorf("could not get profile: %w", err)
	}

	return profile.Avatar, nil
}
