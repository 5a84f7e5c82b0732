// Package jwtx inspects AT Protocol session tokens.
//
// The identity provider signs its tokens with keys we never see, so nothing
// in here verifies signatures. Claims are read only to make local decisions
// (is this token already expired, which account does it belong to) before a
// request goes out; the provider stays the authority on validity.
package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ScopeRefresh is the scope the provider puts on refresh tokens.
const ScopeRefresh = "com.atproto.refresh"

var ErrNoExpiry = errors.New("jwtx: token has no exp claim")

// Claims are the session token claims we care about.
type Claims struct {
	jwt.RegisteredClaims

	Scope string `json:"scope,omitempty"`
}

// DID returns the account the token was issued for.
func (c Claims) DID() string { return c.Subject }

// IsRefresh reports whether this is a refresh token.
func (c Claims) IsRefresh() bool { return c.Scope == ScopeRefresh }

// Expiry returns the exp claim.
func (c Claims) Expiry() (time.Time, error) {
	if c.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return c.ExpiresAt.Time, nil
}

// ExpiredAt reports whether the token is expired at now, treating tokens
// within leeway of their expiry as expired already. Tokens without exp never
// expire from our point of view.
func (c Claims) ExpiredAt(now time.Time, leeway time.Duration) bool {
	exp, err := c.Expiry()
	if err != nil {
		return false
	}
	return !now.Add(leeway).Before(exp)
}

// Peek decodes the claims of raw without verifying its signature.
func Peek(raw string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return Claims{}, fmt.Errorf("could not decode token: %w", err)
	}
	return claims, nil
}
