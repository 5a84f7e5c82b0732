package aeoliussdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ErrIncompleteSession is returned when a ConfigurationClient is requested
// without a service or without both tokens.
var ErrIncompleteSession = errors.New("aeoliussdk: service, access token and refresh token are required")

// ConfigurationClient reads and writes one account's configuration at one
// service. It is immutable and safe for concurrent use.
type ConfigurationClient struct {
	client       *Client
	service      string
	accessToken  string
	refreshToken string
}

// Configuration returns a client for the configuration of the account the
// tokens belong to.
func (c *Client) Configuration(service, accessToken, refreshToken string) (*ConfigurationClient, error) {
	if c.BaseURL == "" || service == "" || accessToken == "" || refreshToken == "" {
		return nil, ErrIncompleteSession
	}

	return &ConfigurationClient{
		client:       c,
		service:      service,
		accessToken:  accessToken,
		refreshToken: refreshToken,
	}, nil
}

// Service returns the PDS the configuration is keyed by.
func (cc *ConfigurationClient) Service() string { return cc.service }

func (cc *ConfigurationClient) path() string {
	return "/configuration?" + url.Values{"service": {cc.service}}.Encode()
}

// Get fetches the configuration. An account without one is provisioned with
// DefaultConfiguration through Update, so a read may create the record.
func (cc *ConfigurationClient) Get(ctx context.Context) (*Configuration, error) {
	resp, err := cc.client.doAuthRequest(ctx, http.MethodGet, cc.path(), cc.accessToken, nil, nil)
	if err != nil {
		return nil, err
	}

	var cfg Configuration
	if err := decodeJSON(resp, &cfg, http.StatusOK); err != nil {
		if IsNotFound(err) {
			return cc.Update(ctx, DefaultConfiguration)
		}
		return nil, err
	}

	return &cfg, nil
}

// Update replaces the configuration and returns what the server stored. It
// authenticates with the refresh token, which the server keeps for the
// worker.
func (cc *ConfigurationClient) Update(ctx context.Context, cfg Configuration) (*Configuration, error) {
	body, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}

	resp, err := cc.client.doAuthRequest(ctx, http.MethodPut, cc.path(), cc.refreshToken,
		bytes.NewReader(body),
		map[string]string{"Content-Type": "application/json"},
	)
	if err != nil {
		return nil, err
	}

	var stored Configuration
	if err := decodeJSON(resp, &stored, http.StatusOK); err != nil {
		return nil, err
	}

	return &stored, nil
}

// Delete removes the configuration and the stored refresh token.
func (cc *ConfigurationClient) Delete(ctx context.Context) error {
	resp, err := cc.client.doAuthRequest(ctx, http.MethodDelete, cc.path(), cc.accessToken, nil, nil)
	if err != nil {
		return err
	}

	return checkStatusSuccess(resp)
}
