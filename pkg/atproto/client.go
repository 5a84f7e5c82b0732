package atproto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks XRPC to a single PDS.
type Client struct {
	Host       string
	HTTPClient *http.Client
}

// NewClient creates a client for the PDS at host, e.g. https://bsky.social.
func NewClient(host string) *Client {
	return &Client{
		Host: strings.TrimSuffix(host, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateSession exchanges an identifier (handle, email or DID) and an app
// password for a session.
func (c *Client) CreateSession(ctx context.Context, identifier, password string) (*Session, error) {
	var out Session
	in := createSessionInput{Identifier: identifier, Password: password}
	if err := c.procedure(ctx, "com.atproto.server.createSession", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSession resolves the account an access token belongs to.
func (c *Client) GetSession(ctx context.Context, accessJwt string) (*SessionInfo, error) {
	var out SessionInfo
	if err := c.query(ctx, "com.atproto.server.getSession", accessJwt, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshSession trades a refresh token for a new session. The PDS rotates
// the refresh token; the old one stops working.
func (c *Client) RefreshSession(ctx context.Context, refreshJwt string) (*Session, error) {
	var out Session
	if err := c.procedure(ctx, "com.atproto.server.refreshSession", refreshJwt, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProfile fetches the public profile of actor (handle or DID).
func (c *Client) GetProfile(ctx context.Context, accessJwt, actor string) (*Profile, error) {
	var out Profile
	q := url.Values{"actor": {actor}}
	if err := c.query(ctx, "app.bsky.actor.getProfile", accessJwt, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRecords lists one page of records of a collection.
func (c *Client) ListRecords(ctx context.Context, accessJwt string, p ListRecordsParams) (*ListRecordsOutput, error) {
	q := url.Values{
		"repo":       {p.Repo},
		"collection": {p.Collection},
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Cursor != "" {
		q.Set("cursor", p.Cursor)
	}
	if p.Reverse {
		q.Set("reverse", "true")
	}

	var out ListRecordsOutput
	if err := c.query(ctx, "com.atproto.repo.listRecords", accessJwt, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRecords deletes rkeys of collection from repo in one applyWrites
// call. The PDS applies the batch atomically.
func (c *Client) DeleteRecords(ctx context.Context, accessJwt, repo, collection string, rkeys []string) error {
	if len(rkeys) == 0 {
		return nil
	}

	in := applyWritesInput{Repo: repo, Writes: make([]applyWritesDelete, 0, len(rkeys))}
	for _, rkey := range rkeys {
		in.Writes = append(in.Writes, applyWritesDelete{
			Type:       applyWritesDeleteType,
			Collection: collection,
			Rkey:       rkey,
		})
	}

	return c.procedure(ctx, "com.atproto.repo.applyWrites", accessJwt, in, nil)
}

func (c *Client) query(ctx context.Context, nsid, token string, q url.Values, out any) error {
	u := c.Host + "/xrpc/" + nsid
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(req, token, out)
}

func (c *Client) procedure(ctx context.Context, nsid, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Host+"/xrpc/"+nsid, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, token, out)
}

func (c *Client) do(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp, body)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
