package aeoliussdk

import (
	"net/http"
	"strings"
	"time"
)

// Client talks to an Aeolius API: the manager for configurations and
// health, or the worker for sweeps and health.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}
