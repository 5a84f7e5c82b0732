package aeoliussdk

import (
	"context"
	"net/http"
)

// TriggerSweep asks the worker to sweep all enabled configurations now and
// waits for the result. apiKey is the worker's WORKER_API_KEY.
func (c *Client) TriggerSweep(ctx context.Context, apiKey string) (*Statistics, error) {
	resp, err := c.doAuthRequest(ctx, http.MethodDelete, "/posts", apiKey, nil, nil)
	if err != nil {
		return nil, err
	}

	var stats Statistics
	if err := decodeJSON(resp, &stats, http.StatusOK); err != nil {
		return nil, err
	}

	return &stats, nil
}
