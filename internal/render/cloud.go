// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nayanlc19/journal-club-standalone/internal/cascade"
	"github.com/nayanlc19/journal-club-standalone/pkg/types"
)

// maxRenderedBytes caps the cloud response body.
const maxRenderedBytes = 20 << 20

// Cloud delegates rendering to a managed browser API that accepts
// POST {"url"} or {"html"} and answers with the rendered document.
type Cloud struct {
	client   *http.Client
	endpoint string
	token    string
	timeout  time.Duration
}

// NewCloud returns the cloud backend. It reports cascade.ErrDisabled until
// a token is configured.
func NewCloud(client *http.Client, cfg types.RenderConfig) *Cloud {
	return &Cloud{client: client, endpoint: cfg.CloudURL, token: cfg.CloudToken, timeout: cfg.Timeout}
}

func (c *Cloud) Name() string           { return BackendCloud }
func (c *Cloud) Timeout() time.Duration { return c.timeout }

type cloudRequest struct {
	URL  string `json:"url,omitempty"`
	HTML string `json:"html,omitempty"`
}

func (c *Cloud) Execute(ctx context.Context, p Page) ([]byte, error) {
	if c.token == "" || c.endpoint == "" {
		return nil, fmt.Errorf("%w: no cloud rendering token", cascade.ErrDisabled)
	}

	// A URL lets the service fetch with its own cookies and scripts; bare
	// markup is sent only for pages without one (uploads).
	body := cloudRequest{URL: p.URL}
	if p.URL == "" {
		body.HTML = string(p.Markup)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing cloud endpoint: %w", err)
	}
	q := u.Query()
	q.Set("token", c.token)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.client.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = c.endpoint
		}
		return nil, fmt.Errorf("cloud render: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRenderedBytes))
	if err != nil {
		return nil, fmt.Errorf("reading cloud response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cloud render returned %d: %s", resp.StatusCode, bytes.TrimSpace(data[:min(len(data), 200)]))
	}
	return data, nil
}
