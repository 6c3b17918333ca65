package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// HTTPClient is the direct HTTP/JSON transport.
type HTTPClient struct {
	config Config
	client *http.Client
	logger zerolog.Logger
}

// NewHTTPClient creates a transport that talks to the endpoint directly.
func NewHTTPClient(cfg Config, logger zerolog.Logger) (*HTTPClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	return &HTTPClient{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "transport").Logger(),
	}, nil
}

// newWithClient builds an HTTPClient around a caller-supplied http.Client.
// Used by the bastion transport to inject a tunneled dialer.
func newWithClient(cfg Config, client *http.Client, logger zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		config: cfg,
		client: client,
		logger: logger.With().Str("component", "transport").Logger(),
	}
}

// Send performs exactly one HTTP exchange. Non-2xx replies are returned to
// the caller undisturbed; only failures to complete the exchange become
// errors.
func (c *HTTPClient) Send(ctx context.Context, method, path string, body []byte) (*Response, error) {
	u := strings.TrimRight(c.config.Endpoint, "/") + "/" + strings.TrimLeft(path, "/")

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, &SendError{Op: "request", Err: err}
	}

	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("body_bytes", len(body)).
		Msg("sending request")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &SendError{Op: "send", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SendError{Op: "read", Err: err}
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("received response")

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}
