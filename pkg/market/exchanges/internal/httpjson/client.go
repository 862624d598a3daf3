// Package httpjson is the GET transport shared by the venues without an SDK.
package httpjson

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"tradeboard-api/pkg/market"
)

const defaultHTTPTimeout = 10 * time.Second

// Decoder inspects a response body and returns the payload or an
// exchange-specific error. It sees every body, including non-2xx ones.
type Decoder func(status int, body gjson.Result) (gjson.Result, error)

// Client issues GET requests against one base URL.
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	decode     Decoder
}

// NewClient builds a client for exchange name. A zero httpTimeout uses the default.
func NewClient(name, baseURL string, httpTimeout time.Duration, maxRetries int, decode Decoder) *Client {
	if httpTimeout <= 0 {
		httpTimeout = defaultHTTPTimeout
	}
	return &Client{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: httpTimeout},
		maxRetries: maxRetries,
		decode:     decode,
	}
}

// SetHTTPClient replaces the underlying http.Client.
func (c *Client) SetHTTPClient(hc *http.Client) {
	if hc != nil {
		c.httpClient = hc
	}
}

// Get fetches path with query and returns the decoded payload.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var result gjson.Result
	err := market.Retry(ctx, c.maxRetries, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("%s: build request: %w", c.name, err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%s: %w", c.name, err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%s: read response: %w", c.name, err)
		}
		if !gjson.ValidBytes(body) {
			return &market.StatusError{
				Status: resp.StatusCode,
				Err:    fmt.Errorf("%s: http status %d: %s", c.name, resp.StatusCode, truncate(body)),
			}
		}
		result, err = c.decode(resp.StatusCode, gjson.ParseBytes(body))
		if err != nil && resp.StatusCode >= http.StatusMultipleChoices {
			return &market.StatusError{Status: resp.StatusCode, Err: err}
		}
		return err
	})
	return result, err
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
