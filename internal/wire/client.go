// Package wire performs the JSON over HTTP exchanges shared by the provider adapters.
package wire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/casualjim/omnichat/pkg/slogx"
	"github.com/casualjim/omnichat/provider"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

const maxErrorBody = 64 << 10

// Client posts JSON documents to a vendor endpoint.
type Client struct {
	Vendor     string
	HTTP       *http.Client
	BaseURL    string
	Header     http.Header
	Query      url.Values
	RateLimits provider.RateLimitHeaders
}

// Response is a successful vendor answer. The caller owns Body.
type Response struct {
	*http.Response
	RateLimits *provider.RateLimits
}

// Post sends body as JSON to path. A non-2xx status is returned as a
// provider.TransportError carrying the status, the body and the rate limits.
func (c *Client) Post(ctx context.Context, path string, body any, stream bool) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", c.Vendor, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.Vendor, err)
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	slog.DebugContext(ctx, "sending request", slog.String("vendor", c.Vendor), slog.String("url", req.URL.Redacted()), slog.Bool("stream", stream))

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, provider.Canceled(c.Vendor, ctxErr)
		}
		return nil, &provider.TransportError{Provider: c.Vendor, Err: err}
	}

	limits := provider.ParseRateLimits(resp.Header, c.RateLimits, time.Now())
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		te := &provider.TransportError{
			Provider:   c.Vendor,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
			Body:       raw,
			RateLimits: limits,
		}
		slog.DebugContext(ctx, "vendor rejected request", slog.String("vendor", c.Vendor), slog.Int("status", resp.StatusCode), slogx.ByteString("body", raw))
		return nil, te
	}
	return &Response{Response: resp, RateLimits: limits}, nil
}

// DecodeJSON reads and closes the body, decoding it into v.
func (c *Client) DecodeJSON(ctx context.Context, resp *Response, v any) error {
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return provider.Canceled(c.Vendor, ctxErr)
		}
		return &provider.TransportError{Provider: c.Vendor, Err: err}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &provider.ProtocolError{Provider: c.Vendor, Reason: "decode response body", Err: err}
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	u := strings.TrimSuffix(c.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	if len(c.Query) > 0 {
		u += "?" + c.Query.Encode()
	}
	return u
}

// errorMessage digs the human readable message out of the common vendor error envelopes.
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}
	for _, path := range []string{"error.message", "message", "error", "detail"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// StreamError converts a failure while reading a stream body into the taxonomy.
func StreamError(ctx context.Context, vendor string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if ctxErr == nil {
			ctxErr = err
		}
		return provider.Canceled(vendor, ctxErr)
	}
	return &provider.TransportError{Provider: vendor, Err: err}
}
