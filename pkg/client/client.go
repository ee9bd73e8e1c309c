// Package client talks to the dashboard's REST backend: record fetches for
// edit screens, list fetches for lookups and the upsert call that submits a
// form.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/goliatone/go-storeform/pkg/payload"
)

// ErrTransport wraps network failures and unreadable responses.
var ErrTransport = errors.New("client: transport failure")

// StoreHeader carries the tenant store id on every request.
const StoreHeader = "X-Store-Id"

// Client issues authenticated requests against one API base URL.
type Client struct {
	base    *url.URL
	http    *http.Client
	tokens  oauth2.TokenSource
	logger  *zap.Logger
	storeID string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTokenSource attaches bearer credentials to every request.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(cl *Client) {
		cl.tokens = ts
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

// WithStoreID sends the tenant store id header.
func WithStoreID(id string) Option {
	return func(cl *Client) {
		cl.storeID = strings.TrimSpace(id)
	}
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errors.New("client: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(trimmed, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	cl := &Client{
		base:   base,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cl)
		}
	}
	if cl.tokens != nil {
		authed := *cl.http
		authed.Transport = &oauth2.Transport{Source: cl.tokens, Base: cl.http.Transport}
		cl.http = &authed
	}
	return cl, nil
}

// Response is a decoded 2xx reply.
type Response struct {
	Status  int
	Message string
	Data    map[string]any
}

// GetByID fetches one record from <path>/<id>, unwrapping a {"data": ...}
// envelope when present.
func (c *Client) GetByID(ctx context.Context, path, id string) (map[string]any, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("client: id is required")
	}
	target := strings.TrimRight(path, "/") + "/" + url.PathEscape(id)
	body, status, err := c.do(ctx, http.MethodGet, target, "", nil)
	if err != nil {
		return nil, err
	}
	decoded, err := decode(body, status)
	if err != nil {
		return nil, err
	}
	record := unwrapRecord(decoded)
	if record == nil {
		return nil, fmt.Errorf("%w: %s returned no record", ErrTransport, target)
	}
	return record, nil
}

// List fetches a collection, reading the "data", "items" or "results" key or
// a bare top-level array.
func (c *Client) List(ctx context.Context, path string) ([]map[string]any, error) {
	body, status, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	decoded, err := decode(body, status)
	if err != nil {
		return nil, err
	}
	return extractItems(decoded), nil
}

// Upsert posts an encoded form. The payload's identifier decides between
// create and update on the server.
func (c *Client) Upsert(ctx context.Context, path string, p payload.Payload) (Response, error) {
	body, status, err := c.do(ctx, http.MethodPost, path, p.ContentType(), p.Body())
	if err != nil {
		return Response{}, err
	}
	resp := Response{Status: status}
	if len(bytes.TrimSpace(body)) == 0 {
		return resp, nil
	}
	decoded, err := decode(body, status)
	if err != nil {
		return Response{}, err
	}
	if obj, ok := decoded.(map[string]any); ok {
		resp.Message = messageFrom(obj)
		resp.Data = unwrapRecord(obj)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, int, error) {
	target := c.resolve(path)
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, 0, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.storeID != "" {
		req.Header.Set(StoreHeader, c.storeID)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("api request failed",
			zap.String("method", method),
			zap.String("url", target),
			zap.Error(err),
		)
		return nil, 0, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}
	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, newAPIError(resp.StatusCode, data)
	}
	return data, resp.StatusCode, nil
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.base.String() + "/" + strings.TrimLeft(path, "/")
}

func decode(body []byte, status int) (any, error) {
	var out any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode %d response: %w", ErrTransport, status, err)
	}
	return out, nil
}

func unwrapRecord(decoded any) map[string]any {
	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil
	}
	switch data := obj["data"].(type) {
	case map[string]any:
		return data
	case []any:
		if len(data) > 0 {
			if first, ok := data[0].(map[string]any); ok {
				return first
			}
		}
	}
	return obj
}

func extractItems(decoded any) []map[string]any {
	var raw []any
	switch v := decoded.(type) {
	case []any:
		raw = v
	case map[string]any:
		for _, key := range []string{"data", "items", "results"} {
			if list, ok := v[key].([]any); ok {
				raw = list
				break
			}
		}
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
