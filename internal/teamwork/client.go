// Package teamwork talks to the Teamwork v1 JSON API: projects, tasks,
// people and time entries.
package teamwork

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// AuthMode selects how the API key is presented.
type AuthMode string

const (
	AuthBasic  AuthMode = "basic"
	AuthBearer AuthMode = "bearer"
	// AuthAuto starts with basic and switches once on a 401.
	AuthAuto AuthMode = "auto"
)

// Options configures a Client.
type Options struct {
	BaseURL        string
	APIKey         string
	AuthMode       AuthMode
	PageSize       int
	FetchTimeout   time.Duration
	PeopleTimeout  time.Duration
	PostTimeout    time.Duration
	DescriptionMax int
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// Client is a Teamwork API client. It is safe for concurrent use.
type Client struct {
	base   string
	apiKey string
	mode   AuthMode
	opts   Options
	http   *http.Client
	logger *slog.Logger

	mu     sync.Mutex
	active AuthMode
}

// NewClient creates a client. Zero option values fall back to defaults.
func NewClient(opts Options) *Client {
	if opts.PageSize <= 0 {
		opts.PageSize = 200
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 25 * time.Second
	}
	if opts.PeopleTimeout <= 0 {
		opts.PeopleTimeout = 20 * time.Second
	}
	if opts.PostTimeout <= 0 {
		opts.PostTimeout = 30 * time.Second
	}
	if opts.DescriptionMax <= 0 {
		opts.DescriptionMax = DefaultDescriptionMax
	}
	mode := AuthMode(strings.ToLower(string(opts.AuthMode)))
	switch mode {
	case AuthBasic, AuthBearer, AuthAuto:
	default:
		mode = AuthBasic
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	active := mode
	if mode == AuthAuto {
		active = AuthBasic
	}
	return &Client{
		base:   strings.TrimRight(opts.BaseURL, "/"),
		apiKey: opts.APIKey,
		mode:   mode,
		opts:   opts,
		http:   hc,
		logger: logger,
		active: active,
	}
}

// Configured reports whether the client has credentials and a base URL.
func (c *Client) Configured() bool {
	return c != nil && c.base != "" && c.apiKey != ""
}

// ActiveAuth returns the auth mode currently in use.
func (c *Client) ActiveAuth() AuthMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Client) authHeader(mode AuthMode) string {
	if mode == AuthBearer {
		return "Bearer " + c.apiKey
	}
	token := base64.StdEncoding.EncodeToString([]byte(c.apiKey + ":x"))
	return "Basic " + token
}

// send performs one request and returns the status and body without
// treating error statuses as failures. In auto mode a 401 switches the
// active auth mode and the request is repeated once.
func (c *Client) send(ctx context.Context, method, rawURL string, body []byte, timeout time.Duration) (int, []byte, error) {
	if !c.Configured() {
		return 0, nil, ErrNotConfigured
	}

	c.mu.Lock()
	mode := c.active
	c.mu.Unlock()

	status, data, err := c.roundTrip(ctx, method, rawURL, body, timeout, mode)
	if err != nil {
		return 0, nil, err
	}
	if status == http.StatusUnauthorized && c.mode == AuthAuto {
		alt := AuthBearer
		if mode == AuthBearer {
			alt = AuthBasic
		}
		c.logger.Debug("teamwork auth rejected, switching mode", "from", mode, "to", alt)
		c.mu.Lock()
		c.active = alt
		c.mu.Unlock()
		return c.roundTrip(ctx, method, rawURL, body, timeout, alt)
	}
	return status, data, nil
}

func (c *Client) roundTrip(ctx context.Context, method, rawURL string, body []byte, timeout time.Duration, mode AuthMode) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", c.authHeader(mode))

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// getJSON fetches path with query and decodes the body into a generic
// object. Numbers are kept as json.Number so ids survive unchanged.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, timeout time.Duration) (map[string]any, error) {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	status, data, err := c.send(ctx, http.MethodGet, u, nil, timeout)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, &HTTPError{Method: http.MethodGet, URL: u, Status: status, Body: snippet(string(data))}
	}
	return decodeObject(data)
}

func decodeObject(data []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return out, nil
}
