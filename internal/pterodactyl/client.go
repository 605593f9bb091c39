// Package pterodactyl is a small client for the Pterodactyl panel REST API.
//
// The panel exposes two disjoint namespaces: the client API (end-user server
// operations, /api/client) and the application API (administrative
// operations, /api/application). A Client is bound to exactly one of them.
package pterodactyl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// Mode selects the REST namespace a Client talks to.
type Mode int

const (
	ModeClient Mode = iota
	ModeApplication
)

func (m Mode) String() string {
	switch m {
	case ModeClient:
		return "client"
	case ModeApplication:
		return "application"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// BasePath returns the path prefix of the namespace.
func (m Mode) BasePath() string {
	if m == ModeApplication {
		return "/api/application"
	}
	return "/api/client"
}

// Client issues authenticated requests against one panel namespace.
// It is immutable after construction and safe for concurrent use.
type Client struct {
	baseURL    string
	key        string
	mode       Mode
	httpClient *http.Client
	log        *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger attaches a logger for failed requests.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New returns a client for baseURL in the given mode. The URL is not
// validated beyond being non-empty.
func New(baseURL, key string, mode Mode, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("pterodactyl: base url is required")
	}
	if mode != ModeClient && mode != ModeApplication {
		return nil, fmt.Errorf("pterodactyl: unknown %s", mode)
	}
	c := &Client{
		baseURL:    baseURL,
		key:        key,
		mode:       mode,
		httpClient: &http.Client{},
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Mode() Mode { return c.mode }

func (c *Client) BaseURL() string { return c.baseURL }

// RequestOptions carries per-call overrides. Header values are merged over
// the defaults name by name; the defaults are never dropped wholesale.
type RequestOptions struct {
	Method string
	Body   any
	Header http.Header
}

// URL returns the absolute URL for endpoint in the client's namespace.
func (c *Client) URL(endpoint string) string {
	return c.baseURL + c.mode.BasePath() + endpoint
}

func (c *Client) defaultHeader() http.Header {
	h := make(http.Header, 3)
	h.Set("Accept", "application/json")
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "Bearer "+c.key)
	return h
}

// Request performs a single request and decodes the JSON response into out
// (which may be nil). There are no retries.
func (c *Client) Request(ctx context.Context, endpoint string, opts *RequestOptions, out any) error {
	method := http.MethodGet
	var body io.Reader
	header := c.defaultHeader()
	if opts != nil {
		if opts.Method != "" {
			method = opts.Method
		}
		if opts.Body != nil {
			payload, err := json.Marshal(opts.Body)
			if err != nil {
				return fmt.Errorf("pterodactyl: encode request body: %w", err)
			}
			body = bytes.NewReader(payload)
		}
		for name, values := range opts.Header {
			header[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
		}
	}

	target := c.URL(endpoint)
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		c.log.Warn("panel request failed", zap.String("url", target), zap.Error(err))
		return &TransportError{Method: method, URL: target, Err: err}
	}
	req.Header = header

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("panel request failed", zap.String("url", target), zap.Error(err))
		return &TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.log.Warn("panel request rejected",
			zap.String("method", method),
			zap.String("url", target),
			zap.Int("status", resp.StatusCode))
		return &StatusError{Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, URL: target, Err: err}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrDecode, method, target, err)
	}
	return nil
}

func (c *Client) require(op string, mode Mode) error {
	if c.mode != mode {
		return &ModeError{Operation: op, Required: mode}
	}
	return nil
}

// ListServers lists the servers visible to the client API key.
func (c *Client) ListServers(ctx context.Context) ([]Server, error) {
	if err := c.require("ListServers", ModeClient); err != nil {
		return nil, err
	}
	return c.listServers(ctx)
}

// ServerResources returns live resource usage for one server.
func (c *Client) ServerResources(ctx context.Context, identifier string) (*ResourceUsage, error) {
	if err := c.require("ServerResources", ModeClient); err != nil {
		return nil, err
	}
	return c.serverResources(ctx, identifier)
}

// CreateServer creates a server through the application API.
func (c *Client) CreateServer(ctx context.Context, payload CreateServerRequest) (*Server, error) {
	if err := c.require("CreateServer", ModeApplication); err != nil {
		return nil, err
	}
	return c.createServer(ctx, payload)
}

// ListNodes lists the panel's nodes through the application API.
func (c *Client) ListNodes(ctx context.Context) ([]Node, error) {
	if err := c.require("ListNodes", ModeApplication); err != nil {
		return nil, err
	}
	return c.listNodes(ctx)
}

func (c *Client) listServers(ctx context.Context) ([]Server, error) {
	var list listResponse[Server]
	if err := c.Request(ctx, "", nil, &list); err != nil {
		return nil, err
	}
	return list.items(), nil
}

func (c *Client) serverResources(ctx context.Context, identifier string) (*ResourceUsage, error) {
	var res resource[ResourceUsage]
	if err := c.Request(ctx, "/servers/"+identifier+"/resources", nil, &res); err != nil {
		return nil, err
	}
	return &res.Attributes, nil
}

func (c *Client) createServer(ctx context.Context, payload CreateServerRequest) (*Server, error) {
	var res resource[Server]
	opts := &RequestOptions{Method: http.MethodPost, Body: payload}
	if err := c.Request(ctx, "/servers", opts, &res); err != nil {
		return nil, err
	}
	return &res.Attributes, nil
}

func (c *Client) listNodes(ctx context.Context) ([]Node, error) {
	var list listResponse[Node]
	if err := c.Request(ctx, "/nodes", nil, &list); err != nil {
		return nil, err
	}
	return list.items(), nil
}
