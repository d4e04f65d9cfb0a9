// Package githubapi issues authenticated read-only requests against the GitHub
// REST API and decodes responses into parsers.Value trees.
//
// Every call is a single GET with no retries. Non-2xx responses surface as
// *StatusError so callers can branch on 403/404; anything that prevented a
// usable response (network, TLS, timeout, malformed JSON) surfaces as
// *TransportError.
package githubapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/janekbaraniewski/copilotspend/internal/parsers"
	"github.com/janekbaraniewski/copilotspend/internal/version"
)

const (
	DefaultBaseURL = "https://api.github.com"
	DefaultTimeout = 15 * time.Second

	apiVersion    = "2022-11-28"
	acceptHeader  = "application/vnd.github+json"
	maxBodySize   = 4 << 20 // 4 MiB
	clientProduct = "copilotspend"
)

type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Proxy     ProxySettings
	Logger    *zap.Logger
}

type Client struct {
	proxies *ProxyCache
	logger  *zap.Logger

	mu        sync.RWMutex
	baseURL   string
	userAgent string
	timeout   time.Duration
	proxy     ProxySettings
}

func New(opts Options) *Client {
	c := &Client{
		proxies: NewProxyCache(),
		logger:  opts.Logger,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.apply(opts)
	return c
}

// ConfigChanged applies new connection settings and drops the cached
// transport so the next request picks up the new proxy configuration.
func (c *Client) ConfigChanged(opts Options) {
	c.apply(opts)
	c.proxies.Invalidate()
	c.logger.Debug("github client reconfigured",
		zap.String("base_url", c.BaseURL()),
		zap.Bool("proxy", strings.TrimSpace(opts.Proxy.URL) != ""),
	)
}

func (c *Client) apply(opts Options) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.baseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	c.userAgent = strings.TrimSpace(opts.UserAgent)
	if c.userAgent == "" {
		c.userAgent = clientProduct + "/" + version.Version
	}
	c.timeout = opts.Timeout
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	c.proxy = opts.Proxy
}

func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// Proxies exposes the transport cache, mainly for tests and diagnostics.
func (c *Client) Proxies() *ProxyCache { return c.proxies }

// Get performs one authenticated GET of path (relative to the base URL) and
// decodes the JSON body. An empty token sends an anonymous request.
func (c *Client) Get(ctx context.Context, token, path string) (parsers.Value, error) {
	c.mu.RLock()
	baseURL, userAgent, timeout, proxy := c.baseURL, c.userAgent, c.timeout, c.proxy
	c.mu.RUnlock()

	rt, err := c.proxies.Transport(proxy)
	if err != nil {
		return parsers.Value{}, &TransportError{Op: "request", Path: path, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
	if err != nil {
		return parsers.Value{}, &TransportError{Op: "request", Path: path, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", userAgent)
	if token = strings.TrimSpace(token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("github request",
		zap.String("path", path),
		zap.Any("headers", parsers.RedactHeaders(req.Header)),
	)

	start := time.Now()
	resp, err := (&http.Client{Transport: rt}).Do(req)
	if err != nil {
		return parsers.Value{}, &TransportError{Op: "request", Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return parsers.Value{}, &TransportError{Op: "read", Path: path, Err: err}
	}

	c.logger.Debug("github response",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parsers.Value{}, &StatusError{
			Status: resp.StatusCode,
			Path:   path,
			Body:   truncateBody(body),
		}
	}

	v, err := parsers.Decode(body)
	if err != nil {
		return parsers.Value{}, &TransportError{Op: "decode", Path: path, Err: err}
	}
	return v, nil
}
