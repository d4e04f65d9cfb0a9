package githubapi

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// ProxySettings mirrors the proxy section of the user configuration.
type ProxySettings struct {
	URL string
	// InsecureSkipVerify disables certificate checks, for intercepting proxies.
	// The zero value verifies.
	InsecureSkipVerify bool
}

func (p ProxySettings) key() string {
	return fmt.Sprintf("%s|%t", strings.TrimSpace(p.URL), p.InsecureSkipVerify)
}

// ProxyCache holds the transport built for the current proxy settings.
// It is rebuilt lazily after Invalidate or when the settings key changes.
type ProxyCache struct {
	mu     sync.Mutex
	key    string
	rt     *http.Transport
	builds int
}

func NewProxyCache() *ProxyCache {
	return &ProxyCache{}
}

// Transport returns the cached transport for settings, building one on a miss.
func (c *ProxyCache) Transport(settings ProxySettings) (*http.Transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := settings.key()
	if c.rt != nil && c.key == key {
		return c.rt, nil
	}

	rt, err := buildTransport(settings)
	if err != nil {
		return nil, err
	}
	if c.rt != nil {
		c.rt.CloseIdleConnections()
	}
	c.rt = rt
	c.key = key
	c.builds++
	return rt, nil
}

// Invalidate drops the cached transport. Call it whenever proxy config changes.
func (c *ProxyCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rt != nil {
		c.rt.CloseIdleConnections()
	}
	c.rt = nil
	c.key = ""
}

// Builds returns how many transports have been constructed.
func (c *ProxyCache) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}

func buildTransport(settings ProxySettings) (*http.Transport, error) {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("github: default transport is %T", http.DefaultTransport)
	}
	rt := base.Clone()

	if raw := strings.TrimSpace(settings.URL); raw != "" {
		proxyURL, err := url.Parse(raw)
		if err != nil || proxyURL.Host == "" {
			return nil, fmt.Errorf("github: invalid proxy url %q", raw)
		}
		rt.Proxy = http.ProxyURL(proxyURL)
	} else {
		rt.Proxy = http.ProxyFromEnvironment
	}

	if settings.InsecureSkipVerify {
		//nolint:gosec // explicitly requested by the user for intercepting proxies
		rt.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return rt, nil
}
