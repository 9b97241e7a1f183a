package httpclient

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http/httpproxy"
	"golang.org/x/net/http2"

	"github.com/unkn0wn-root/restbench/internal/config"
	"github.com/unkn0wn-root/restbench/internal/errdef"
)

func (c *Client) buildHTTPClient(desc *Descriptor) (*http.Client, error) {
	proxy, err := proxyFunc(desc.Proxy)
	if err != nil {
		return nil, err
	}
	transport := &http.Transport{
		Proxy: proxy,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       desc.TLS,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, errdef.Wrap(errdef.CodeHTTP, err, "enable http2")
	}
	return &http.Client{Transport: transport}, nil
}

// proxyFunc honours the configured proxy and its bypass list, and falls back
// to the environment when none is enabled. Loopback targets are never
// proxied.
func proxyFunc(p config.Proxy) (func(*http.Request) (*url.URL, error), error) {
	raw := strings.TrimSpace(p.URL)
	if !p.Enabled || raw == "" {
		return http.ProxyFromEnvironment, nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if err == nil {
			err = errdef.New(errdef.CodeHTTP, "missing host")
		}
		return nil, errdef.Wrap(errdef.CodeHTTP, err, "parse proxy url %q", raw)
	}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	cfg := &httpproxy.Config{
		HTTPProxy:  u.String(),
		HTTPSProxy: u.String(),
		NoProxy:    strings.Join(p.NoProxy, ","),
	}
	fn := cfg.ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return fn(req.URL)
	}, nil
}
