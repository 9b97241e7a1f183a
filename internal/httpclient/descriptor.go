package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/unkn0wn-root/restbench/internal/collection"
	"github.com/unkn0wn-root/restbench/internal/config"
	"github.com/unkn0wn-root/restbench/internal/errdef"
	"github.com/unkn0wn-root/restbench/internal/tlsconfig"
)

// Descriptor is a fully resolved request, ready for either transport.
type Descriptor struct {
	Method string
	// URL is the substituted request URL; Query is appended to it on send.
	URL    string
	Query  url.Values
	Header http.Header
	Body   []byte
	// BodyFile is read at send time for binary bodies.
	BodyFile string

	TLS *tls.Config
	// ClientCertsConfigured enables the fallback transport.
	ClientCertsConfigured bool
	ClientCert            *CertSelection

	Timeout         time.Duration
	MaxResponseSize int64
	Proxy           config.Proxy

	Source *collection.Request
}

// CertSelection records which configured client certificate was picked.
type CertSelection struct {
	Index int
	Host  string
	Match tlsconfig.MatchKind
}

// FullURL appends the query map to the substituted URL. A URL without a
// scheme is treated as http.
func (d *Descriptor) FullURL() string {
	raw := withScheme(d.URL)
	if len(d.Query) == 0 {
		return raw
	}
	encoded := d.Query.Encode()
	u, err := url.Parse(raw)
	if err != nil {
		sep := "?"
		if strings.Contains(raw, "?") {
			sep = "&"
		}
		return raw + sep + encoded
	}
	if u.RawQuery == "" {
		u.RawQuery = encoded
	} else {
		u.RawQuery += "&" + encoded
	}
	return u.String()
}

// Hostname extracts the host used for client certificate selection.
func (d *Descriptor) Hostname() (string, error) {
	u, err := url.Parse(withScheme(d.URL))
	if err != nil {
		return "", err
	}
	if u.Hostname() == "" {
		return "", errdef.New(errdef.CodeHTTP, "url %q has no host", d.URL)
	}
	return u.Hostname(), nil
}

func withScheme(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "://") {
		return raw
	}
	return "http://" + raw
}

func (d *Descriptor) newHTTPRequest(ctx context.Context, fsys FileSystem) (*http.Request, error) {
	body, err := d.payload(fsys)
	if err != nil {
		return nil, err
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, d.Method, d.FullURL(), reader)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeHTTP, err, "build request")
	}
	req.Header = d.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if host := req.Header.Get("Host"); host != "" {
		req.Host = host
	}
	return req, nil
}

// payload reads binary bodies at send time so each attempt gets a fresh copy.
func (d *Descriptor) payload(fsys FileSystem) ([]byte, error) {
	if d.BodyFile == "" {
		return d.Body, nil
	}
	if fsys == nil {
		fsys = OSFileSystem{}
	}
	data, err := fsys.ReadFile(d.BodyFile)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read body file %s", d.BodyFile)
	}
	return data, nil
}
