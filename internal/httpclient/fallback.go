package httpclient

import (
	"bufio"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/unkn0wn-root/restbench/internal/errdef"
)

// sendRaw speaks HTTP/1.1 over a connection it dials and handshakes itself,
// bypassing http.Transport. Proxies are not used on this path.
func (c *Client) sendRaw(ctx context.Context, desc *Descriptor, req *http.Request) (*http.Response, error) {
	u := req.URL
	host := u.Hostname()
	if host == "" {
		return nil, errdef.New(errdef.CodeHTTP, "raw transport: url %q has no host", u.Redacted())
	}
	secure := strings.EqualFold(u.Scheme, "https")
	port := u.Port()
	if port == "" {
		port = "80"
		if secure {
			port = "443"
		}
	}

	dialer := &net.Dialer{Timeout: 30 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeHTTP, err, "raw transport dial")
	}
	if secure {
		cfg := &tls.Config{MinVersion: tls.VersionTLS12}
		if desc.TLS != nil {
			cfg = desc.TLS.Clone()
		}
		if cfg.ServerName == "" {
			cfg.ServerName = host
		}
		cfg.NextProtos = []string{"http/1.1"}
		tlsConn := tls.Client(conn, cfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, errdef.Wrap(errdef.CodeTLS, err, "raw transport handshake")
		}
		conn = tlsConn
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	req.Close = true
	if err := req.Write(conn); err != nil {
		stop()
		_ = conn.Close()
		return nil, errdef.Wrap(errdef.CodeHTTP, err, "raw transport write")
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		stop()
		_ = conn.Close()
		return nil, errdef.Wrap(errdef.CodeHTTP, err, "raw transport read")
	}
	resp.Body = &connBody{ReadCloser: resp.Body, conn: conn, stop: stop}
	return resp, nil
}

type connBody struct {
	io.ReadCloser
	conn net.Conn
	stop func() bool
}

func (b *connBody) Close() error {
	b.stop()
	err := b.ReadCloser.Close()
	_ = b.conn.Close()
	return err
}
