package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/unkn0wn-root/restbench/internal/errdef"
	"github.com/unkn0wn-root/restbench/internal/telemetry"
)

// Sender performs one HTTP exchange. The fallback transport has this shape
// so tests can replace it.
type Sender func(ctx context.Context, desc *Descriptor, req *http.Request) (*http.Response, error)

type Client struct {
	fs          FileSystem
	logger      *slog.Logger
	httpFactory func(*Descriptor) (*http.Client, error)
	fallback    Sender
	telemetry   telemetry.Instrumenter
	now         func() time.Time
}

func NewClient(fs FileSystem) *Client {
	if fs == nil {
		fs = OSFileSystem{}
	}
	c := &Client{
		fs:        fs,
		logger:    slog.Default(),
		telemetry: telemetry.Noop(),
		now:       time.Now,
	}
	c.httpFactory = c.buildHTTPClient
	c.fallback = c.sendRaw
	return c
}

// SetHTTPFactory allows callers to override how http.Client instances are created.
// Passing nil restores the default factory.
func (c *Client) SetHTTPFactory(factory func(*Descriptor) (*http.Client, error)) {
	if factory == nil {
		factory = c.buildHTTPClient
	}
	c.httpFactory = factory
}

// SetFallback replaces the raw TCP/TLS transport. Passing nil restores it.
func (c *Client) SetFallback(s Sender) {
	if s == nil {
		s = c.sendRaw
	}
	c.fallback = s
}

// SetTelemetry configures the instrumenter used to emit OpenTelemetry spans. Passing nil restores the no-op implementation.
func (c *Client) SetTelemetry(instr telemetry.Instrumenter) {
	if instr == nil {
		instr = telemetry.Noop()
	}
	c.telemetry = instr
}

func (c *Client) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	c.logger = l
}

// Execute never returns an error: failures come back as a Response with
// StatusText "Error" and a message in Data. When client certificates are
// configured a failed primary attempt is retried once over the raw
// transport.
func (c *Client) Execute(ctx context.Context, desc *Descriptor) (resp *Response) {
	start := c.now()
	if desc == nil {
		return errorResponse(0, errdef.New(errdef.CodeHTTP, "request is nil"), 0)
	}
	if desc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, desc.Timeout)
		defer cancel()
	}

	httpReq, err := desc.newHTTPRequest(ctx, c.fs)
	if err != nil {
		return errorResponse(0, err, c.now().Sub(start))
	}

	info := telemetry.RequestStart{Name: httpReq.Method + " " + httpReq.URL.Host, HTTPRequest: httpReq}
	if src := desc.Source; src != nil {
		info.RequestID = src.ID
		if src.Name != "" {
			info.Name = src.Name
		}
	}
	spanCtx, span := c.telemetry.Start(ctx, info)
	trace := newTraceSession(nil)
	httpReq = trace.bind(httpReq.WithContext(spanCtx))
	log := c.logger.With("method", httpReq.Method, "url", httpReq.URL.Redacted())

	usedFallback := false
	defer func() {
		span.End(telemetry.RequestResult{
			Err:        resp.Err,
			StatusCode: resp.Status,
			Size:       resp.Size,
			Fallback:   usedFallback,
			Timeline:   resp.Timeline,
		})
	}()

	httpResp, err := c.sendPrimary(desc, httpReq)
	if err != nil && desc.ClientCertsConfigured && ctx.Err() == nil {
		log.Warn("primary transport failed, retrying over raw transport", "error", err)
		span.Fallback(err)
		usedFallback = true
		retryReq, buildErr := desc.newHTTPRequest(spanCtx, c.fs)
		if buildErr != nil {
			return errorResponse(0, buildErr, c.now().Sub(start))
		}
		var fbErr error
		httpResp, fbErr = c.fallback(spanCtx, desc, retryReq)
		if fbErr != nil {
			err = errdef.Wrap(errdef.CodeHTTP, errors.Join(err, fbErr), "fallback transport")
		} else {
			err = nil
		}
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && desc.Timeout > 0 {
			err = errdef.Wrap(errdef.CodeHTTP, err, "request timed out after %s", desc.Timeout)
		}
		log.Debug("request failed", "error", err)
		failed := errorResponse(0, err, c.now().Sub(start))
		failed.Timeline = trace.finish(err)
		return failed
	}
	defer httpResp.Body.Close()

	out, err := c.normalize(httpResp, desc, log)
	timeline := trace.finish(err)
	if err != nil {
		failed := errorResponse(httpResp.StatusCode, err, c.now().Sub(start))
		failed.Timeline = timeline
		return failed
	}
	out.Duration = c.now().Sub(start)
	out.Fallback = usedFallback
	out.Timeline = timeline
	return out
}

func (c *Client) sendPrimary(desc *Descriptor, req *http.Request) (*http.Response, error) {
	factory := c.httpFactory
	if factory == nil {
		factory = c.buildHTTPClient
	}
	client, err := factory(desc)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		client.CloseIdleConnections()
		return nil, errdef.Wrap(errdef.CodeHTTP, err, "perform request")
	}
	resp.Body = &idleClosingBody{ReadCloser: resp.Body, client: client}
	return resp, nil
}

// idleClosingBody drops the client's pooled connections once the body is
// closed; the per-request transport is never used again.
type idleClosingBody struct {
	io.ReadCloser
	client *http.Client
}

func (b *idleClosingBody) Close() error {
	err := b.ReadCloser.Close()
	b.client.CloseIdleConnections()
	return err
}

func errorResponse(status int, err error, d time.Duration) *Response {
	msg := errdef.Message(err)
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", status)
	}
	return &Response{
		Status:     status,
		StatusText: StatusTextError,
		Data:       map[string]any{"message": msg},
		Headers:    map[string]string{},
		Duration:   d,
		Size:       0,
		Err:        err,
	}
}
