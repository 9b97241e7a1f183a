package telemetry

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/unkn0wn-root/restbench/internal/nettrace"
)

const (
	keyRequestName  = attribute.Key("restbench.request.name")
	keyRequestID    = attribute.Key("restbench.request.id")
	keyResponseSize = attribute.Key("restbench.response.size")
	keyFallback     = attribute.Key("restbench.fallback")
	keyError        = attribute.Key("restbench.error")
	keyPhase        = attribute.Key("restbench.phase")
	keyPhaseMillis  = attribute.Key("restbench.phase.duration_ms")
	keyRemoteAddr   = attribute.Key("restbench.remote_addr")
	keyHTTPHost     = attribute.Key("http.host")

	eventFallback = "restbench.transport.fallback"
	eventPhase    = "restbench.phase"
)

type requestSpan struct {
	span trace.Span
}

func (rs *requestSpan) Fallback(err error) {
	attrs := []attribute.KeyValue{keyFallback.Bool(true)}
	if err != nil {
		attrs = append(attrs, keyError.String(err.Error()))
	}
	rs.span.AddEvent(eventFallback, trace.WithAttributes(attrs...))
}

func (rs *requestSpan) End(result RequestResult) {
	if result.StatusCode > 0 {
		rs.span.SetAttributes(semconv.HTTPStatusCodeKey.Int(result.StatusCode))
	}
	if result.Size > 0 {
		rs.span.SetAttributes(keyResponseSize.Int64(result.Size))
	}
	if result.Fallback {
		rs.span.SetAttributes(keyFallback.Bool(true))
	}
	rs.recordTimeline(result.Timeline)

	switch {
	case result.Err != nil:
		rs.span.RecordError(result.Err)
		rs.span.SetStatus(codes.Error, result.Err.Error())
	case result.StatusCode >= 400:
		rs.span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", result.StatusCode))
	default:
		rs.span.SetStatus(codes.Ok, "OK")
	}
	rs.span.End()
}

// recordTimeline adds one event per connection phase, stamped with the
// phase start so trace viewers line them up inside the span.
func (rs *requestSpan) recordTimeline(tl *nettrace.Timeline) {
	if tl == nil {
		return
	}
	if tl.RemoteAddr != "" {
		rs.span.SetAttributes(keyRemoteAddr.String(tl.RemoteAddr))
	}
	for _, p := range tl.Phases {
		attrs := []attribute.KeyValue{
			keyPhase.String(string(p.Kind)),
			keyPhaseMillis.Float64(float64(p.Duration.Microseconds()) / 1000),
		}
		if p.Err != "" {
			attrs = append(attrs, keyError.String(p.Err))
		}
		rs.span.AddEvent(eventPhase, trace.WithTimestamp(p.Start), trace.WithAttributes(attrs...))
	}
}

func requestAttributes(info RequestStart) []attribute.KeyValue {
	req := info.HTTPRequest
	var attrs []attribute.KeyValue
	if req.Method != "" {
		attrs = append(attrs, semconv.HTTPMethodKey.String(req.Method))
	}
	if u := req.URL; u != nil {
		if u.Scheme != "" {
			attrs = append(attrs, semconv.HTTPSchemeKey.String(u.Scheme))
		}
		if u.Host != "" {
			attrs = append(attrs, keyHTTPHost.String(u.Host))
		}
		if target := u.RequestURI(); target != "" {
			attrs = append(attrs, semconv.HTTPTargetKey.String(target))
		}
		attrs = append(attrs, semconv.HTTPURLKey.String(u.Redacted()))
	}
	if name := strings.TrimSpace(info.Name); name != "" {
		attrs = append(attrs, keyRequestName.String(name))
	}
	if info.RequestID != "" {
		attrs = append(attrs, keyRequestID.String(info.RequestID))
	}
	return attrs
}

func spanName(info RequestStart) string {
	if name := strings.TrimSpace(info.Name); name != "" {
		return name
	}
	req := info.HTTPRequest
	switch {
	case req.Method == "":
		return "http.request"
	case req.URL != nil && req.URL.Host != "":
		return req.Method + " " + req.URL.Host
	}
	return req.Method
}
