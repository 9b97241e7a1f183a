package telemetry

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/unkn0wn-root/restbench/internal/nettrace"
)

func newRecorded(t *testing.T) (Instrumenter, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	inst, err := New(
		Config{ServiceName: "restbench-test", Version: "test"},
		WithSpanProcessor(recorder),
	)
	if err != nil {
		t.Fatalf("New instrumenter: %v", err)
	}
	t.Cleanup(func() {
		_ = inst.Shutdown(context.Background())
	})
	return inst, recorder
}

func TestInstrumenterRecordsRequest(t *testing.T) {
	inst, recorder := newRecorded(t)

	httpReq, err := http.NewRequestWithContext(
		context.Background(),
		http.MethodGet,
		"https://example.com/api/health",
		nil,
	)
	if err != nil {
		t.Fatalf("build http request: %v", err)
	}

	ctx, span := inst.Start(
		context.Background(),
		RequestStart{Name: "health", RequestID: "req-1", HTTPRequest: httpReq},
	)
	if ctx == nil || span == nil {
		t.Fatalf("expected span to be created")
	}
	span.End(RequestResult{StatusCode: 200, Size: 42})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	ro := spans[0]
	if got := ro.Name(); got != "health" {
		t.Fatalf("unexpected span name %q", got)
	}
	assertAttribute(t, ro, "http.method", "GET")
	assertAttribute(t, ro, "restbench.request.name", "health")
	assertAttribute(t, ro, "restbench.response.size", int64(42))
	assertAttribute(t, ro, "restbench.request.id", "req-1")
	if ro.Status().Code != codes.Ok {
		t.Fatalf("expected span status OK, got %v", ro.Status().Code)
	}
}

func TestInstrumenterRecordsFallback(t *testing.T) {
	inst, recorder := newRecorded(t)

	httpReq, err := http.NewRequest(http.MethodPost, "https://mtls.example.com/v1", nil)
	if err != nil {
		t.Fatalf("build http request: %v", err)
	}
	_, span := inst.Start(context.Background(), RequestStart{HTTPRequest: httpReq})
	span.Fallback(errors.New("handshake failure"))
	span.End(RequestResult{Err: errors.New("dial refused"), Fallback: true})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	ro := spans[0]
	if ro.Name() != "POST mtls.example.com" {
		t.Fatalf("unexpected span name %q", ro.Name())
	}
	if ro.Status().Code != codes.Error {
		t.Fatalf("expected error status, got %v", ro.Status().Code)
	}
	assertAttribute(t, ro, "restbench.fallback", true)
	var sawFallback bool
	for _, ev := range ro.Events() {
		if ev.Name == "restbench.transport.fallback" {
			sawFallback = true
		}
	}
	if !sawFallback {
		t.Fatalf("expected fallback event")
	}
}

func TestHTTPErrorStatusMarksSpan(t *testing.T) {
	inst, recorder := newRecorded(t)
	httpReq, _ := http.NewRequest(http.MethodGet, "http://localhost/missing", nil)
	_, span := inst.Start(context.Background(), RequestStart{HTTPRequest: httpReq})
	span.End(RequestResult{StatusCode: 404})

	ro := recorder.Ended()[0]
	if ro.Status().Code != codes.Error || ro.Status().Description != "HTTP 404" {
		t.Fatalf("unexpected status %+v", ro.Status())
	}
}

func TestTimelineBecomesPhaseEvents(t *testing.T) {
	inst, recorder := newRecorded(t)
	httpReq, _ := http.NewRequest(http.MethodGet, "http://localhost:8080/slow", nil)
	_, span := inst.Start(context.Background(), RequestStart{HTTPRequest: httpReq})

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	span.End(RequestResult{
		StatusCode: 200,
		Timeline: &nettrace.Timeline{
			Started:    start,
			RemoteAddr: "127.0.0.1:8080",
			Phases: []nettrace.Phase{
				{Kind: nettrace.PhaseConnect, Start: start, Duration: 1500 * time.Microsecond},
				{Kind: nettrace.PhaseTTFB, Start: start.Add(2 * time.Millisecond), Duration: 40 * time.Millisecond},
			},
		},
	})

	ro := recorder.Ended()[0]
	assertAttribute(t, ro, "restbench.remote_addr", "127.0.0.1:8080")
	var phases []string
	for _, ev := range ro.Events() {
		if ev.Name != "restbench.phase" {
			continue
		}
		for _, kv := range ev.Attributes {
			if kv.Key == "restbench.phase" {
				phases = append(phases, kv.Value.AsString())
			}
			if kv.Key == "restbench.phase.duration_ms" && kv.Value.AsFloat64() == 1.5 && !ev.Time.Equal(start) {
				t.Fatalf("connect event time = %v, want %v", ev.Time, start)
			}
		}
	}
	if strings.Join(phases, ",") != "connect,ttfb" {
		t.Fatalf("phase events = %v", phases)
	}
}

func TestNewWithoutEndpointIsNoop(t *testing.T) {
	t.Parallel()
	inst, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := inst.(noopInstrumenter); !ok {
		t.Fatalf("expected noop instrumenter, got %T", inst)
	}
	ctx := context.Background()
	got, span := inst.Start(ctx, RequestStart{})
	if got != ctx {
		t.Fatalf("noop should return the caller context")
	}
	span.Fallback(nil)
	span.End(RequestResult{})
}

func assertAttribute(t *testing.T, span sdktrace.ReadOnlySpan, key string, want any) {
	t.Helper()
	attrs := span.Attributes()
	for _, attr := range attrs {
		if string(attr.Key) != key {
			continue
		}
		switch v := want.(type) {
		case string:
			if attr.Value.AsString() == v {
				return
			}
		case bool:
			if attr.Value.AsBool() == v {
				return
			}
		case int64:
			if attr.Value.AsInt64() == v {
				return
			}
		}
		t.Fatalf("attribute %s mismatch: got %v, want %v", key, attr.Value, want)
	}
	t.Fatalf("attribute %s not found", key)
}
