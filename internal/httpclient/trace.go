package httpclient

import (
	"crypto/tls"
	"net/http"
	"net/http/httptrace"
	"sync"

	"github.com/unkn0wn-root/restbench/internal/nettrace"
)

// traceSession feeds httptrace callbacks into a collector. Only the
// primary transport is traced.
type traceSession struct {
	collector *nettrace.Collector
	mu        sync.Mutex
	sending   bool
	waiting   bool
	reading   bool
}

func newTraceSession(c *nettrace.Collector) *traceSession {
	if c == nil {
		c = nettrace.NewCollector()
	}
	return &traceSession{collector: c}
}

func (s *traceSession) bind(req *http.Request) *http.Request {
	trace := &httptrace.ClientTrace{
		DNSStart: func(info httptrace.DNSStartInfo) {
			s.collector.Begin(nettrace.PhaseDNS)
			s.collector.Annotate(nettrace.PhaseDNS, info.Host, false)
		},
		DNSDone: func(info httptrace.DNSDoneInfo) {
			if len(info.Addrs) > 0 {
				s.collector.Annotate(nettrace.PhaseDNS, info.Addrs[0].String(), info.Coalesced)
			}
			s.collector.End(nettrace.PhaseDNS, info.Err)
			s.collector.Fail(info.Err)
		},
		ConnectStart: func(_, addr string) {
			s.collector.Begin(nettrace.PhaseConnect)
			s.collector.Annotate(nettrace.PhaseConnect, addr, false)
		},
		ConnectDone: func(_, _ string, err error) {
			s.collector.End(nettrace.PhaseConnect, err)
			s.collector.Fail(err)
		},
		GotConn: func(info httptrace.GotConnInfo) {
			remote := ""
			if info.Conn != nil {
				remote = info.Conn.RemoteAddr().String()
			}
			s.collector.SetConn(remote, "", "")
			if info.Reused {
				s.collector.Begin(nettrace.PhaseConnect)
				s.collector.Annotate(nettrace.PhaseConnect, remote, true)
				s.collector.End(nettrace.PhaseConnect, nil)
			}
		},
		TLSHandshakeStart: func() {
			s.collector.Begin(nettrace.PhaseTLS)
		},
		TLSHandshakeDone: func(state tls.ConnectionState, err error) {
			s.collector.End(nettrace.PhaseTLS, err)
			s.collector.Fail(err)
			if err == nil {
				s.collector.SetConn("", tls.VersionName(state.Version), state.NegotiatedProtocol)
			}
		},
		WroteHeaders: func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if !s.sending {
				s.sending = true
				s.collector.Begin(nettrace.PhaseSend)
			}
		},
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.sending {
				s.sending = false
				s.collector.End(nettrace.PhaseSend, info.Err)
			}
			if info.Err != nil {
				s.collector.Fail(info.Err)
				return
			}
			if !s.waiting {
				s.waiting = true
				s.collector.Begin(nettrace.PhaseTTFB)
			}
		},
		GotFirstResponseByte: func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.waiting {
				s.waiting = false
				s.collector.End(nettrace.PhaseTTFB, nil)
			}
			if !s.reading {
				s.reading = true
				s.collector.Begin(nettrace.PhaseTransfer)
			}
		},
	}
	return req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
}

// finish ends the transfer phase once the body has been read.
func (s *traceSession) finish(err error) *nettrace.Timeline {
	s.mu.Lock()
	if s.reading {
		s.reading = false
		s.collector.End(nettrace.PhaseTransfer, err)
	}
	s.mu.Unlock()
	s.collector.Fail(err)
	return s.collector.Timeline()
}
