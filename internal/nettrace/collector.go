package nettrace

import (
	"sync"
	"time"
)

type openPhase struct {
	start  time.Time
	addr   string
	reused bool
}

// Collector gathers phases as httptrace callbacks fire. It is safe for
// concurrent use; the transport may call hooks from several goroutines.
type Collector struct {
	mu       sync.Mutex
	now      func() time.Time
	started  time.Time
	finished time.Time
	err      string
	open     map[PhaseKind]*openPhase
	phases   []Phase
	info     Timeline
}

func NewCollector() *Collector {
	return NewCollectorWithClock(time.Now)
}

func NewCollectorWithClock(now func() time.Time) *Collector {
	if now == nil {
		now = time.Now
	}
	return &Collector{now: now, open: make(map[PhaseKind]*openPhase)}
}

func (c *Collector) Begin(kind PhaseKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.now()
	if c.started.IsZero() {
		c.started = ts
	}
	c.open[kind] = &openPhase{start: ts}
}

// Annotate sets the address of an open phase. It is a no-op when the phase
// is not open.
func (c *Collector) Annotate(kind PhaseKind, addr string, reused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p := c.open[kind]; p != nil {
		if addr != "" {
			p.addr = addr
		}
		p.reused = p.reused || reused
	}
}

// End closes kind. Ending a phase that never began records it with zero
// duration.
func (c *Collector) End(kind PhaseKind, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.now()
	p, ok := c.open[kind]
	if !ok {
		p = &openPhase{start: ts}
	}
	delete(c.open, kind)
	c.record(kind, p, ts, err)
}

// Active reports whether kind has begun and not ended.
func (c *Collector) Active(kind PhaseKind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.open[kind]
	return ok
}

func (c *Collector) SetConn(remote, tlsVersion, proto string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if remote != "" {
		c.info.RemoteAddr = remote
	}
	if tlsVersion != "" {
		c.info.TLSVersion = tlsVersion
	}
	if proto != "" {
		c.info.Protocol = proto
	}
}

func (c *Collector) Fail(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == "" {
		c.err = err.Error()
	}
}

// Timeline closes any open phase as incomplete and returns the result.
// It returns nil when nothing was recorded.
func (c *Collector) Timeline() *Timeline {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.now()
	for kind, p := range c.open {
		c.record(kind, p, ts, nil)
		c.phases[len(c.phases)-1].Err = "incomplete"
	}
	clear(c.open)
	if c.started.IsZero() {
		return nil
	}

	tl := c.info
	tl.Started = c.started
	tl.Err = c.err
	tl.Phases = make([]Phase, len(c.phases))
	copy(tl.Phases, c.phases)
	sortPhases(tl.Phases)
	if c.finished.After(c.started) {
		tl.Duration = c.finished.Sub(c.started)
	}
	return &tl
}

func (c *Collector) record(kind PhaseKind, p *openPhase, end time.Time, err error) {
	if c.started.IsZero() || p.start.Before(c.started) {
		c.started = p.start
	}
	if end.Before(p.start) {
		end = p.start
	}
	phase := Phase{Kind: kind, Start: p.start, Duration: end.Sub(p.start), Addr: p.addr, Reused: p.reused}
	if err != nil {
		phase.Err = err.Error()
	}
	c.phases = append(c.phases, phase)
	if end.After(c.finished) {
		c.finished = end
	}
}
