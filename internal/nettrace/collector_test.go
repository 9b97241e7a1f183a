package nettrace

import (
	"errors"
	"testing"
	"time"
)

type stepClock struct {
	t time.Time
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(10 * time.Millisecond)
	return c.t
}

func TestCollectorTimeline(t *testing.T) {
	t.Parallel()

	clock := &stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCollectorWithClock(clock.now)
	c.Begin(PhaseDNS)
	c.Annotate(PhaseDNS, "10.0.0.1", false)
	c.End(PhaseDNS, nil)
	c.Begin(PhaseConnect)
	c.End(PhaseConnect, nil)
	c.Begin(PhaseTTFB)
	c.End(PhaseTTFB, nil)
	c.Begin(PhaseTransfer)
	c.SetConn("10.0.0.1:443", "TLS 1.3", "h2")

	tl := c.Timeline()
	if tl == nil {
		t.Fatal("expected a timeline")
	}
	if len(tl.Phases) != 4 {
		t.Fatalf("expected 4 phases, got %+v", tl.Phases)
	}
	if tl.Phases[0].Kind != PhaseDNS || tl.Phases[0].Addr != "10.0.0.1" {
		t.Fatalf("unexpected first phase %+v", tl.Phases[0])
	}
	if got := tl.Total(PhaseConnect); got != 10*time.Millisecond {
		t.Fatalf("connect = %s", got)
	}
	last := tl.Phases[3]
	if last.Kind != PhaseTransfer || last.Err != "incomplete" {
		t.Fatalf("open phase not closed as incomplete: %+v", last)
	}
	if tl.TLSVersion != "TLS 1.3" || tl.Protocol != "h2" || tl.RemoteAddr != "10.0.0.1:443" {
		t.Fatalf("conn info not kept: %+v", tl)
	}
	if tl.Duration != 70*time.Millisecond {
		t.Fatalf("duration = %s", tl.Duration)
	}
}

func TestCollectorEmptyAndErrors(t *testing.T) {
	t.Parallel()

	if tl := NewCollector().Timeline(); tl != nil {
		t.Fatalf("expected nil timeline, got %+v", tl)
	}

	c := NewCollector()
	c.End(PhaseConnect, errors.New("refused"))
	c.Fail(errors.New("refused"))
	c.Fail(errors.New("second"))
	tl := c.Timeline()
	if tl.Err != "refused" || tl.Phases[0].Err != "refused" || tl.Phases[0].Duration != 0 {
		t.Fatalf("unexpected timeline %+v", tl)
	}
	if c.Active(PhaseConnect) {
		t.Fatal("ended phase still active")
	}
}

func TestTimelineCloneIsIndependent(t *testing.T) {
	t.Parallel()

	tl := &Timeline{Phases: []Phase{{Kind: PhaseDNS, Duration: time.Second}}}
	cp := tl.Clone()
	cp.Phases[0].Duration = 0
	if tl.Total(PhaseDNS) != time.Second {
		t.Fatal("clone shares phases")
	}
	var nilTL *Timeline
	if nilTL.Clone() != nil || nilTL.Total(PhaseDNS) != 0 {
		t.Fatal("nil timeline helpers misbehave")
	}
}
