package nettrace

import (
	"sort"
	"time"
)

type PhaseKind string

const (
	PhaseDNS      PhaseKind = "dns"
	PhaseConnect  PhaseKind = "connect"
	PhaseTLS      PhaseKind = "tls"
	PhaseSend     PhaseKind = "send"
	PhaseTTFB     PhaseKind = "ttfb"
	PhaseTransfer PhaseKind = "transfer"
)

// Order is the sequence phases happen in on a fresh connection.
var Order = []PhaseKind{PhaseDNS, PhaseConnect, PhaseTLS, PhaseSend, PhaseTTFB, PhaseTransfer}

type Phase struct {
	Kind     PhaseKind     `json:"kind"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
	Addr     string        `json:"addr,omitempty"`
	Reused   bool          `json:"reused,omitempty"`
	Err      string        `json:"error,omitempty"`
}

// Timeline is the phase breakdown of one exchange.
type Timeline struct {
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration"`
	RemoteAddr string        `json:"remoteAddr,omitempty"`
	TLSVersion string        `json:"tlsVersion,omitempty"`
	Protocol   string        `json:"protocol,omitempty"`
	Err        string        `json:"error,omitempty"`
	Phases     []Phase       `json:"phases"`
}

// Total sums every phase of kind; redirects can produce several.
func (tl *Timeline) Total(kind PhaseKind) time.Duration {
	if tl == nil {
		return 0
	}
	var d time.Duration
	for _, p := range tl.Phases {
		if p.Kind == kind && p.Duration > 0 {
			d += p.Duration
		}
	}
	return d
}

func (tl *Timeline) Clone() *Timeline {
	if tl == nil {
		return nil
	}
	out := *tl
	out.Phases = make([]Phase, len(tl.Phases))
	copy(out.Phases, tl.Phases)
	return &out
}

func sortPhases(phases []Phase) {
	sort.SliceStable(phases, func(i, j int) bool {
		if phases[i].Start.Equal(phases[j].Start) {
			return phases[i].Duration < phases[j].Duration
		}
		return phases[i].Start.Before(phases[j].Start)
	})
}
