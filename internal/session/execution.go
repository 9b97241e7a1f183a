package session

import (
	"context"
	"time"
)

type State int

const (
	StateIdle State = iota
	StateRunning
	StateDone
	StateFailed
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateCanceled:
		return "canceled"
	default:
		return "idle"
	}
}

// Execution is the latest known run of one request.
type Execution struct {
	RequestID string
	State     State
	Started   time.Time
	Finished  time.Time
	Status    int
	Err       string

	seq    uint64
	cancel context.CancelFunc
}

func (e Execution) Duration() time.Duration {
	if e.Started.IsZero() || e.Finished.IsZero() {
		return 0
	}
	return e.Finished.Sub(e.Started)
}

// Tracker records in-flight and finished executions per request id.
// Starting a request that is already running cancels the earlier run.
type Tracker struct {
	runs *Registry[Execution]
	now  func() time.Time
	seq  uint64
}

func NewTracker() *Tracker {
	return &Tracker{runs: NewRegistry[Execution](), now: time.Now}
}

// Begin marks requestID as running and returns a context that Cancel
// aborts. The returned finish func must be called exactly once.
func (t *Tracker) Begin(ctx context.Context, requestID string) (context.Context, func(status int, err error)) {
	runCtx, cancel := context.WithCancel(ctx)
	var seq uint64
	t.runs.Update(requestID, func(cur Execution, ok bool) Execution {
		if ok && cur.State == StateRunning && cur.cancel != nil {
			cur.cancel()
		}
		t.seq++
		seq = t.seq
		return Execution{
			RequestID: requestID,
			State:     StateRunning,
			Started:   t.now(),
			seq:       seq,
			cancel:    cancel,
		}
	})

	finish := func(status int, err error) {
		canceled := runCtx.Err() != nil
		cancel()
		t.runs.Update(requestID, func(cur Execution, ok bool) Execution {
			// a newer run owns the slot now
			if !ok || cur.seq != seq {
				return cur
			}
			cur.Finished = t.now()
			cur.Status = status
			cur.cancel = nil
			switch {
			case canceled && err != nil:
				cur.State = StateCanceled
				cur.Err = err.Error()
			case err != nil:
				cur.State = StateFailed
				cur.Err = err.Error()
			default:
				cur.State = StateDone
			}
			return cur
		})
	}
	return runCtx, finish
}

// Cancel aborts a running execution. It reports whether one was running.
func (t *Tracker) Cancel(requestID string) bool {
	e, ok := t.runs.Get(requestID)
	if !ok || e.State != StateRunning || e.cancel == nil {
		return false
	}
	e.cancel()
	return true
}

func (t *Tracker) Last(requestID string) (Execution, bool) {
	return t.runs.Get(requestID)
}

func (t *Tracker) Running() []string {
	var ids []string
	t.runs.Range(func(id string, e Execution) bool {
		if e.State == StateRunning {
			ids = append(ids, id)
		}
		return true
	})
	return ids
}
