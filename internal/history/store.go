package history

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/unkn0wn-root/restbench/internal/collection"
	"github.com/unkn0wn-root/restbench/internal/errdef"
)

// MaxEntries is how many executions are remembered.
const MaxEntries = 50

// Entry is one execution: the request as it was sent plus a summary of
// what came back.
type Entry struct {
	ID          string             `json:"id"`
	ExecutedAt  time.Time          `json:"timestamp"`
	Environment string             `json:"environment,omitempty"`
	Request     collection.Request `json:"request"`
	Response    Summary            `json:"response"`
}

type Summary struct {
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	DurationMS int64  `json:"duration"`
	Size       int64  `json:"size"`
	Error      string `json:"error,omitempty"`
}

// NewEntry snapshots req so later edits to it do not rewrite history.
func NewEntry(req *collection.Request, env string, sum Summary, at time.Time) Entry {
	var snap collection.Request
	if c := collection.CloneRequest(req); c != nil {
		snap = *c
	}
	// responses are tracked by the entries themselves
	snap.ResponseHistory = nil
	return Entry{
		ID:          collection.NewID(),
		ExecutedAt:  at,
		Environment: env,
		Request:     snap,
		Response:    sum,
	}
}

// Backend persists the full entry list. store.Workspace satisfies it.
type Backend interface {
	History(ctx context.Context) ([]Entry, error)
	SetHistory(ctx context.Context, entries []Entry) error
}

type Store struct {
	backend    Backend
	maxEntries int
	entries    []Entry
	mu         sync.RWMutex
	loaded     bool
}

// NewStore keeps at most maxEntries; values <= 0 mean MaxEntries. A nil
// backend keeps history in memory only.
func NewStore(backend Backend, maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = MaxEntries
	}
	return &Store{backend: backend, maxEntries: maxEntries}
}

func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLoadedLocked(ctx)
}

func (s *Store) Append(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(ctx); err != nil {
		return err
	}

	s.entries = Push(s.entries, entry, s.maxEntries)
	return s.persist(ctx)
}

func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copies := make([]Entry, len(s.entries))
	copy(copies, s.entries)
	return copies
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoadedLocked(ctx); err != nil {
		return false, err
	}

	idx := -1
	for i, entry := range s.entries {
		if entry.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, nil
	}

	copy(s.entries[idx:], s.entries[idx+1:])
	s.entries = s.entries[:len(s.entries)-1]

	if err := s.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = []Entry{}
	s.loaded = true
	return s.persist(ctx)
}

// ByRequest matches the request id, then its name or URL.
func (s *Store) ByRequest(identifier string) []Entry {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return s.Entries()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []Entry
	for _, entry := range s.entries {
		r := entry.Request
		if r.ID == trimmed || r.Name == trimmed || r.URL == trimmed {
			matched = append(matched, entry)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return newerFirst(matched[i], matched[j])
	})
	return matched
}

func (s *Store) persist(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	if err := s.backend.SetHistory(ctx, s.entries); err != nil {
		return errdef.Wrap(errdef.CodeHistory, err, "save history")
	}
	return nil
}

func (s *Store) ensureLoadedLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	if s.backend == nil {
		s.entries = []Entry{}
		s.loaded = true
		return nil
	}

	entries, err := s.backend.History(ctx)
	if err != nil {
		return errdef.Wrap(errdef.CodeHistory, err, "load history")
	}
	s.entries = Normalize(entries, s.maxEntries)
	s.loaded = true
	return nil
}

// Push puts entry first and drops whatever no longer fits. entries is
// assumed to be newest first already.
func Push(entries []Entry, entry Entry, limit int) []Entry {
	out := make([]Entry, 0, len(entries)+1)
	out = append(out, entry)
	out = append(out, entries...)
	return Normalize(out, limit)
}

// Normalize sorts newest first and applies the cap.
func Normalize(entries []Entry, limit int) []Entry {
	if limit <= 0 {
		limit = MaxEntries
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return newerFirst(out[i], out[j])
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// newerFirst orders by execution time; entries without one sink to the
// end in their existing order.
func newerFirst(a, b Entry) bool {
	ai := a.ExecutedAt
	bi := b.ExecutedAt
	switch {
	case ai.IsZero() && bi.IsZero():
		return false
	case ai.IsZero():
		return false
	case bi.IsZero():
		return true
	default:
		return ai.After(bi)
	}
}
