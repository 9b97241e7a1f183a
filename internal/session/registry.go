package session

import (
	"sort"
	"sync"
)

// Registry is a concurrency-safe map of entities keyed by id.
type Registry[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{items: make(map[string]T)}
}

func (r *Registry[T]) Get(id string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[id]
	return v, ok
}

func (r *Registry[T]) Put(id string, v T) {
	r.mu.Lock()
	r.items[id] = v
	r.mu.Unlock()
}

// Update applies fn to the current value, or the zero value when absent,
// and stores the result atomically.
func (r *Registry[T]) Update(id string, fn func(cur T, ok bool) T) T {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[id]
	next := fn(cur, ok)
	r.items[id] = next
	return next
}

func (r *Registry[T]) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return false
	}
	delete(r.items, id)
	return true
}

func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Keys returns the ids in sorted order.
func (r *Registry[T]) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.items))
	for k := range r.items {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Range visits entries in key order until fn returns false. fn runs
// without the lock held.
func (r *Registry[T]) Range(fn func(id string, v T) bool) {
	for _, k := range r.Keys() {
		v, ok := r.Get(k)
		if !ok {
			continue
		}
		if !fn(k, v) {
			return
		}
	}
}
