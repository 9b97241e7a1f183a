package collection

import (
	"errors"
	"fmt"
)

var ErrStop = errors.New("stop walk")

// WalkFunc receives each item with its depth (0 for roots) and the nearest
// enclosing folder, which is nil at the root.
type WalkFunc func(it Item, depth int, parent *Folder) error

// Walk visits items depth first in slice order. Returning ErrStop ends the
// walk without an error.
func Walk(items []Item, fn WalkFunc) error {
	err := walk(items, 0, nil, fn)
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}

func walk(items []Item, depth int, parent *Folder, fn WalkFunc) error {
	for _, it := range items {
		if err := fn(it, depth, parent); err != nil {
			return err
		}
		if it.Folder != nil {
			if err := walk(it.Folder.Children, depth+1, it.Folder, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func Find(items []Item, id string) (Item, bool) {
	var found Item
	ok := false
	_ = Walk(items, func(it Item, _ int, _ *Folder) error {
		if it.ID() == id {
			found, ok = it, true
			return ErrStop
		}
		return nil
	})
	return found, ok
}

func FindRequest(items []Item, id string) (*Request, bool) {
	it, ok := Find(items, id)
	if !ok || it.Request == nil {
		return nil, false
	}
	return it.Request, true
}

// Requests flattens the tree into its request leaves in walk order.
func Requests(items []Item) []*Request {
	var out []*Request
	_ = Walk(items, func(it Item, _ int, _ *Folder) error {
		if it.Request != nil {
			out = append(out, it.Request)
		}
		return nil
	})
	return out
}

// Replace returns a copy of items with the node matching repl's id swapped
// for repl. The second result reports whether a node was replaced.
func Replace(items []Item, repl Item) ([]Item, bool) {
	id := repl.ID()
	out := make([]Item, 0, len(items))
	replaced := false
	for _, it := range items {
		switch {
		case it.ID() == id:
			out = append(out, repl)
			replaced = true
		case it.Folder != nil && !replaced:
			children, ok := Replace(it.Folder.Children, repl)
			if ok {
				f := *it.Folder
				f.Children = children
				out = append(out, FolderItem(&f))
				replaced = true
				continue
			}
			out = append(out, it)
		default:
			out = append(out, it)
		}
	}
	return out, replaced
}

// Remove filters the node with id, and its subtree, out of items.
func Remove(items []Item, id string) ([]Item, bool) {
	out := make([]Item, 0, len(items))
	removed := false
	for _, it := range items {
		if it.ID() == id {
			removed = true
			continue
		}
		if it.Folder != nil {
			children, ok := Remove(it.Folder.Children, id)
			if ok {
				f := *it.Folder
				f.Children = children
				out = append(out, FolderItem(&f))
				removed = true
				continue
			}
		}
		out = append(out, it)
	}
	return out, removed
}

// AssignParents stamps parentId on every node below the given parent id.
func AssignParents(items []Item, parentID string) {
	for _, it := range items {
		it.setParent(parentID)
		if it.Folder != nil {
			AssignParents(it.Folder.Children, it.Folder.ID)
		}
	}
}

// Validate reports duplicate ids and empty nodes.
func Validate(items []Item) error {
	seen := make(map[string]struct{})
	return Walk(items, func(it Item, _ int, _ *Folder) error {
		if it.Folder == nil && it.Request == nil {
			return fmt.Errorf("empty collection item")
		}
		id := it.ID()
		if id == "" {
			return fmt.Errorf("item %q has no id", it.Name())
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate item id %q", id)
		}
		seen[id] = struct{}{}
		return nil
	})
}

func Clone(it Item) Item {
	switch {
	case it.Folder != nil:
		f := *it.Folder
		f.Children = make([]Item, len(it.Folder.Children))
		for i, child := range it.Folder.Children {
			f.Children[i] = Clone(child)
		}
		return FolderItem(&f)
	case it.Request != nil:
		return RequestItem(CloneRequest(it.Request))
	default:
		return it
	}
}

func CloneRequest(r *Request) *Request {
	if r == nil {
		return nil
	}
	c := *r
	c.Headers = cloneKeyValues(r.Headers)
	c.QueryParams = cloneKeyValues(r.QueryParams)
	c.Body = cloneBody(r.Body)
	if r.Auth != nil {
		a := *r.Auth
		if r.Auth.Params != nil {
			a.Params = make(map[string]string, len(r.Auth.Params))
			for k, v := range r.Auth.Params {
				a.Params[k] = v
			}
		}
		c.Auth = &a
	}
	if r.Examples != nil {
		c.Examples = make([]Example, len(r.Examples))
		for i, ex := range r.Examples {
			c.Examples[i] = ex
			if ex.Request != nil {
				snap := *ex.Request
				snap.QueryParams = cloneKeyValues(ex.Request.QueryParams)
				snap.Headers = cloneKeyValues(ex.Request.Headers)
				snap.Body = cloneBody(ex.Request.Body)
				c.Examples[i].Request = &snap
			}
		}
	}
	c.ResponseHistory = append([]ResponseRecord(nil), r.ResponseHistory...)
	return &c
}

func cloneKeyValues(in []KeyValue) []KeyValue {
	if in == nil {
		return nil
	}
	out := make([]KeyValue, len(in))
	copy(out, in)
	return out
}

func cloneBody(b Body) Body {
	c := b
	c.FormData = cloneKeyValues(b.FormData)
	c.URLEncoded = cloneKeyValues(b.URLEncoded)
	if b.GraphQL != nil {
		g := *b.GraphQL
		c.GraphQL = &g
	}
	return c
}
