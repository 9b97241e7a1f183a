package app

import (
	"context"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/unkn0wn-root/restbench/internal/collection"
)

type SearchResult struct {
	Request *collection.Request
	// Path is the folder chain from the collection root, "/" separated.
	Path     string
	Distance int
}

// Search ranks every stored request against query by name, method and
// URL. Matching is case-insensitive and in-order, as a fuzzy finder does.
func (s *Service) Search(ctx context.Context, query string) ([]SearchResult, error) {
	items, err := s.ws.Collections(ctx)
	if err != nil {
		return nil, err
	}

	located := locateRequests(items)
	targets := make([]string, len(located))
	for i, l := range located {
		targets[i] = l.req.Name + " " + l.req.Method + " " + l.req.URL
	}

	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]SearchResult, len(located))
		for i, l := range located {
			out[i] = SearchResult{Request: l.req, Path: l.path}
		}
		return out, nil
	}

	ranks := fuzzy.RankFindFold(query, targets)
	sort.Stable(ranks)
	out := make([]SearchResult, 0, len(ranks))
	for _, r := range ranks {
		l := located[r.OriginalIndex]
		out = append(out, SearchResult{Request: l.req, Path: l.path, Distance: r.Distance})
	}
	return out, nil
}

// locatedRequest is a stored request with the folder chain leading to it.
type locatedRequest struct {
	req  *collection.Request
	path string
}

func (l locatedRequest) fullPath() string {
	if l.path == "" {
		return l.req.Name
	}
	return l.path + "/" + l.req.Name
}

// locateRequests lists every request in tree order.
func locateRequests(items []collection.Item) []locatedRequest {
	var out []locatedRequest
	var walk func(items []collection.Item, trail []string)
	walk = func(items []collection.Item, trail []string) {
		for _, it := range items {
			switch {
			case it.Folder != nil:
				walk(it.Folder.Children, append(trail, it.Folder.Name))
			case it.Request != nil:
				out = append(out, locatedRequest{req: it.Request, path: strings.Join(trail, "/")})
			}
		}
	}
	walk(items, nil)
	return out
}
