package app

import (
	"bytes"
	"context"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/goccy/go-json"

	"github.com/unkn0wn-root/restbench/internal/errdef"
	"github.com/unkn0wn-root/restbench/internal/httpclient"
)

// CompareExample diffs a saved example against a live response. Both
// bodies are pretty-printed first when they are JSON so formatting alone
// never shows up. An empty result means they match.
func (s *Service) CompareExample(ctx context.Context, requestID, exampleRef string, resp *httpclient.Response) (string, error) {
	req, err := s.FindRequest(ctx, requestID)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errdef.New(errdef.CodeHTTP, "no response to compare")
	}
	for _, ex := range req.Examples {
		if ex.ID != exampleRef && ex.Name != exampleRef {
			continue
		}
		want := normalizeBody(ex.Body)
		got := normalizeBody(string(resp.Body))
		if want == got {
			return "", nil
		}
		return udiff.Unified("example: "+ex.Name, "response", want, got), nil
	}
	return "", errdef.New(errdef.CodeNotFound, "example %q not found on %q", exampleRef, req.Name)
}

func normalizeBody(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return ""
	}
	var compact, buf bytes.Buffer
	if json.Valid([]byte(trimmed)) && json.Compact(&compact, []byte(trimmed)) == nil {
		if err := json.Indent(&buf, compact.Bytes(), "", "  "); err == nil {
			return buf.String() + "\n"
		}
	}
	return trimmed + "\n"
}
