package curl

import (
	"fmt"
	"slices"
	"strings"
)

// warnings collects unique, human readable import notes.
type warnings map[string]struct{}

func (w warnings) add(format string, args ...any) {
	msg := strings.TrimSpace(fmt.Sprintf(format, args...))
	if msg != "" {
		w[msg] = struct{}{}
	}
}

func (w warnings) flag(flag string) {
	if flag = strings.TrimSpace(flag); flag != "" {
		w.add("unsupported flag %s (ignored)", flag)
	}
}

func (w warnings) list() []string {
	if len(w) == 0 {
		return nil
	}
	out := make([]string, 0, len(w))
	for msg := range w {
		out = append(out, msg)
	}
	slices.Sort(out)
	return out
}
