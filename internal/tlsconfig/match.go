package tlsconfig

import (
	"regexp"
	"strings"
)

type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchPattern
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchPattern:
		return "pattern"
	default:
		return "none"
	}
}

// HostMatch is the outcome of comparing one host pattern with a hostname.
// Err is set when the pattern is not a valid regular expression; such a
// pattern never matches.
type HostMatch struct {
	Kind    MatchKind
	Pattern string
	Err     error
}

func (m HostMatch) Matched() bool {
	return m.Kind != MatchNone
}

// MatchHost compares pattern with host exactly, then as an unanchored
// regular expression.
func MatchHost(pattern, host string) HostMatch {
	if pattern == "" || host == "" {
		return HostMatch{Pattern: pattern}
	}
	if m := matchExact(pattern, host); m.Matched() {
		return m
	}
	return matchPattern(pattern, host)
}

func matchExact(pattern, host string) HostMatch {
	if pattern == host {
		return HostMatch{Kind: MatchExact, Pattern: pattern}
	}
	return HostMatch{Pattern: pattern}
}

func matchPattern(pattern, host string) HostMatch {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return HostMatch{Pattern: pattern, Err: err}
	}
	if re.MatchString(host) {
		return HostMatch{Kind: MatchPattern, Pattern: pattern}
	}
	return HostMatch{Pattern: pattern}
}

// Select returns the index of the first pattern equal to host, or failing
// that the first whose regular expression matches it. Exact matches across
// the whole list win over any pattern match. Invalid patterns are reported
// in skipped and treated as non-matching.
func Select(patterns []string, host string) (idx int, match HostMatch, skipped []HostMatch) {
	host = strings.TrimSpace(host)
	if host == "" {
		return -1, HostMatch{}, nil
	}
	for i, p := range patterns {
		if m := matchExact(p, host); m.Matched() {
			return i, m, nil
		}
	}
	for i, p := range patterns {
		if p == "" {
			continue
		}
		m := matchPattern(p, host)
		if m.Err != nil {
			skipped = append(skipped, m)
			continue
		}
		if m.Matched() {
			return i, m, skipped
		}
	}
	return -1, HostMatch{}, skipped
}
