package vars

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var templateVarPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Substitute replaces every {{name}} whose trimmed name is a key of env.
// Unknown names, and text that does not form a placeholder, pass through
// unchanged.
func Substitute(text string, env map[string]string) string {
	if len(env) == 0 || !strings.Contains(text, "{{") {
		return text
	}
	return templateVarPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholderName(match)
		if value, ok := env[name]; ok {
			return value
		}
		return match
	})
}

// Names lists the distinct placeholder names in text in order of appearance.
func Names(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range templateVarPattern.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func placeholderName(match string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(match, "{{"), "}}"))
}

type Provider interface {
	Resolve(name string) (string, bool)
	Label() string
}

// Resolver expands placeholders against an ordered list of providers. The
// first provider that knows a name wins.
type Resolver struct {
	providers []Provider
}

func NewResolver(providers ...Provider) *Resolver {
	return &Resolver{providers: providers}
}

// First tries direct lookup across all providers.
// If that fails and the name has a dot, tries to match a provider prefix -
// so "prod.id" looks for a provider labeled "prod" then asks for "id".
func (r *Resolver) Resolve(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || r == nil {
		return "", false
	}
	for _, provider := range r.providers {
		if value, ok := provider.Resolve(trimmed); ok {
			return value, true
		}
	}
	prefix, subject, ok := strings.Cut(trimmed, ".")
	if !ok || strings.TrimSpace(subject) == "" {
		return "", false
	}
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	for _, provider := range r.providers {
		if strings.ToLower(strings.TrimSpace(provider.Label())) != prefix {
			continue
		}
		if value, ok := provider.Resolve(strings.TrimSpace(subject)); ok {
			return value, true
		}
	}
	return "", false
}

// Expand substitutes every resolvable placeholder and reports the names it
// could not resolve. Unresolved placeholders stay in the output.
func (r *Resolver) Expand(input string) (string, []string) {
	if !strings.Contains(input, "{{") {
		return input, nil
	}
	var missing []string
	out := templateVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := placeholderName(match)
		if value, ok := r.Resolve(name); ok {
			return value
		}
		missing = append(missing, name)
		return match
	})
	return out, missing
}

type MapProvider struct {
	values map[string]string
	label  string
}

// NewMapProvider keeps keys as given; environment variable names are case
// sensitive.
func NewMapProvider(label string, values map[string]string) Provider {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &MapProvider{values: copied, label: label}
}

func (p *MapProvider) Resolve(name string) (string, bool) {
	value, ok := p.values[name]
	return value, ok
}

func (p *MapProvider) Label() string {
	return p.label
}

// DynamicProvider generates fresh values for $-prefixed names.
type DynamicProvider struct {
	Now func() time.Time
}

func (p DynamicProvider) Resolve(name string) (string, bool) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	switch strings.ToLower(name) {
	case "$timestamp":
		return strconv.FormatInt(now().Unix(), 10), true
	case "$isotimestamp", "$timestampiso8601":
		return now().UTC().Format(time.RFC3339), true
	case "$randomint":
		n, err := rand.Int(rand.Reader, big.NewInt(1000))
		if err != nil {
			return "", false
		}
		return n.String(), true
	case "$uuid", "$guid":
		return uuid.NewString(), true
	default:
		return "", false
	}
}

func (DynamicProvider) Label() string {
	return "dynamic"
}
