package vars

import (
	"strings"
	"testing"
	"time"

	"github.com/MakeNowJust/heredoc"
)

func TestSubstitute(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"base":  "https://api.example.com",
		"token": "abc123",
		"empty": "",
	}
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "no placeholders", "no placeholders"},
		{"single", "{{base}}/users", "https://api.example.com/users"},
		{"trimmed name", "Bearer {{ token }}", "Bearer abc123"},
		{"repeated", "{{token}}-{{token}}", "abc123-abc123"},
		{"missing kept", "{{missing}}", "{{missing}}"},
		{"empty value", "x{{empty}}y", "xy"},
		{"unbalanced open", "{{base", "{{base"},
		{"unbalanced close", "base}}", "base}}"},
		{"brace run", "{{{base}}}", "{{{base}}}"},
		{"empty name", "{{ }}", "{{ }}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Substitute(tc.in, env); got != tc.want {
				t.Fatalf("Substitute(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSubstituteMissingWithEmptyEnv(t *testing.T) {
	t.Parallel()

	if got := Substitute("{{missing}}", map[string]string{}); got != "{{missing}}" {
		t.Fatalf("expected placeholder preserved, got %q", got)
	}
}

func TestSubstituteIdempotent(t *testing.T) {
	t.Parallel()

	env := map[string]string{"a": "1", "b": "two"}
	inputs := []string{
		"{{a}}{{b}}{{c}}",
		"{{ a }} and {{missing}}",
		"{{a",
		"}}{{b}}{{",
	}
	for _, in := range inputs {
		once := Substitute(in, env)
		twice := Substitute(once, env)
		if once != twice {
			t.Fatalf("not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}

func TestNames(t *testing.T) {
	t.Parallel()

	got := Names("{{base}}/{{ id }}/{{base}}?q={{q}}")
	want := []string{"base", "id", "q"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Names = %v, want %v", got, want)
	}
}

func TestResolverExpand(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(
		NewMapProvider("env", map[string]string{"host": "localhost"}),
		DynamicProvider{Now: func() time.Time { return time.Unix(1700000000, 0) }},
	)
	out, missing := resolver.Expand("http://{{host}}/{{$timestamp}}/{{nope}}")
	if out != "http://localhost/1700000000/{{nope}}" {
		t.Fatalf("unexpected expansion %q", out)
	}
	if len(missing) != 1 || missing[0] != "nope" {
		t.Fatalf("unexpected missing %v", missing)
	}
}

func TestResolverLabelPrefix(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(NewMapProvider("prod", map[string]string{"id": "123"}))
	value, ok := resolver.Resolve("prod.id")
	if !ok || value != "123" {
		t.Fatalf("expected namespaced lookup, got %q %v", value, ok)
	}
}

func TestDynamicUUID(t *testing.T) {
	t.Parallel()

	a, ok := DynamicProvider{}.Resolve("$uuid")
	b, _ := DynamicProvider{}.Resolve("$guid")
	if !ok || len(a) != 36 || a == b {
		t.Fatalf("unexpected uuid values %q %q", a, b)
	}
}

func TestParseDotEnv(t *testing.T) {
	t.Parallel()

	src := heredoc.Doc(`
		# local overrides
		workspace=staging
		BASE_URL=https://staging.example.com
		export TOKEN="abc 123"
		GREETING='hello # not a comment'
	`)
	env, err := ParseDotEnv(strings.NewReader(src), "/tmp/.env")
	if err != nil {
		t.Fatalf("ParseDotEnv: %v", err)
	}
	if env.Name != "staging" {
		t.Fatalf("expected workspace name, got %q", env.Name)
	}
	if env.Values["BASE_URL"] != "https://staging.example.com" ||
		env.Values["TOKEN"] != "abc 123" ||
		env.Values["GREETING"] != "hello # not a comment" {
		t.Fatalf("unexpected values %#v", env.Values)
	}
	if _, ok := env.Values["workspace"]; ok {
		t.Fatalf("workspace key should not become a variable")
	}
}

func TestDotEnvNameFromPath(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"/x/.env":         "default",
		"/x/.env.prod":    "prod",
		"/x/local.env":    "local",
		"/x/settings.cfg": "settings",
	}
	for path, want := range cases {
		if got := deriveDotEnvName(nil, path); got != want {
			t.Fatalf("deriveDotEnvName(%q) = %q, want %q", path, got, want)
		}
	}
	if !IsDotEnvPath("/x/.env.prod") || IsDotEnvPath("/x/env.json") {
		t.Fatalf("unexpected IsDotEnvPath results")
	}
}
