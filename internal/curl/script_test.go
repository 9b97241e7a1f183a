package curl

import (
	"slices"
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc"
)

func TestSplitCommands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "blank line separated",
			src:  "curl https://a.test\n\ncurl https://b.test",
			want: []string{"curl https://a.test", "curl https://b.test"},
		},
		{
			name: "adjacent commands",
			src:  "curl https://a.test\ncurl https://b.test",
			want: []string{"curl https://a.test", "curl https://b.test"},
		},
		{
			name: "wrappers",
			src: heredoc.Doc(`
				sudo -u root curl https://a.test
				env -u FOO TOKEN=x curl https://b.test
				time -p curl https://c.test
				command -p curl https://d.test
			`),
			want: []string{
				"sudo -u root curl https://a.test",
				"env -u FOO TOKEN=x curl https://b.test",
				"time -p curl https://c.test",
				"command -p curl https://d.test",
			},
		},
		{
			name: "continuation lines",
			src:  "$ curl https://a.test \\\n  -H 'A: 1' \\\n  -d x=1\necho done",
			want: []string{"$ curl https://a.test  -H 'A: 1'  -d x=1"},
		},
		{
			name: "quoted body keeps blank lines",
			src:  "curl https://a.test -d '{\n\n}'\n\ncurl https://b.test",
			want: []string{"curl https://a.test -d '{\n\n}'", "curl https://b.test"},
		},
		{
			name: "ansi quote with escaped quote",
			src:  "curl https://a.test -d $'one\\n\\'two\\n'\n\ncurl https://b.test",
			want: []string{"curl https://a.test -d $'one\\n\\'two\\n'", "curl https://b.test"},
		},
		{
			name: "other commands skipped",
			src:  "echo curl\nwget https://a.test\n/usr/bin/curl https://b.test",
			want: []string{"/usr/bin/curl https://b.test"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SplitCommands(tt.src)
			if !slices.Equal(got, tt.want) {
				t.Fatalf("SplitCommands() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsStartLine(t *testing.T) {
	t.Parallel()

	for line, want := range map[string]bool{
		"curl":                        true,
		"  curl -sS https://a.test":   true,
		"% curl https://a.test":       true,
		"sudo --user=root curl x":     true,
		"sudo -u root -- curl x":      true,
		"env -C /tmp A=1 B=2 curl x":  true,
		"noglob curl 'x?a=[1]'":       true,
		"curlie https://a.test":       false,
		"echo curl":                   false,
		"sudo -u curl wget https://x": false,
		"":                            false,
	} {
		if got := IsStartLine(line); got != want {
			t.Errorf("IsStartLine(%q) = %v, want %v", line, got, want)
		}
	}
}

func TestSplitTokensQuoting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{`curl 'a b' "c d"`, []string{"curl", "a b", "c d"}},
		{`curl '' x`, []string{"curl", "", "x"}},
		{`curl 'it'\''s'`, []string{"curl", "it's"}},
		{`curl "say \"hi\" \n"`, []string{"curl", `say "hi" \n`}},
		{`curl a\ b`, []string{"curl", "a b"}},
		{`curl $'tab\there'`, []string{"curl", "tab\there"}},
		{`curl $'é\e'`, []string{"curl", "é\x1b"}},
		{`curl $'\q'`, []string{"curl", `\q`}},
		{"curl a\\\r\nb", []string{"curl", "ab"}},
		{`curl price$5`, []string{"curl", "price$5"}},
	}
	for _, tt := range tests {
		got, err := splitTokens(tt.in)
		if err != nil {
			t.Fatalf("splitTokens(%q) error = %v", tt.in, err)
		}
		if !slices.Equal(got, tt.want) {
			t.Fatalf("splitTokens(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitTokensDanglingEscape(t *testing.T) {
	t.Parallel()

	_, err := splitTokens(`curl https://a.test \`)
	if err == nil || !strings.Contains(err.Error(), "escape") {
		t.Fatalf("expected escape error, got %v", err)
	}
}

func TestParseArgsShortClusters(t *testing.T) {
	t.Parallel()

	invs, err := parseArgs([]string{"curl", "-sSLXPOST", "-Z", "--frobnicate=1", "https://a.test"})
	if err != nil {
		t.Fatalf("parseArgs() error = %v", err)
	}
	if len(invs) != 1 {
		t.Fatalf("expected 1 invocation, got %d", len(invs))
	}
	inv := invs[0]
	var flags []string
	for _, a := range inv.args {
		if a.opt != nil {
			flags = append(flags, a.flag+"="+a.value)
		}
	}
	if want := []string{"-s=", "-S=", "-L=", "-X=POST"}; !slices.Equal(flags, want) {
		t.Fatalf("flags = %q, want %q", flags, want)
	}
	if want := []string{"-Z", "--frobnicate"}; !slices.Equal(inv.unknown, want) {
		t.Fatalf("unknown = %q, want %q", inv.unknown, want)
	}
}

func TestParseArgsMissingValue(t *testing.T) {
	t.Parallel()

	if _, err := parseArgs([]string{"curl", "https://a.test", "-H"}); err == nil {
		t.Fatal("expected missing argument error")
	}
}

func TestParseArgsDoubleDash(t *testing.T) {
	t.Parallel()

	cmds, err := ParseCommands("curl -X PUT -- -weird-host.test")
	if err != nil {
		t.Fatalf("ParseCommands() error = %v", err)
	}
	if cmds[0].URL != "-weird-host.test" || cmds[0].Method != "PUT" {
		t.Fatalf("unexpected command %+v", cmds[0])
	}
}

func TestParseCommandBearerAndIgnoredFlags(t *testing.T) {
	t.Parallel()

	cmd := mustParse(t, "curl -v --oauth2-bearer abc -o out.json https://a.test")
	if got := cmd.Headers.Get("Authorization"); got != "Bearer abc" {
		t.Fatalf("Authorization = %q", got)
	}
	want := []string{"unsupported flag -o (ignored)", "unsupported flag -v (ignored)"}
	if !slices.Equal(cmd.Warnings, want) {
		t.Fatalf("warnings = %q, want %q", cmd.Warnings, want)
	}
	if _, err := ParseCommand("curl https://a.test --output ''"); err == nil {
		t.Fatal("expected error for empty output value")
	}
}
