package curl

import (
	"path"
	"slices"
	"strings"
)

// promptChars are shell prompt markers pasted along with a command.
const promptChars = "$%>!"

// wrapper describes a command that runs curl on the caller's behalf,
// e.g. "sudo -u root curl ...". Only options that take a separate
// argument need listing; everything else is skipped as a flag.
type wrapper struct {
	shortArgs string
	longArgs  []string
	assigns   bool // NAME=value words may precede the command
}

var wrappers = map[string]wrapper{
	"sudo": {
		shortArgs: "CDghpRrTtUu",
		longArgs: []string{
			"--chdir", "--chroot", "--close-from", "--command", "--group",
			"--host", "--login-class", "--prompt", "--role", "--type", "--user",
		},
	},
	"env": {
		shortArgs: "CSu",
		longArgs:  []string{"--chdir", "--split-string", "--unset"},
		assigns:   true,
	},
	"time": {
		shortArgs: "fo",
		longArgs:  []string{"--format", "--output"},
	},
	"command": {},
	"noglob":  {},
	"nohup":   {},
	"exec":    {},
}

// curlIndex returns the position of the curl word in words, looking past
// prompt markers and wrapper commands. It returns -1 when the command
// being run is not curl.
func curlIndex(words []string) int {
	for i := 0; i < len(words); i++ {
		w := strings.ToLower(strings.TrimLeft(words[i], promptChars))
		if w == "" {
			continue
		}
		if w == "curl" || path.Base(w) == "curl" {
			return i
		}
		wr, ok := wrappers[w]
		if !ok {
			return -1
		}
		i = wr.skip(words, i+1) - 1
	}
	return -1
}

// skip returns the index of the first word after the wrapper's options.
func (wr wrapper) skip(words []string, i int) int {
	for ; i < len(words); i++ {
		w := words[i]
		switch {
		case w == "--":
			return i + 1
		case strings.HasPrefix(w, "--"):
			if !strings.Contains(w, "=") && slices.Contains(wr.longArgs, w) {
				i++
			}
		case len(w) > 1 && w[0] == '-':
			if len(w) == 2 && strings.IndexByte(wr.shortArgs, w[1]) >= 0 {
				i++
			}
		case wr.assigns && isAssignment(w):
		default:
			return i
		}
	}
	return i
}

func isAssignment(w string) bool {
	name, _, ok := strings.Cut(w, "=")
	return ok && name != ""
}

// IsStartLine reports whether line begins a curl command.
func IsStartLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	return curlIndex(lex(line).words) >= 0
}

// SplitCommands extracts every curl command from a shell snippet. A
// command runs until its quotes balance and no line continuation is
// pending; blank lines outside quotes end it early.
func SplitCommands(src string) []string {
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	var out []string
	for i := 0; i < len(lines); i++ {
		if !IsStartLine(lines[i]) {
			continue
		}
		cmd, last := gather(lines, i)
		if cmd != "" {
			out = append(out, cmd)
		}
		i = last
	}
	return out
}

// gather joins the lines of the command starting at lines[start] and
// returns it with the index of its last line.
func gather(lines []string, start int) (string, int) {
	var b strings.Builder
	quoted := false
	for i := start; i < len(lines); i++ {
		line := lines[i]
		if !quoted {
			line = strings.TrimSpace(line)
			if line == "" && i > start {
				return strings.TrimSpace(b.String()), i - 1
			}
		}
		if b.Len() > 0 {
			if quoted {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(line)

		lx := lex(b.String())
		switch {
		case lx.quote != quoteNone:
			quoted = true
		case lx.dangling:
			text := strings.TrimSuffix(b.String(), `\`)
			b.Reset()
			b.WriteString(text)
			quoted = false
		default:
			return strings.TrimSpace(b.String()), i
		}
	}
	return strings.TrimSpace(b.String()), len(lines) - 1
}
