package curl

import (
	"fmt"
	"strings"
)

// ParseCommand returns the first request of command.
func ParseCommand(command string) (Command, error) {
	cmds, err := ParseCommands(command)
	if err != nil {
		return Command{}, err
	}
	if len(cmds) == 0 {
		return Command{}, fmt.Errorf("curl command missing URL")
	}
	return cmds[0], nil
}

// ParseCommands tokenizes one shell command line (continuations allowed)
// and returns one Command per --next segment.
func ParseCommands(command string) ([]Command, error) {
	words, err := splitTokens(command)
	if err != nil {
		return nil, err
	}
	invs, err := parseArgs(words)
	if err != nil {
		return nil, err
	}
	return buildCommands(invs)
}

// ParseScript parses every curl command found in src, separated by blank
// lines or new curl lines. Commands that fail to parse are reported in
// errs and skipped.
func ParseScript(src string) (cmds []Command, errs []error) {
	for _, raw := range SplitCommands(src) {
		parsed, err := ParseCommands(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", summarize(raw), err))
			continue
		}
		cmds = append(cmds, parsed...)
	}
	return cmds, errs
}

func summarize(cmd string) string {
	const limit = 60
	cmd = strings.Join(strings.Fields(cmd), " ")
	if len(cmd) <= limit {
		return cmd
	}
	return cmd[:limit] + "..."
}

func splitHeader(header string) (string, string) {
	name, value, _ := strings.Cut(header, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	return name, strings.TrimSpace(value)
}

func sanitizeURL(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), `"'`)
}
