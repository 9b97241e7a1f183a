package curl

import (
	"fmt"
	"net/url"
	"strings"
)

// segState accumulates one request while its arguments are applied.
type segState struct {
	cmd      Command
	explicit bool // method was set by a flag
	body     *bodyBuilder
	get      bool
	warn     warnings
}

func buildCommands(invs []invocation) ([]Command, error) {
	out := make([]Command, 0, len(invs))
	for _, inv := range invs {
		c, err := buildCommand(inv)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func buildCommand(inv invocation) (Command, error) {
	st := &segState{
		cmd:  Command{Method: "GET"},
		body: newBodyBuilder(),
		warn: make(warnings),
	}
	for _, flag := range inv.unknown {
		st.warn.flag(flag)
	}
	for _, a := range inv.args {
		if err := st.apply(a); err != nil {
			return Command{}, err
		}
	}

	raw := sanitizeURL(st.cmd.URL)
	if raw == "" {
		return Command{}, fmt.Errorf("curl command missing URL")
	}

	if st.get {
		q, err := st.body.query()
		if err != nil {
			return Command{}, err
		}
		raw = addQuery(raw, q)
		st.body = newBodyBuilder()
	}

	if st.body.hasContent() && !st.explicit && strings.EqualFold(st.cmd.Method, "GET") {
		st.cmd.Method = "POST"
	}

	body, err := st.body.finish(&st.cmd.Headers)
	if err != nil {
		return Command{}, err
	}
	st.cmd.Body = body
	st.cmd.URL, st.cmd.Queries = splitQuery(raw)

	if st.cmd.Compressed && !st.cmd.Headers.Has(headerAcceptEncoding) {
		st.cmd.Headers.Set(headerAcceptEncoding, acceptEncodingDefault)
	}
	st.cmd.Warnings = st.warn.list()
	return st.cmd, nil
}

// apply runs one argument against the state. The first positional word
// is the URL; later ones are kept as raw data.
func (st *segState) apply(a arg) error {
	switch {
	case a.opt == nil:
		if st.cmd.URL == "" {
			st.cmd.URL = a.value
			return nil
		}
		return st.body.addRaw(a.value)
	case a.opt.ignored:
		if a.opt.check != nil {
			if err := a.opt.check(a.opt.long, a.value); err != nil {
				return err
			}
		}
		st.warn.flag(a.flag)
		return nil
	case a.opt.apply != nil:
		return a.opt.apply(st, a.value)
	}
	return nil
}

func addQuery(raw, q string) string {
	if q == "" {
		return raw
	}
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + q
}

// splitQuery separates the query string from raw without parsing the rest,
// so template placeholders in the host or path survive untouched.
func splitQuery(raw string) (string, []Field) {
	base, query, ok := strings.Cut(raw, "?")
	if !ok {
		return raw, nil
	}
	query, _, _ = strings.Cut(query, "#")
	var fields []Field
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		fields = append(fields, Field{Name: unescape(name), Value: unescape(value)})
	}
	return base, fields
}

func unescape(v string) string {
	if out, err := url.QueryUnescape(v); err == nil {
		return out
	}
	return v
}
