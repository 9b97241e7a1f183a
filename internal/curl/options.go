package curl

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// option is a curl flag the importer understands. Options marked ignored
// are accepted and reported as warnings after check validates the value.
type option struct {
	long       string
	aliases    []string
	short      byte
	takesValue bool
	apply      func(*segState, string) error
	ignored    bool
	check      func(name, value string) error
}

var options = []*option{
	{long: "request", short: 'X', takesValue: true, apply: setMethod},
	{long: "head", short: 'I', apply: func(st *segState, _ string) error { return setMethod(st, "HEAD") }},
	{long: "get", short: 'G', apply: useQuery},
	{long: "url", takesValue: true, apply: func(st *segState, v string) error { st.cmd.URL = v; return nil }},
	{long: "header", short: 'H', takesValue: true, apply: addHeader},
	{long: "user-agent", short: 'A', takesValue: true, apply: headerValue(headerUserAgent)},
	{long: "referer", short: 'e', takesValue: true, apply: headerValue(headerReferer)},
	{long: "cookie", short: 'b', takesValue: true, apply: headerValue(headerCookie)},
	{long: "oauth2-bearer", takesValue: true, apply: bearer},
	{long: "user", short: 'u', takesValue: true, apply: func(st *segState, v string) error { st.cmd.User = v; return nil }},
	{long: "compressed", apply: func(st *segState, _ string) error { st.cmd.Compressed = true; return nil }},

	{long: "data", aliases: []string{"data-ascii"}, short: 'd', takesValue: true, apply: bodyFn((*bodyBuilder).addData)},
	{long: "data-raw", takesValue: true, apply: bodyFn((*bodyBuilder).addRaw)},
	{long: "data-binary", takesValue: true, apply: bodyFn((*bodyBuilder).addBinary)},
	{long: "data-urlencode", takesValue: true, apply: bodyFn((*bodyBuilder).addURLEncoded)},
	{long: "json", aliases: []string{"data-json"}, takesValue: true, apply: jsonBody},
	{long: "form", short: 'F', takesValue: true, apply: formPart(false)},
	{long: "form-string", takesValue: true, apply: formPart(true)},
	{long: "upload-file", short: 'T', takesValue: true, apply: uploadFile},

	{long: "insecure", short: 'k', apply: func(st *segState, _ string) error { st.cmd.Insecure = true; return nil }},
	{long: "location", short: 'L', apply: func(st *segState, _ string) error { st.cmd.FollowRedirects = true; return nil }},
	{long: "proxy", short: 'x', takesValue: true, apply: trimmed(func(c *Command) *string { return &c.Proxy })},
	{long: "cacert", takesValue: true, apply: trimmed(func(c *Command) *string { return &c.CACert })},
	{long: "cert", short: 'E', takesValue: true, apply: trimmed(func(c *Command) *string { return &c.Cert })},
	{long: "key", takesValue: true, apply: trimmed(func(c *Command) *string { return &c.Key })},
	{long: "max-time", short: 'm', takesValue: true, apply: maxTime},

	// output and diagnostics only matter to the curl process itself
	{long: "silent", short: 's'},
	{long: "show-error", short: 'S', ignored: true},
	{long: "verbose", short: 'v', ignored: true},
	{long: "include", short: 'i', ignored: true},
	{long: "remote-name", short: 'O', ignored: true},
	{long: "output", short: 'o', takesValue: true, ignored: true, check: notEmpty},
	{long: "dump-header", short: 'D', takesValue: true, ignored: true, check: notEmpty},
	{long: "stderr", takesValue: true, ignored: true, check: notEmpty},
	{long: "trace", takesValue: true, ignored: true, check: notEmpty},
	{long: "trace-ascii", takesValue: true, ignored: true, check: notEmpty},

	{long: "connect-timeout", takesValue: true, ignored: true, check: isSeconds},
	{long: "max-redirs", takesValue: true, ignored: true, check: isInt},
	{long: "retry", takesValue: true, ignored: true, check: isInt},
	{long: "retry-delay", takesValue: true, ignored: true, check: isSeconds},
	{long: "retry-max-time", takesValue: true, ignored: true, check: isSeconds},
	{long: "retry-connrefused", ignored: true},
	{long: "http1.1", ignored: true},
	{long: "http2", ignored: true},
	{long: "http2-prior-knowledge", ignored: true},
	{long: "http3", ignored: true},
	{long: "resolve", takesValue: true, ignored: true, check: notEmpty},
	{long: "connect-to", takesValue: true, ignored: true, check: notEmpty},
	{long: "interface", takesValue: true, ignored: true, check: notEmpty},
	{long: "dns-servers", takesValue: true, ignored: true, check: notEmpty},
}

var (
	longOptions  = make(map[string]*option)
	shortOptions = make(map[byte]*option)
)

func init() {
	for _, o := range options {
		longOptions[o.long] = o
		for _, alias := range o.aliases {
			longOptions[alias] = o
		}
		if o.short != 0 {
			shortOptions[o.short] = o
		}
	}
}

func setMethod(st *segState, v string) error {
	st.cmd.Method = strings.ToUpper(strings.TrimSpace(v))
	st.explicit = true
	return nil
}

func useQuery(st *segState, _ string) error {
	st.get = true
	return setMethod(st, "GET")
}

func addHeader(st *segState, v string) error {
	if name, value := splitHeader(v); name != "" {
		st.cmd.Headers.Add(name, value)
	}
	return nil
}

func headerValue(name string) func(*segState, string) error {
	return func(st *segState, v string) error {
		if strings.TrimSpace(v) != "" {
			st.cmd.Headers.Set(name, v)
		}
		return nil
	}
}

func bearer(st *segState, v string) error {
	if token := strings.TrimSpace(v); token != "" {
		st.cmd.Headers.Set("Authorization", "Bearer "+token)
	}
	return nil
}

func trimmed(field func(*Command) *string) func(*segState, string) error {
	return func(st *segState, v string) error {
		*field(&st.cmd) = strings.TrimSpace(v)
		return nil
	}
}

func bodyFn(add func(*bodyBuilder, string) error) func(*segState, string) error {
	return func(st *segState, v string) error {
		return add(st.body, v)
	}
}

func formPart(literal bool) func(*segState, string) error {
	return func(st *segState, v string) error {
		return st.body.addFormPart(v, literal)
	}
}

// jsonBody mirrors curl's --json, which also asks for JSON back.
func jsonBody(st *segState, v string) error {
	if err := st.body.addRaw(v); err != nil {
		return err
	}
	for _, name := range []string{headerContentType, "Accept"} {
		if !st.cmd.Headers.Has(name) {
			st.cmd.Headers.Set(name, mimeJSON)
		}
	}
	return nil
}

func uploadFile(st *segState, v string) error {
	if !st.explicit {
		st.cmd.Method = "PUT"
		st.explicit = true
	}
	return st.body.addFile(v)
}

func maxTime(st *segState, v string) error {
	d, err := seconds(v)
	if err != nil {
		return err
	}
	st.cmd.Timeout = d
	return nil
}

func notEmpty(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("empty %s", name)
	}
	return nil
}

func isSeconds(_, v string) error {
	_, err := seconds(v)
	return err
}

func isInt(name, v string) error {
	raw := strings.TrimSpace(v)
	if raw == "" {
		return fmt.Errorf("empty %s", name)
	}
	if _, err := strconv.Atoi(raw); err != nil {
		return fmt.Errorf("invalid %s %q", name, raw)
	}
	return nil
}

// seconds accepts curl's fractional seconds as well as Go durations.
func seconds(v string) (time.Duration, error) {
	raw := strings.TrimSpace(v)
	if raw == "" {
		return 0, fmt.Errorf("empty timeout")
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		if f < 0 {
			return 0, fmt.Errorf("negative timeout %q", raw)
		}
		return time.Duration(f * float64(time.Second)), nil
	}
	return time.ParseDuration(raw)
}
