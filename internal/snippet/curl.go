package snippet

import (
	"bytes"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/unkn0wn-root/restbench/internal/collection"
	"github.com/unkn0wn-root/restbench/internal/config"
)

type curlStyle struct {
	multiline bool
	long      bool
	cont      string
	double    bool
	timeout   int
	follow    bool
	silent    bool
	// canonical output is re-parsed, so it avoids flags whose values curl
	// would reinterpret.
	canonical bool
}

func newCurlStyle(o config.CurlOptions) curlStyle {
	cont := o.LineContinuation
	if cont == "" {
		cont = config.DefaultLineContinuation
	}
	return curlStyle{
		multiline: o.Multiline,
		long:      o.LongForm,
		cont:      cont,
		double:    o.QuoteType == config.QuoteDouble,
		timeout:   o.TimeoutSeconds,
		follow:    o.FollowRedirects,
		silent:    o.Silent,
	}
}

func canonicalStyle() curlStyle {
	s := newCurlStyle(config.DefaultCurlOptions())
	s.canonical = true
	return s
}

func (s curlStyle) flag(short, long string) string {
	if s.long {
		return long
	}
	return short
}

func (s curlStyle) quote(v string) string {
	if s.double {
		r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "`", "\\`")
		return `"` + r.Replace(v) + `"`
	}
	return `'` + strings.ReplaceAll(v, `'`, `'\''`) + `'`
}

func (s curlStyle) arg(short, long, value string) string {
	return s.flag(short, long) + " " + s.quote(value)
}

func renderCurl(req *collection.Request, s curlStyle) string {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = "GET"
	}
	head := []string{"curl", s.flag("-X", "--request") + " " + method, s.quote(requestURL(req))}

	var args []string
	hasAuthHeader := false
	hasContentType := false
	for _, h := range req.Headers {
		if !h.Active() {
			continue
		}
		hasAuthHeader = hasAuthHeader || strings.EqualFold(h.Key, "Authorization")
		hasContentType = hasContentType || strings.EqualFold(h.Key, "Content-Type")
		args = append(args, s.arg("-H", "--header", h.Key+": "+h.Value))
	}
	args = append(args, authArgs(req.Auth, s, hasAuthHeader)...)
	args = append(args, bodyArgs(req.Body, s, hasContentType)...)

	if s.timeout > 0 {
		args = append(args, s.flag("-m", "--max-time")+" "+strconv.Itoa(s.timeout))
	}
	if s.follow {
		args = append(args, s.flag("-L", "--location"))
	}
	if s.silent {
		args = append(args, s.flag("-s", "--silent"))
	}

	out := strings.Join(head, " ")
	sep := " "
	if s.multiline {
		sep = " " + s.cont + "\n  "
	}
	for _, a := range args {
		out += sep + a
	}
	return out
}

func requestURL(req *collection.Request) string {
	var pairs []string
	for _, q := range req.QueryParams {
		if !q.Active() {
			continue
		}
		pairs = append(pairs, queryEscape(q.Key)+"="+queryEscape(q.Value))
	}
	if a := req.Auth; a != nil && a.Type == collection.AuthAPIKey && strings.EqualFold(a.Params["placement"], "query") && a.Params["name"] != "" {
		pairs = append(pairs, queryEscape(a.Params["name"])+"="+queryEscape(a.Params["value"]))
	}
	if len(pairs) == 0 {
		return req.URL
	}
	sep := "?"
	if strings.Contains(req.URL, "?") {
		sep = "&"
	}
	return req.URL + sep + strings.Join(pairs, "&")
}

var bracePreserver = strings.NewReplacer("%7B", "{", "%7D", "}")

// queryEscape leaves {{placeholders}} readable.
func queryEscape(v string) string {
	return bracePreserver.Replace(url.QueryEscape(v))
}

func authArgs(a *collection.Auth, s curlStyle, hasAuthHeader bool) []string {
	if a == nil {
		return nil
	}
	switch a.Type {
	case collection.AuthBasic:
		return []string{s.arg("-u", "--user", a.Params["username"]+":"+a.Params["password"])}
	case collection.AuthBearer:
		if hasAuthHeader {
			return nil
		}
		return []string{s.arg("-H", "--header", "Authorization: Bearer "+a.Params["token"])}
	case collection.AuthAPIKey:
		if a.Params["name"] == "" || strings.EqualFold(a.Params["placement"], "query") {
			return nil
		}
		return []string{s.arg("-H", "--header", a.Params["name"]+": "+a.Params["value"])}
	}
	return nil
}

func bodyArgs(b collection.Body, s curlStyle, hasContentType bool) []string {
	data := func(v string) string {
		if s.canonical {
			return "--data-raw " + s.quote(v)
		}
		return s.arg("-d", "--data", v)
	}

	var args []string
	switch b.Kind() {
	case collection.BodyRaw:
		if b.Raw == "" {
			return nil
		}
		if b.RawType == collection.RawJSON && !hasContentType {
			args = append(args, s.arg("-H", "--header", "Content-Type: application/json"))
		}
		args = append(args, data(b.Raw))
	case collection.BodyURLEncoded:
		for _, f := range b.URLEncoded {
			if f.Active() {
				args = append(args, "--data-urlencode "+s.quote(f.Key+"="+f.Value))
			}
		}
	case collection.BodyFormData:
		for _, f := range b.FormData {
			if !f.Active() {
				continue
			}
			switch {
			case f.IsFile():
				args = append(args, s.arg("-F", "--form", f.Key+"=@"+f.Value))
			case s.canonical:
				args = append(args, "--form-string "+s.quote(f.Key+"="+f.Value))
			default:
				args = append(args, s.arg("-F", "--form", f.Key+"="+f.Value))
			}
		}
	case collection.BodyGraphQL:
		if b.GraphQL == nil {
			return nil
		}
		payload, err := graphQLPayload(b.GraphQL)
		if err != nil {
			return nil
		}
		if !hasContentType {
			args = append(args, s.arg("-H", "--header", "Content-Type: application/json"))
		}
		args = append(args, data(payload))
	case collection.BodyBinary:
		if b.Binary != "" {
			args = append(args, "--data-binary "+s.quote("@"+b.Binary))
		}
	}
	return args
}

// graphQLPayload drops variables that are not valid JSON rather than
// failing the whole snippet.
func graphQLPayload(g *collection.GraphQL) (string, error) {
	payload := struct {
		Query     string          `json:"query"`
		Variables json.RawMessage `json:"variables,omitempty"`
	}{Query: g.Query}
	if v := strings.TrimSpace(g.Variables); v != "" && json.Valid([]byte(v)) {
		var compact bytes.Buffer
		if err := json.Compact(&compact, []byte(v)); err == nil {
			payload.Variables = compact.Bytes()
		}
	}
	out, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
