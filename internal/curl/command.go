package curl

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

var errNotCurlCommand = errors.New("not a curl command")

// Command is one request described by a curl invocation. A single command
// line can hold several when --next is used.
type Command struct {
	Method string
	// URL is the target without its query string; the query lives in Queries.
	URL     string
	Headers Headers
	Queries []Field
	Body    Body
	// User is the raw --user value ("name:password" or "name").
	User string

	Insecure        bool
	FollowRedirects bool
	Compressed      bool
	Timeout         time.Duration
	Proxy           string
	CACert          string
	Cert            string
	Key             string

	Warnings []string
}

// RawURL reassembles URL and Queries.
func (c Command) RawURL() string {
	if len(c.Queries) == 0 {
		return c.URL
	}
	pairs := make([]string, 0, len(c.Queries))
	for _, q := range c.Queries {
		pairs = append(pairs, q.encode())
	}
	return c.URL + "?" + strings.Join(pairs, "&")
}

// BasicAuth splits User into credentials. ok is false when no password
// separator is present.
func (c Command) BasicAuth() (user, pass string, ok bool) {
	if strings.TrimSpace(c.User) == "" {
		return "", "", false
	}
	return strings.Cut(c.User, ":")
}

type Field struct {
	Name  string
	Value string
}

func (f Field) encode() string {
	if f.Name == "" {
		return url.QueryEscape(f.Value)
	}
	return url.QueryEscape(f.Name) + "=" + url.QueryEscape(f.Value)
}

type Header struct {
	Name  string
	Value string
}

// Headers keeps the order headers were given in; lookups ignore case.
type Headers []Header

func (h Headers) Get(name string) string {
	for _, kv := range h {
		if strings.EqualFold(kv.Name, name) {
			return kv.Value
		}
	}
	return ""
}

func (h *Headers) Add(name, value string) {
	*h = append(*h, Header{Name: name, Value: value})
}

// Set replaces every header called name with a single value.
func (h *Headers) Set(name, value string) {
	out := (*h)[:0]
	replaced := false
	for _, kv := range *h {
		if !strings.EqualFold(kv.Name, name) {
			out = append(out, kv)
			continue
		}
		if !replaced {
			out = append(out, Header{Name: kv.Name, Value: value})
			replaced = true
		}
	}
	if !replaced {
		out = append(out, Header{Name: name, Value: value})
	}
	*h = out
}

func (h Headers) Has(name string) bool {
	for _, kv := range h {
		if strings.EqualFold(kv.Name, name) {
			return true
		}
	}
	return false
}

type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyRaw
	BodyForm
	BodyMultipart
	BodyFile
)

func (k BodyKind) String() string {
	switch k {
	case BodyNone:
		return "none"
	case BodyRaw:
		return "raw"
	case BodyForm:
		return "form"
	case BodyMultipart:
		return "multipart"
	case BodyFile:
		return "file"
	default:
		return "unknown"
	}
}

// Body holds whichever of the data flags was used. Form values are
// decoded; Raw is the data exactly as given.
type Body struct {
	Kind  BodyKind
	Raw   string
	Form  []Field
	Parts []Part
	File  string
}

type Part struct {
	Name        string
	Value       string
	File        string
	Filename    string
	ContentType string
}

func (p Part) IsFile() bool { return p.File != "" }
