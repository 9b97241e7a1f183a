package config

import (
	"strings"

	"github.com/unkn0wn-root/restbench/internal/collection"
)

const (
	CurrentVersion = 1

	DefaultTimeoutMS        = 30000
	DefaultMaxResponseSize  = 50 << 20
	DefaultLineContinuation = `\`
)

type QuoteType string

const (
	QuoteSingle QuoteType = "single"
	QuoteDouble QuoteType = "double"
)

// Settings is the resolved configuration: every field holds a usable value.
// Build it with WithDefaults rather than by hand.
type Settings struct {
	Version      int
	General      General
	Proxy        Proxy
	Certificates Certificates
	Curl         CurlOptions
}

type General struct {
	// TimeoutMS is a hard per-request deadline; 0 disables it.
	TimeoutMS int64
	// MaxResponseSize caps the decoded body in bytes; 0 disables it.
	MaxResponseSize int64
	SSLVerification bool
	AutoSave        bool
	DefaultHeaders  []collection.KeyValue
}

type Proxy struct {
	Enabled  bool
	URL      string
	NoProxy  []string
	Username string
	Password string
}

type Certificates struct {
	CA     []string
	Client []ClientCertificate
}

// ClientCertificate is selected for a request when Host equals the request
// hostname, or failing that, when Host compiles as a regular expression that
// matches it.
type ClientCertificate struct {
	Host       string `json:"host"                 toml:"host"`
	CRT        string `json:"crt,omitempty"        toml:"crt,omitempty"`
	Key        string `json:"key,omitempty"        toml:"key,omitempty"`
	PFX        string `json:"pfx,omitempty"        toml:"pfx,omitempty"`
	Passphrase string `json:"passphrase,omitempty" toml:"passphrase,omitempty"`
}

type CurlOptions struct {
	Multiline        bool
	LongForm         bool
	LineContinuation string
	QuoteType        QuoteType
	// TimeoutSeconds renders --max-time when positive.
	TimeoutSeconds  int
	FollowRedirects bool
	Silent          bool
}

// DefaultCurlOptions is the style used when the caller passes none; it is also
// the canonical form fed to the language converters.
func DefaultCurlOptions() CurlOptions {
	return CurlOptions{
		LineContinuation: DefaultLineContinuation,
		QuoteType:        QuoteSingle,
	}
}

// Partial mirrors Settings with optional fields, as decoded from a file or
// store document.
type Partial struct {
	Version      *int                 `json:"version,omitempty"      toml:"version,omitempty"`
	General      *PartialGeneral      `json:"general,omitempty"      toml:"general,omitempty"`
	Proxy        *PartialProxy        `json:"proxy,omitempty"        toml:"proxy,omitempty"`
	Certificates *PartialCertificates `json:"certificates,omitempty" toml:"certificates,omitempty"`
	Curl         *PartialCurl         `json:"curl,omitempty"         toml:"curl,omitempty"`
}

type PartialGeneral struct {
	Timeout         *int64          `json:"timeout,omitempty"         toml:"timeout,omitempty"`
	MaxResponseSize *int64          `json:"maxResponseSize,omitempty" toml:"max_response_size,omitempty"`
	SSLVerification *bool           `json:"sslVerification,omitempty" toml:"ssl_verification,omitempty"`
	AutoSave        *bool           `json:"autoSave,omitempty"        toml:"auto_save,omitempty"`
	DefaultHeaders  []DefaultHeader `json:"defaultHeaders,omitempty"  toml:"default_headers,omitempty"`
}

type DefaultHeader struct {
	ID      string `json:"id,omitempty"        toml:"id,omitempty"`
	Key     string `json:"key"                 toml:"key"`
	Value   string `json:"value"               toml:"value"`
	Enabled *bool  `json:"isEnabled,omitempty" toml:"enabled,omitempty"`
}

type PartialProxy struct {
	Enabled  *bool    `json:"enabled,omitempty"  toml:"enabled,omitempty"`
	URL      string   `json:"url,omitempty"      toml:"url,omitempty"`
	NoProxy  []string `json:"noProxy,omitempty"  toml:"no_proxy,omitempty"`
	Username string   `json:"username,omitempty" toml:"username,omitempty"`
	Password string   `json:"password,omitempty" toml:"password,omitempty"`
}

type PartialCertificates struct {
	CA     []string            `json:"ca,omitempty"     toml:"ca,omitempty"`
	Client []ClientCertificate `json:"client,omitempty" toml:"client,omitempty"`
}

type PartialCurl struct {
	Multiline        *bool   `json:"multiline,omitempty"        toml:"multiline,omitempty"`
	LongForm         *bool   `json:"longForm,omitempty"         toml:"long_form,omitempty"`
	LineContinuation *string `json:"lineContinuation,omitempty" toml:"line_continuation,omitempty"`
	QuoteType        *string `json:"quoteType,omitempty"        toml:"quote_type,omitempty"`
	Timeout          *int    `json:"timeout,omitempty"          toml:"timeout,omitempty"`
	FollowRedirects  *bool   `json:"followRedirects,omitempty"  toml:"follow_redirects,omitempty"`
	Silent           *bool   `json:"silent,omitempty"           toml:"silent,omitempty"`
}

// WithDefaults resolves p into a complete Settings. It does not modify p.
func WithDefaults(p Partial) Settings {
	s := Settings{
		Version: CurrentVersion,
		General: General{
			TimeoutMS:       DefaultTimeoutMS,
			MaxResponseSize: DefaultMaxResponseSize,
			SSLVerification: true,
			AutoSave:        true,
		},
		Curl: DefaultCurlOptions(),
	}
	if p.Version != nil && *p.Version > 0 {
		s.Version = *p.Version
	}

	if g := p.General; g != nil {
		if g.Timeout != nil && *g.Timeout >= 0 {
			s.General.TimeoutMS = *g.Timeout
		}
		if g.MaxResponseSize != nil && *g.MaxResponseSize >= 0 {
			s.General.MaxResponseSize = *g.MaxResponseSize
		}
		s.General.SSLVerification = boolOr(g.SSLVerification, true)
		s.General.AutoSave = boolOr(g.AutoSave, true)
		for _, h := range g.DefaultHeaders {
			kv := collection.KeyValue{
				ID:      h.ID,
				Key:     strings.TrimSpace(h.Key),
				Value:   h.Value,
				Enabled: boolOr(h.Enabled, true),
			}
			if kv.ID == "" {
				kv.ID = collection.NewID()
			}
			s.General.DefaultHeaders = append(s.General.DefaultHeaders, kv)
		}
	}

	if px := p.Proxy; px != nil {
		s.Proxy = Proxy{
			Enabled:  boolOr(px.Enabled, strings.TrimSpace(px.URL) != ""),
			URL:      strings.TrimSpace(px.URL),
			NoProxy:  append([]string(nil), px.NoProxy...),
			Username: px.Username,
			Password: px.Password,
		}
	}

	if c := p.Certificates; c != nil {
		s.Certificates.CA = append([]string(nil), c.CA...)
		s.Certificates.Client = append([]ClientCertificate(nil), c.Client...)
	}

	if c := p.Curl; c != nil {
		s.Curl.Multiline = boolOr(c.Multiline, false)
		s.Curl.LongForm = boolOr(c.LongForm, false)
		s.Curl.FollowRedirects = boolOr(c.FollowRedirects, false)
		s.Curl.Silent = boolOr(c.Silent, false)
		if c.LineContinuation != nil && *c.LineContinuation != "" {
			s.Curl.LineContinuation = *c.LineContinuation
		}
		if c.QuoteType != nil && QuoteType(strings.ToLower(*c.QuoteType)) == QuoteDouble {
			s.Curl.QuoteType = QuoteDouble
		}
		if c.Timeout != nil && *c.Timeout > 0 {
			s.Curl.TimeoutSeconds = *c.Timeout
		}
	}
	return s
}

// ToPartial is the inverse of WithDefaults, used when persisting.
func (s Settings) ToPartial() Partial {
	version := s.Version
	timeout := s.General.TimeoutMS
	maxSize := s.General.MaxResponseSize
	ssl := s.General.SSLVerification
	autoSave := s.General.AutoSave
	headers := make([]DefaultHeader, 0, len(s.General.DefaultHeaders))
	for _, kv := range s.General.DefaultHeaders {
		enabled := kv.Enabled
		headers = append(headers, DefaultHeader{ID: kv.ID, Key: kv.Key, Value: kv.Value, Enabled: &enabled})
	}
	proxyEnabled := s.Proxy.Enabled
	multiline := s.Curl.Multiline
	longForm := s.Curl.LongForm
	cont := s.Curl.LineContinuation
	quote := string(s.Curl.QuoteType)
	curlTimeout := s.Curl.TimeoutSeconds
	follow := s.Curl.FollowRedirects
	silent := s.Curl.Silent

	return Partial{
		Version: &version,
		General: &PartialGeneral{
			Timeout:         &timeout,
			MaxResponseSize: &maxSize,
			SSLVerification: &ssl,
			AutoSave:        &autoSave,
			DefaultHeaders:  headers,
		},
		Proxy: &PartialProxy{
			Enabled:  &proxyEnabled,
			URL:      s.Proxy.URL,
			NoProxy:  s.Proxy.NoProxy,
			Username: s.Proxy.Username,
			Password: s.Proxy.Password,
		},
		Certificates: &PartialCertificates{
			CA:     s.Certificates.CA,
			Client: s.Certificates.Client,
		},
		Curl: &PartialCurl{
			Multiline:        &multiline,
			LongForm:         &longForm,
			LineContinuation: &cont,
			QuoteType:        &quote,
			Timeout:          &curlTimeout,
			FollowRedirects:  &follow,
			Silent:           &silent,
		},
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
