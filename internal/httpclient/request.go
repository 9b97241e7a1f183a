package httpclient

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/unkn0wn-root/restbench/internal/collection"
	"github.com/unkn0wn-root/restbench/internal/config"
	"github.com/unkn0wn-root/restbench/internal/errdef"
	"github.com/unkn0wn-root/restbench/internal/vars"
)

// Assembler turns a stored request plus environment and settings into a
// Descriptor. It only reads files (bodies, CA and client certificates).
type Assembler struct {
	fs      FileSystem
	logger  *slog.Logger
	baseDir string
	now     func() time.Time
}

type AssemblerOption func(*Assembler)

func WithAssemblerFS(fs FileSystem) AssemblerOption {
	return func(a *Assembler) {
		if fs != nil {
			a.fs = fs
		}
	}
}

func WithAssemblerLogger(l *slog.Logger) AssemblerOption {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithBaseDir resolves relative file paths (bodies, certificates) against dir.
func WithBaseDir(dir string) AssemblerOption {
	return func(a *Assembler) { a.baseDir = dir }
}

func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{fs: OSFileSystem{}, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble never fails for missing files or bad host patterns; those are
// logged and skipped. It only errors on a nil request.
func (a *Assembler) Assemble(
	req *collection.Request,
	env []collection.KeyValue,
	settings *config.Settings,
) (*Descriptor, error) {
	if req == nil {
		return nil, errdef.New(errdef.CodeHTTP, "request is nil")
	}
	if settings == nil {
		s := config.WithDefaults(config.Partial{})
		settings = &s
	}

	envMap := collection.EnvMap(env)
	resolver := vars.NewResolver(
		vars.NewMapProvider("env", envMap),
		vars.DynamicProvider{Now: a.now},
	)
	log := a.logger.With("request", req.Name)
	expand := func(s string) string {
		out, missing := resolver.Expand(s)
		if len(missing) > 0 {
			log.Debug("unresolved variables", "names", missing)
		}
		return out
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	desc := &Descriptor{
		Method:          method,
		URL:             strings.TrimSpace(expand(req.URL)),
		Query:           url.Values{},
		Header:          make(http.Header),
		Timeout:         time.Duration(settings.General.TimeoutMS) * time.Millisecond,
		MaxResponseSize: settings.General.MaxResponseSize,
		Proxy:           settings.Proxy,
		Source:          req,
	}

	for _, kv := range req.QueryParams {
		if !kv.Active() {
			continue
		}
		desc.Query.Set(expand(kv.Key), expand(kv.Value))
	}
	for _, kv := range req.Headers {
		if !kv.Active() {
			continue
		}
		name := strings.TrimSpace(expand(kv.Key))
		if name == "" {
			continue
		}
		desc.Header.Set(name, expand(kv.Value))
	}

	if err := a.applyBody(desc, req.Body, expand, log); err != nil {
		return nil, err
	}
	applyAuth(desc, req.Auth, expand)

	for _, kv := range settings.General.DefaultHeaders {
		if !kv.Active() {
			continue
		}
		name := strings.TrimSpace(expand(kv.Key))
		if name == "" || len(desc.Header.Values(name)) > 0 {
			continue
		}
		desc.Header.Set(name, expand(kv.Value))
	}

	a.applyTLS(desc, settings, log)
	return desc, nil
}

// applyAuth leaves an explicit Authorization (or API key) header alone.
func applyAuth(desc *Descriptor, auth *collection.Auth, expand func(string) string) {
	if auth == nil || len(auth.Params) == 0 {
		return
	}
	switch collection.AuthType(strings.ToLower(string(auth.Type))) {
	case collection.AuthBasic:
		if desc.Header.Get("Authorization") != "" {
			return
		}
		cred := expand(auth.Params["username"]) + ":" + expand(auth.Params["password"])
		desc.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(cred)))
	case collection.AuthBearer:
		if desc.Header.Get("Authorization") != "" {
			return
		}
		desc.Header.Set("Authorization", "Bearer "+expand(auth.Params["token"]))
	case collection.AuthAPIKey:
		name := expand(auth.Params["name"])
		value := expand(auth.Params["value"])
		if strings.EqualFold(auth.Params["placement"], "query") {
			if name != "" && desc.Query.Get(name) == "" {
				desc.Query.Set(name, value)
			}
			return
		}
		if name == "" {
			name = "X-API-Key"
		}
		if desc.Header.Get(name) == "" {
			desc.Header.Set(name, value)
		}
	}
}
