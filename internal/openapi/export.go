package openapi

import (
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/restbench/internal/collection"
	"github.com/unkn0wn-root/restbench/internal/errdef"
)

const (
	exportVersion       = "3.0.0"
	defaultExportTitle  = "Exported Collection"
	defaultExportSemver = "1.0.0"
)

type ExportOptions struct {
	Title   string
	Version string
	Logger  *slog.Logger
}

type exportDoc struct {
	OpenAPI string                          `yaml:"openapi"`
	Info    exportInfo                      `yaml:"info"`
	Servers []exportServer                  `yaml:"servers,omitempty"`
	Paths   map[string]map[string]*exportOp `yaml:"paths"`
}

type exportInfo struct {
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

type exportServer struct {
	URL string `yaml:"url"`
}

type exportOp struct {
	Summary     string                    `yaml:"summary"`
	Description string                    `yaml:"description,omitempty"`
	Tags        []string                  `yaml:"tags,omitempty"`
	Parameters  []exportParam             `yaml:"parameters,omitempty"`
	RequestBody *exportBody               `yaml:"requestBody,omitempty"`
	Responses   map[string]exportResponse `yaml:"responses"`
}

type exportParam struct {
	Name     string        `yaml:"name"`
	In       string        `yaml:"in"`
	Required bool          `yaml:"required,omitempty"`
	Schema   *exportSchema `yaml:"schema"`
	Example  any           `yaml:"example,omitempty"`
}

type exportBody struct {
	Content map[string]exportMedia `yaml:"content"`
}

type exportMedia struct {
	Schema  *exportSchema `yaml:"schema"`
	Example any           `yaml:"example,omitempty"`
}

type exportSchema struct {
	Type       string                   `yaml:"type,omitempty"`
	Format     string                   `yaml:"format,omitempty"`
	Properties map[string]*exportSchema `yaml:"properties,omitempty"`
}

type exportResponse struct {
	Description string `yaml:"description"`
}

// ExportToSwagger renders items with default export options.
func ExportToSwagger(items []collection.Item) ([]byte, error) {
	return Export(items, ExportOptions{})
}

// Export renders the requests in items as an OpenAPI 3.0.0 YAML document.
// Each request is tagged with its nearest folder. Requests whose URL cannot
// be parsed are skipped with a warning; a URL without a scheme is retried
// with an http:// prefix.
func Export(items []collection.Item, opts ExportOptions) ([]byte, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	doc := exportDoc{
		OpenAPI: exportVersion,
		Info:    exportInfo{Title: opts.Title, Version: opts.Version},
		Paths:   map[string]map[string]*exportOp{},
	}
	if doc.Info.Title == "" {
		doc.Info.Title = defaultExportTitle
	}
	if doc.Info.Version == "" {
		doc.Info.Version = defaultExportSemver
	}

	seenServers := map[string]bool{}
	err := collection.Walk(items, func(it collection.Item, _ int, parent *collection.Folder) error {
		req := it.Request
		if req == nil {
			return nil
		}
		u, ok := parseExportURL(req.URL)
		if !ok {
			log.Warn("skipping request with invalid url", "request", req.Name, "url", req.URL)
			return nil
		}
		path, pathParams := exportPath(u.Path)
		method := strings.ToLower(strings.TrimSpace(req.Method))
		if method == "" {
			method = strings.ToLower(http.MethodGet)
		}
		ops := doc.Paths[path]
		if ops == nil {
			ops = map[string]*exportOp{}
			doc.Paths[path] = ops
		}
		if _, dup := ops[method]; dup {
			log.Warn("skipping duplicate operation", "request", req.Name, "method", method, "path", path)
			return nil
		}
		if u.Host != "" {
			server := u.Scheme + "://" + u.Host
			if !seenServers[server] {
				seenServers[server] = true
				doc.Servers = append(doc.Servers, exportServer{URL: server})
			}
		}

		op := &exportOp{
			Summary:   req.Name,
			Responses: map[string]exportResponse{"200": {Description: "OK"}},
		}
		if parent != nil && parent.Name != "" {
			op.Tags = []string{parent.Name}
		}
		op.Parameters = exportParams(req, pathParams)
		op.RequestBody = exportRequestBody(req)
		ops[method] = op
		return nil
	})
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeExport, err, "walk collection")
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeExport, err, "encode openapi document")
	}
	return out, nil
}

func parseExportURL(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		return u, true
	}
	if strings.Contains(raw, "://") {
		return nil, false
	}
	u, err := url.Parse("http://" + raw)
	if err != nil || u.Host == "" {
		return nil, false
	}
	return u, true
}

var templateSegment = regexp.MustCompile(`^\{\{\s*([^{}\s]+)\s*\}\}$`)

// exportPath turns {{name}} path segments into {name} path parameters.
func exportPath(p string) (string, []string) {
	if p == "" {
		return "/", nil
	}
	segments := strings.Split(p, "/")
	var params []string
	for i, seg := range segments {
		if m := templateSegment.FindStringSubmatch(seg); m != nil {
			segments[i] = "{" + m[1] + "}"
			params = append(params, m[1])
		}
	}
	return strings.Join(segments, "/"), params
}

func exportParams(req *collection.Request, pathParams []string) []exportParam {
	var params []exportParam
	for _, name := range pathParams {
		params = append(params, exportParam{
			Name:     name,
			In:       "path",
			Required: true,
			Schema:   &exportSchema{Type: "string"},
		})
	}
	for _, q := range req.QueryParams {
		if !q.Active() {
			continue
		}
		params = append(params, exportParam{
			Name:    q.Key,
			In:      "query",
			Schema:  &exportSchema{Type: "string"},
			Example: nonEmpty(q.Value),
		})
	}
	for _, h := range req.Headers {
		if !h.Active() || strings.EqualFold(h.Key, "Content-Type") {
			continue
		}
		params = append(params, exportParam{
			Name:    h.Key,
			In:      "header",
			Schema:  &exportSchema{Type: "string"},
			Example: nonEmpty(h.Value),
		})
	}
	return params
}

func exportRequestBody(req *collection.Request) *exportBody {
	body := req.Body
	switch body.Kind() {
	case collection.BodyRaw:
		ct := headerValue(req.Headers, "Content-Type")
		if ct == "" {
			ct = "application/json"
		}
		m := exportMedia{Schema: &exportSchema{Type: "string"}}
		var parsed any
		if err := json.Unmarshal([]byte(body.Raw), &parsed); err == nil {
			m.Example = parsed
			switch parsed.(type) {
			case map[string]any:
				m.Schema.Type = "object"
			case []any:
				m.Schema.Type = "array"
			}
		} else if body.Raw != "" {
			m.Example = body.Raw
		}
		return &exportBody{Content: map[string]exportMedia{ct: m}}
	case collection.BodyURLEncoded:
		return &exportBody{Content: map[string]exportMedia{
			"application/x-www-form-urlencoded": {Schema: formSchema(body.URLEncoded)},
		}}
	case collection.BodyFormData:
		return &exportBody{Content: map[string]exportMedia{
			"multipart/form-data": {Schema: formSchema(body.FormData)},
		}}
	case collection.BodyGraphQL:
		m := exportMedia{Schema: &exportSchema{Type: "object", Properties: map[string]*exportSchema{
			"query":     {Type: "string"},
			"variables": {Type: "object"},
		}}}
		if body.GraphQL != nil {
			example := map[string]any{"query": body.GraphQL.Query}
			var vars any
			if err := json.Unmarshal([]byte(body.GraphQL.Variables), &vars); err == nil {
				example["variables"] = vars
			}
			m.Example = example
		}
		return &exportBody{Content: map[string]exportMedia{"application/json": m}}
	case collection.BodyBinary:
		return &exportBody{Content: map[string]exportMedia{
			"application/octet-stream": {Schema: &exportSchema{Type: "string", Format: "binary"}},
		}}
	default:
		return nil
	}
}

func formSchema(fields []collection.KeyValue) *exportSchema {
	schema := &exportSchema{Type: "object", Properties: map[string]*exportSchema{}}
	for _, f := range fields {
		if !f.Active() {
			continue
		}
		prop := &exportSchema{Type: "string"}
		if f.IsFile() {
			prop.Format = "binary"
		}
		schema.Properties[f.Key] = prop
	}
	return schema
}

func headerValue(headers []collection.KeyValue, name string) string {
	for _, h := range headers {
		if h.Active() && strings.EqualFold(h.Key, name) {
			return h.Value
		}
	}
	return ""
}

func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
