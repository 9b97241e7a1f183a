package importer

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/unkn0wn-root/restbench/internal/collection"
	"github.com/unkn0wn-root/restbench/internal/errdef"
)

type postmanCollection struct {
	Info struct {
		Name        string             `json:"name"`
		Description postmanDescription `json:"description"`
	} `json:"info"`
	Item     []postmanItem   `json:"item"`
	Auth     *postmanAuth    `json:"auth,omitempty"`
	Variable []postmanKeyVal `json:"variable"`
}

type postmanItem struct {
	Name        string             `json:"name"`
	Description postmanDescription `json:"description"`
	Item        []postmanItem      `json:"item,omitempty"`
	Request     *postmanRequest    `json:"request,omitempty"`
	Response    []postmanResponse  `json:"response,omitempty"`
	Auth        *postmanAuth       `json:"auth,omitempty"`
}

type postmanRequest struct {
	Method      string             `json:"method"`
	Header      postmanHeaders     `json:"header"`
	Body        *postmanBody       `json:"body,omitempty"`
	URL         postmanURL         `json:"url"`
	Description postmanDescription `json:"description"`
	Auth        *postmanAuth       `json:"auth,omitempty"`
}

// UnmarshalJSON accepts the shorthand where a request is just its URL.
func (r *postmanRequest) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*r = postmanRequest{Method: "GET", URL: postmanURL{Raw: raw}}
		return nil
	}
	type plain postmanRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = postmanRequest(p)
	return nil
}

type postmanKeyVal struct {
	Key         string             `json:"key"`
	Value       string             `json:"value"`
	Description postmanDescription `json:"description"`
	Disabled    bool               `json:"disabled"`
	Type        string             `json:"type"`
	Src         postmanSrc         `json:"src"`
}

// postmanHeaders accepts the header array as well as a raw "Name: value"
// block.
type postmanHeaders []postmanKeyVal

func (h *postmanHeaders) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		var out postmanHeaders
		for _, line := range strings.Split(raw, "\n") {
			name, value, ok := strings.Cut(line, ":")
			if !ok || strings.TrimSpace(name) == "" {
				continue
			}
			out = append(out, postmanKeyVal{Key: strings.TrimSpace(name), Value: strings.TrimSpace(value)})
		}
		*h = out
		return nil
	}
	var list []postmanKeyVal
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*h = list
	return nil
}

// postmanSrc is a form file source: a path or a list of paths.
type postmanSrc string

func (s *postmanSrc) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = postmanSrc(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return nil
	}
	if len(many) > 0 {
		*s = postmanSrc(many[0])
	}
	return nil
}

// postmanDescription is either a string or {content, type}.
type postmanDescription string

func (d *postmanDescription) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = postmanDescription(s)
		return nil
	}
	var obj struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	*d = postmanDescription(obj.Content)
	return nil
}

type postmanURL struct {
	Raw      string          `json:"raw"`
	Protocol string          `json:"protocol,omitempty"`
	Host     []string        `json:"host,omitempty"`
	Port     string          `json:"port,omitempty"`
	Path     []string        `json:"path,omitempty"`
	Query    []postmanKeyVal `json:"query,omitempty"`
}

// UnmarshalJSON accepts a plain URL string as well as the object form.
// Host and path may be given as strings instead of segment arrays.
func (u *postmanURL) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*u = postmanURL{Raw: raw}
		return nil
	}
	var obj struct {
		Raw      string          `json:"raw"`
		Protocol string          `json:"protocol"`
		Host     json.RawMessage `json:"host"`
		Port     string          `json:"port"`
		Path     json.RawMessage `json:"path"`
		Query    []postmanKeyVal `json:"query"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*u = postmanURL{
		Raw:      obj.Raw,
		Protocol: obj.Protocol,
		Host:     segments(obj.Host, "."),
		Port:     obj.Port,
		Path:     segments(obj.Path, "/"),
		Query:    obj.Query,
	}
	return nil
}

func segments(data json.RawMessage, sep string) []string {
	if len(data) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		return list
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil && one != "" {
		return strings.Split(strings.Trim(one, sep), sep)
	}
	return nil
}

type postmanBody struct {
	Mode       string          `json:"mode"`
	Raw        string          `json:"raw,omitempty"`
	FormData   []postmanKeyVal `json:"formdata,omitempty"`
	URLEncoded []postmanKeyVal `json:"urlencoded,omitempty"`
	File       *struct {
		Src postmanSrc `json:"src"`
	} `json:"file,omitempty"`
	GraphQL *struct {
		Query     string          `json:"query"`
		Variables json.RawMessage `json:"variables"`
	} `json:"graphql,omitempty"`
	Options *struct {
		Raw *struct {
			Language string `json:"language"`
		} `json:"raw"`
	} `json:"options,omitempty"`
	Disabled bool `json:"disabled"`
}

type postmanAuth struct {
	Type   string          `json:"type"`
	Basic  []postmanKeyVal `json:"basic,omitempty"`
	Bearer []postmanKeyVal `json:"bearer,omitempty"`
	APIKey []postmanKeyVal `json:"apikey,omitempty"`
}

type postmanResponse struct {
	Name            string          `json:"name"`
	OriginalRequest *postmanRequest `json:"originalRequest,omitempty"`
	Code            int             `json:"code"`
	Header          postmanHeaders  `json:"header"`
	Body            string          `json:"body"`
}

type postmanConverter struct {
	warnings []string
}

func (c *postmanConverter) warn(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

func parsePostman(data []byte) (*Document, error) {
	var pc postmanCollection
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&pc); err != nil {
		return nil, errdef.Wrap(errdef.CodeParse, err, "decode postman collection")
	}

	c := &postmanConverter{}
	doc := &Document{
		Name:  strings.TrimSpace(pc.Info.Name),
		Items: c.items(pc.Item, pc.Auth),
	}
	if len(pc.Variable) > 0 {
		doc.Variables = make(map[string]string, len(pc.Variable))
		for _, v := range pc.Variable {
			if v.Key != "" && !v.Disabled {
				doc.Variables[v.Key] = v.Value
			}
		}
	}
	doc.Warnings = c.warnings
	return doc, nil
}

// items descends the tree; an entry with its own item list is a folder.
// Auth is inherited from the closest ancestor that declares one.
func (c *postmanConverter) items(in []postmanItem, inherited *postmanAuth) []collection.Item {
	out := make([]collection.Item, 0, len(in))
	for _, it := range in {
		auth := inherited
		if it.Auth != nil {
			auth = it.Auth
		}
		if it.Item != nil || it.Request == nil {
			folder := collection.NewFolder(it.Name, c.items(it.Item, auth)...)
			out = append(out, collection.FolderItem(folder))
			continue
		}
		out = append(out, collection.RequestItem(c.request(it, auth)))
	}
	return out
}

func (c *postmanConverter) request(it postmanItem, inherited *postmanAuth) *collection.Request {
	pr := it.Request
	method := strings.ToUpper(strings.TrimSpace(pr.Method))
	if method == "" {
		method = "GET"
	}
	rawURL, query := convertURL(pr.URL)
	req := collection.NewRequest(it.Name, method, rawURL)
	req.QueryParams = query
	req.Headers = convertRows(pr.Header)
	req.Body = c.body(pr.Body, it.Name)

	auth := inherited
	if pr.Auth != nil {
		auth = pr.Auth
	}
	req.Auth = c.auth(auth, it.Name)

	req.Description = strings.TrimSpace(string(pr.Description))
	if req.Description == "" {
		req.Description = strings.TrimSpace(string(it.Description))
	}
	req.Examples = c.examples(it.Response, req)
	return req
}

// convertURL returns the URL without its query string. The structured
// query list wins over the raw URL when both are present.
func convertURL(u postmanURL) (string, []collection.KeyValue) {
	raw := u.Raw
	if raw == "" {
		raw = buildURL(u)
	}
	base, rawQuery, hasQuery := strings.Cut(raw, "?")

	var rows []collection.KeyValue
	if len(u.Query) > 0 {
		for _, q := range u.Query {
			if q.Key == "" && q.Value == "" {
				continue
			}
			rows = append(rows, keyValue(q))
		}
		return base, rows
	}
	if !hasQuery {
		return raw, nil
	}
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		if dk, err := url.QueryUnescape(k); err == nil {
			k = dk
		}
		if dv, err := url.QueryUnescape(v); err == nil {
			v = dv
		}
		rows = append(rows, collection.NewKeyValue(k, v))
	}
	return base, rows
}

func buildURL(u postmanURL) string {
	var sb strings.Builder
	if u.Protocol != "" {
		sb.WriteString(u.Protocol + "://")
	}
	sb.WriteString(strings.Join(u.Host, "."))
	if u.Port != "" {
		sb.WriteString(":" + u.Port)
	}
	if len(u.Path) > 0 {
		sb.WriteString("/" + strings.Join(u.Path, "/"))
	}
	return sb.String()
}

func keyValue(p postmanKeyVal) collection.KeyValue {
	kv := collection.NewKeyValue(p.Key, p.Value)
	kv.Description = string(p.Description)
	kv.Enabled = !p.Disabled
	return kv
}

func convertRows(in []postmanKeyVal) []collection.KeyValue {
	if len(in) == 0 {
		return nil
	}
	out := make([]collection.KeyValue, 0, len(in))
	for _, p := range in {
		out = append(out, keyValue(p))
	}
	return out
}

func (c *postmanConverter) body(b *postmanBody, name string) collection.Body {
	if b == nil || b.Disabled {
		return collection.Body{Type: collection.BodyNone}
	}
	switch b.Mode {
	case "raw":
		body := collection.Body{Type: collection.BodyRaw, Raw: b.Raw, RawType: collection.RawText}
		if b.Options != nil && b.Options.Raw != nil && b.Options.Raw.Language != "" {
			body.RawType = collection.RawType(strings.ToLower(b.Options.Raw.Language))
		} else if json.Valid([]byte(strings.TrimSpace(b.Raw))) && strings.TrimSpace(b.Raw) != "" {
			body.RawType = collection.RawJSON
		}
		return body
	case "urlencoded":
		return collection.Body{Type: collection.BodyURLEncoded, URLEncoded: convertRows(b.URLEncoded)}
	case "formdata":
		rows := make([]collection.KeyValue, 0, len(b.FormData))
		for _, f := range b.FormData {
			kv := keyValue(f)
			if f.Type == "file" {
				kv.Type = collection.FieldFile
				kv.Value = string(f.Src)
			} else {
				kv.Type = collection.FieldText
			}
			rows = append(rows, kv)
		}
		return collection.Body{Type: collection.BodyFormData, FormData: rows}
	case "file":
		body := collection.Body{Type: collection.BodyBinary}
		if b.File != nil {
			body.Binary = string(b.File.Src)
		}
		return body
	case "graphql":
		body := collection.Body{Type: collection.BodyGraphQL, GraphQL: &collection.GraphQL{}}
		if b.GraphQL != nil {
			body.GraphQL.Query = b.GraphQL.Query
			body.GraphQL.Variables = graphQLVariables(b.GraphQL.Variables)
		}
		return body
	case "", "none":
		return collection.Body{Type: collection.BodyNone}
	default:
		c.warn("request %q uses unsupported body mode %q", name, b.Mode)
		return collection.Body{Type: collection.BodyNone}
	}
}

// graphQLVariables keeps variables as JSON text whether the collection
// stored them as a string or as an object.
func graphQLVariables(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func (c *postmanConverter) auth(a *postmanAuth, name string) *collection.Auth {
	if a == nil {
		return nil
	}
	params := func(list []postmanKeyVal) map[string]string {
		out := make(map[string]string, len(list))
		for _, p := range list {
			out[p.Key] = p.Value
		}
		return out
	}
	switch strings.ToLower(a.Type) {
	case "", "noauth":
		return nil
	case "basic":
		p := params(a.Basic)
		return &collection.Auth{Type: collection.AuthBasic, Params: map[string]string{
			"username": p["username"],
			"password": p["password"],
		}}
	case "bearer":
		return &collection.Auth{Type: collection.AuthBearer, Params: map[string]string{
			"token": params(a.Bearer)["token"],
		}}
	case "apikey":
		p := params(a.APIKey)
		placement := "header"
		if strings.EqualFold(p["in"], "query") {
			placement = "query"
		}
		return &collection.Auth{Type: collection.AuthAPIKey, Params: map[string]string{
			"name":      p["key"],
			"value":     p["value"],
			"placement": placement,
		}}
	default:
		c.warn("request %q uses unsupported auth type %q", name, a.Type)
		return nil
	}
}

// examples turns saved responses into examples. The snapshot comes from the
// response's original request when present, else from req.
func (c *postmanConverter) examples(responses []postmanResponse, req *collection.Request) []collection.Example {
	if len(responses) == 0 {
		return nil
	}
	out := make([]collection.Example, 0, len(responses))
	for _, r := range responses {
		ex := collection.Example{
			ID:     collection.NewID(),
			Name:   r.Name,
			Status: r.Code,
			Body:   r.Body,
		}
		for _, h := range r.Header {
			if strings.EqualFold(h.Key, "Content-Type") {
				ex.ContentType = h.Value
				break
			}
		}
		if r.OriginalRequest != nil {
			orig := r.OriginalRequest
			rawURL, query := convertURL(orig.URL)
			method := strings.ToUpper(orig.Method)
			if method == "" {
				method = req.Method
			}
			ex.Request = &collection.ExampleRequest{
				Method:      method,
				URL:         rawURL,
				QueryParams: query,
				Headers:     convertRows(orig.Header),
				Body:        c.body(orig.Body, req.Name),
			}
		} else {
			ex.Request = req.Snapshot()
		}
		out = append(out, ex)
	}
	return out
}
