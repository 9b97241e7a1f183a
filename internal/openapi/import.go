package openapi

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/unkn0wn-root/restbench/internal/collection"
)

// DefaultTag is the bucket for untagged operations. Its requests are placed
// at the root instead of in a folder.
const DefaultTag = "Default"

type ImportOptions struct {
	ResolveExternalRefs bool
	// SkipDeprecated leaves out operations marked deprecated.
	SkipDeprecated bool
	// SampleSchemas fills JSON bodies without an example from their schema
	// instead of leaving them as {}.
	SampleSchemas bool
	Logger        *slog.Logger
}

type Result struct {
	Title    string
	Items    []collection.Item
	Warnings []string
	// Variables holds placeholder values referenced by generated auth
	// blocks, suitable for seeding an environment.
	Variables map[string]string
}

// Import converts an OpenAPI 3 or Swagger 2 document into collection items.
// Operations are grouped into folders by their first tag in first-seen
// order; untagged operations stay at the root.
func Import(ctx context.Context, data []byte, opts ImportOptions) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	doc, warnings, err := loadDocument(ctx, data, opts)
	if err != nil {
		return nil, err
	}

	b := &builder{
		doc:       doc,
		variables: map[string]string{},
		warnings:  warnings,
	}
	if opts.SampleSchemas {
		b.sampler = newSampler()
	}
	var (
		order   []string
		buckets = map[string][]collection.Item{}
	)
	for _, op := range collectOperations(doc) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if op.Deprecated && opts.SkipDeprecated {
			continue
		}
		req := b.buildRequest(op)
		tag := DefaultTag
		if len(op.Tags) > 0 && strings.TrimSpace(op.Tags[0]) != "" {
			tag = strings.TrimSpace(op.Tags[0])
		}
		if _, seen := buckets[tag]; !seen {
			order = append(order, tag)
		}
		buckets[tag] = append(buckets[tag], collection.RequestItem(req))
	}

	res := &Result{Variables: b.variables}
	if doc.Info != nil {
		res.Title = doc.Info.Title
	}
	for _, tag := range order {
		if tag == DefaultTag {
			res.Items = append(res.Items, buckets[tag]...)
			continue
		}
		res.Items = append(res.Items, collection.FolderItem(collection.NewFolder(tag, buckets[tag]...)))
	}
	collection.AssignParents(res.Items, "")

	res.Warnings = b.warnings
	for _, w := range res.Warnings {
		log.Warn("openapi import", "warning", w)
	}
	return res, nil
}

type builder struct {
	doc       *openapi3.T
	sampler   *sampler
	variables map[string]string
	warnings  []string
}

func (b *builder) noteWarning(format string, args ...any) {
	if msg := strings.TrimSpace(fmt.Sprintf(format, args...)); msg != "" {
		b.warnings = append(b.warnings, msg)
	}
}

func (b *builder) registerVariable(name, value string) {
	if _, exists := b.variables[name]; !exists {
		b.variables[name] = value
	}
}

func (b *builder) buildRequest(op operation) *collection.Request {
	req := collection.NewRequest(requestName(op), op.Method, "")

	path := op.Path
	var cookies []string
	for _, p := range op.Parameters {
		value, hasValue := parameterValue(p)
		switch p.In {
		case openapi3.ParameterInPath:
			path = strings.ReplaceAll(path, "{"+p.Name+"}", "{{"+p.Name+"}}")
		case openapi3.ParameterInQuery:
			req.QueryParams = append(req.QueryParams, paramRow(p, value, hasValue))
		case openapi3.ParameterInHeader:
			req.Headers = append(req.Headers, paramRow(p, value, hasValue))
		case openapi3.ParameterInCookie:
			cookies = append(cookies, p.Name+"="+value)
		}
	}
	if len(cookies) > 0 {
		req.Headers = append(req.Headers, collection.NewKeyValue("Cookie", strings.Join(cookies, "; ")))
	}
	req.URL = joinBaseAndPath(op.Server, path)

	b.applyRequestBody(req, op)
	applyAcceptHeader(req, op.Responses)
	req.Auth = b.applySecurity(op)
	req.Description = b.describe(op)
	req.Examples = b.responseExamples(req, op)
	return req
}

func paramRow(p *openapi3.Parameter, value string, hasValue bool) collection.KeyValue {
	kv := collection.NewKeyValue(p.Name, value)
	kv.Description = p.Description
	kv.Enabled = p.Required || hasValue
	return kv
}

func (b *builder) applyRequestBody(req *collection.Request, op operation) {
	if op.RequestBody == nil || len(op.RequestBody.Content) == 0 {
		return
	}
	chosen := selectRequestMedia(sortedMedia(op.RequestBody.Content))
	if chosen == nil {
		return
	}
	mediaType, _, err := mime.ParseMediaType(chosen.ContentType)
	if err != nil {
		mediaType = strings.ToLower(chosen.ContentType)
	}
	mt := chosen.Value

	switch {
	case mediaType == "application/x-www-form-urlencoded":
		req.Body = collection.Body{Type: collection.BodyURLEncoded, URLEncoded: formFields(mt, false)}
	case mediaType == "multipart/form-data":
		req.Body = collection.Body{Type: collection.BodyFormData, FormData: formFields(mt, true)}
	case isJSONMedia(mediaType):
		text := "{}"
		if v, ok := mediaExample(mt); ok {
			text = stringifyExample(v, true)
		} else if b.sampler != nil {
			if v, ok := b.sampler.fromSchema(mt.Schema); ok && v != nil {
				text = stringifyExample(v, true)
			}
		}
		req.Body = collection.Body{Type: collection.BodyRaw, Raw: text, RawType: collection.RawJSON}
		if mediaType != "application/json" {
			req.Headers = append(req.Headers, collection.NewKeyValue("Content-Type", chosen.ContentType))
		}
	case mediaType == "application/octet-stream":
		req.Body = collection.Body{Type: collection.BodyBinary}
		req.Headers = append(req.Headers, collection.NewKeyValue("Content-Type", chosen.ContentType))
	default:
		text := ""
		if v, ok := mediaExample(mt); ok {
			text = stringifyExample(v, true)
		}
		req.Body = collection.Body{Type: collection.BodyRaw, Raw: text, RawType: rawTypeFor(mediaType)}
		req.Headers = append(req.Headers, collection.NewKeyValue("Content-Type", chosen.ContentType))
	}
}

// formFields maps schema properties to form rows. A property with format
// binary becomes a file row when files are allowed.
func formFields(mt *openapi3.MediaType, allowFiles bool) []collection.KeyValue {
	if mt == nil || mt.Schema == nil || mt.Schema.Value == nil {
		return nil
	}
	schema := mt.Schema.Value
	var example map[string]any
	if v, ok := mediaExample(mt); ok {
		example, _ = v.(map[string]any)
	}
	rows := make([]collection.KeyValue, 0, len(schema.Properties))
	for _, name := range sortedKeys(schema.Properties) {
		prop := schema.Properties[name]
		value := ""
		if v, ok := example[name]; ok {
			value = stringifyExample(v, false)
		} else if prop != nil && prop.Value != nil {
			if v, ok := declaredValue(prop.Value); ok {
				value = stringifyExample(v, false)
			}
		}
		kv := collection.NewKeyValue(name, value)
		if prop != nil && prop.Value != nil {
			kv.Description = prop.Value.Description
			if allowFiles && prop.Value.Format == "binary" {
				kv.Type = collection.FieldFile
			}
		}
		rows = append(rows, kv)
	}
	return rows
}

func applyAcceptHeader(req *collection.Request, responses []response) {
	for _, h := range req.Headers {
		if strings.EqualFold(h.Key, "Accept") {
			return
		}
	}
	if ct, ok := selectResponseContentType(responses); ok {
		req.Headers = append(req.Headers, collection.NewKeyValue("Accept", ct))
	}
}

// applySecurity maps the first usable security requirement onto the
// request's auth block. Credentials are left as {{auth.*}} placeholders.
func (b *builder) applySecurity(op operation) *collection.Auth {
	if len(op.Security) == 0 || b.doc.Components == nil {
		return nil
	}
	for _, requirement := range op.Security {
		for _, name := range sortedKeys(requirement) {
			if auth := b.mapSecurity(op, name); auth != nil {
				return auth
			}
		}
	}
	return nil
}

func (b *builder) mapSecurity(op operation, name string) *collection.Auth {
	ref, ok := b.doc.Components.SecuritySchemes[name]
	if !ok || ref == nil || ref.Value == nil {
		b.noteWarning("request %s references unknown security scheme %s", requestName(op), name)
		return nil
	}
	scheme := ref.Value
	switch strings.ToLower(scheme.Type) {
	case "http":
		switch strings.ToLower(scheme.Scheme) {
		case "basic":
			b.registerVariable(varAuthUsername, "user")
			b.registerVariable(varAuthPassword, placeholderPassword)
			return &collection.Auth{Type: collection.AuthBasic, Params: map[string]string{
				"username": placeholder(varAuthUsername),
				"password": placeholder(varAuthPassword),
			}}
		case "bearer":
			return b.bearer()
		}
	case "apikey":
		placement := strings.ToLower(scheme.In)
		if placement != "query" {
			placement = "header"
		}
		keyName := scheme.Name
		if keyName == "" {
			keyName = "X-API-Key"
		}
		b.registerVariable(varAuthAPIKey, placeholderAPIKey)
		return &collection.Auth{Type: collection.AuthAPIKey, Params: map[string]string{
			"placement": placement,
			"name":      keyName,
			"value":     placeholder(varAuthAPIKey),
		}}
	case "oauth2", "openidconnect":
		b.noteWarning("request %s uses %s; generated bearer token placeholder", requestName(op), scheme.Type)
		return b.bearer()
	}
	b.noteWarning("request %s references unsupported security scheme type %s", requestName(op), scheme.Type)
	return nil
}

func (b *builder) bearer() *collection.Auth {
	b.registerVariable(varAuthToken, placeholderToken)
	return &collection.Auth{
		Type:   collection.AuthBearer,
		Params: map[string]string{"token": placeholder(varAuthToken)},
	}
}

// responseExamples captures explicit response examples, one per status and
// content type, each with a snapshot of the request as built so far.
func (b *builder) responseExamples(req *collection.Request, op operation) []collection.Example {
	var out []collection.Example
	for _, resp := range op.Responses {
		status, _ := strconv.Atoi(resp.Code)
		for _, m := range resp.Media {
			v, ok := mediaExample(m.Value)
			if !ok {
				continue
			}
			out = append(out, collection.Example{
				ID:          collection.NewID(),
				Name:        resp.Code + " - " + m.ContentType,
				Status:      status,
				Body:        stringifyExample(v, true),
				ContentType: m.ContentType,
				Request:     req.Snapshot(),
			})
		}
	}
	return out
}

const (
	varAuthUsername = "auth.username"
	varAuthPassword = "auth.password"
	varAuthToken    = "auth.token"
	varAuthAPIKey   = "auth.apiKey"

	placeholderPassword = "replace-with-password"
	placeholderToken    = "replace-with-token"
	placeholderAPIKey   = "replace-with-api-key"
)

func placeholder(name string) string {
	return "{{" + name + "}}"
}

func requestName(op operation) string {
	if s := strings.TrimSpace(op.Summary); s != "" {
		return s
	}
	if id := strings.TrimSpace(op.ID); id != "" {
		return id
	}
	return op.Method + " " + op.Path
}

func selectRequestMedia(options []media) *media {
	if len(options) == 0 {
		return nil
	}
	for i := range options {
		if strings.EqualFold(options[i].ContentType, "application/json") {
			return &options[i]
		}
	}
	return &options[0]
}

// selectResponseContentType prefers JSON from the lowest 2xx response.
func selectResponseContentType(responses []response) (string, bool) {
	bestScore := -1
	selected := ""
	for _, resp := range responses {
		statusScore := responseStatusScore(resp.Code)
		for _, m := range resp.Media {
			score := statusScore
			if strings.EqualFold(m.ContentType, "application/json") {
				score += 10
			}
			if score > bestScore {
				bestScore = score
				selected = m.ContentType
			}
		}
	}
	return selected, selected != ""
}

// 2xx responses score highest (200 gets 150, 299 gets 51).
// Other numeric codes get 10, "default" gets 1.
func responseStatusScore(code string) int {
	if code == "default" {
		return 1
	}
	if len(code) == 3 {
		if numeric, err := strconv.Atoi(code); err == nil {
			if numeric >= 200 && numeric < 300 {
				return 50 + (300 - numeric)
			}
			return 10
		}
	}
	return 0
}

func joinBaseAndPath(base, path string) string {
	if base == "" {
		return path
	}
	trimmedBase := strings.TrimRight(base, "/")
	if path == "" {
		return trimmedBase
	}
	if strings.HasPrefix(path, "/") {
		return trimmedBase + path
	}
	return trimmedBase + "/" + path
}

func isJSONMedia(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func rawTypeFor(mediaType string) collection.RawType {
	switch {
	case strings.HasSuffix(mediaType, "xml"):
		return collection.RawXML
	case mediaType == "text/html":
		return collection.RawHTML
	case strings.HasSuffix(mediaType, "javascript"):
		return collection.RawJavaScript
	default:
		return collection.RawText
	}
}
