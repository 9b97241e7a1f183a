package importer

import (
	"mime"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/unkn0wn-root/restbench/internal/collection"
	"github.com/unkn0wn-root/restbench/internal/curl"
)

// parseCurl is best effort: commands that fail to parse become warnings and
// the rest are kept, so unparsable input yields an empty list.
func parseCurl(content string) *Document {
	cmds, errs := curl.ParseScript(content)
	doc := &Document{Items: make([]collection.Item, 0, len(cmds))}
	for _, err := range errs {
		doc.Warnings = append(doc.Warnings, err.Error())
	}
	for _, cmd := range cmds {
		doc.Items = append(doc.Items, collection.RequestItem(FromCurl(cmd)))
		doc.Warnings = append(doc.Warnings, cmd.Warnings...)
	}
	return doc
}

// FromCurl maps one parsed curl command onto a request.
func FromCurl(cmd curl.Command) *collection.Request {
	method := strings.ToUpper(cmd.Method)
	if method == "" {
		method = "GET"
		if cmd.Body.Kind != curl.BodyNone {
			method = "POST"
		}
	}
	req := collection.NewRequest(curlRequestName(method, cmd.URL), method, cmd.URL)

	for _, q := range cmd.Queries {
		req.QueryParams = append(req.QueryParams, collection.NewKeyValue(q.Name, q.Value))
	}
	for _, h := range cmd.Headers {
		req.Headers = append(req.Headers, collection.NewKeyValue(h.Name, h.Value))
	}

	contentType := cmd.Headers.Get("Content-Type")
	switch cmd.Body.Kind {
	case curl.BodyRaw:
		req.Body = collection.Body{Type: collection.BodyRaw, Raw: cmd.Body.Raw, RawType: rawTypeOf(contentType, cmd.Body.Raw)}
	case curl.BodyForm:
		rows := make([]collection.KeyValue, 0, len(cmd.Body.Form))
		for _, f := range cmd.Body.Form {
			rows = append(rows, collection.NewKeyValue(f.Name, f.Value))
		}
		req.Body = collection.Body{Type: collection.BodyURLEncoded, URLEncoded: rows}
	case curl.BodyMultipart:
		rows := make([]collection.KeyValue, 0, len(cmd.Body.Parts))
		for _, p := range cmd.Body.Parts {
			kv := collection.NewKeyValue(p.Name, p.Value)
			kv.Type = collection.FieldText
			if p.IsFile() {
				kv.Type = collection.FieldFile
				kv.Value = p.File
			}
			rows = append(rows, kv)
		}
		req.Body = collection.Body{Type: collection.BodyFormData, FormData: rows}
		// the encoder supplies its own boundary
		req.Headers = dropHeader(req.Headers, "Content-Type")
	case curl.BodyFile:
		req.Body = collection.Body{Type: collection.BodyBinary, Binary: cmd.Body.File}
	}

	if user, pass, ok := cmd.BasicAuth(); ok || user != "" {
		req.Auth = &collection.Auth{Type: collection.AuthBasic, Params: map[string]string{
			"username": user,
			"password": pass,
		}}
	}
	return req
}

func curlRequestName(method, rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return method + " " + rawURL
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return method + " " + u.Host + path
}

func rawTypeOf(contentType, raw string) collection.RawType {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return collection.RawJSON
	case strings.HasSuffix(mediaType, "xml"):
		return collection.RawXML
	case mediaType == "text/html":
		return collection.RawHTML
	case mediaType == "" && json.Valid([]byte(strings.TrimSpace(raw))) && strings.TrimSpace(raw) != "":
		return collection.RawJSON
	default:
		return collection.RawText
	}
}

func dropHeader(headers []collection.KeyValue, name string) []collection.KeyValue {
	out := headers[:0]
	for _, h := range headers {
		if !strings.EqualFold(h.Key, name) {
			out = append(out, h)
		}
	}
	return out
}
