package httpclient

import (
	"bytes"
	"log/slog"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/unkn0wn-root/restbench/internal/collection"
	"github.com/unkn0wn-root/restbench/internal/errdef"
)

const (
	contentTypeJSON       = "application/json"
	contentTypeForm       = "application/x-www-form-urlencoded"
	contentTypeOctet      = "application/octet-stream"
	contentTypeHeaderName = "Content-Type"
)

func (a *Assembler) applyBody(
	desc *Descriptor,
	body collection.Body,
	expand func(string) string,
	log *slog.Logger,
) error {
	switch body.Kind() {
	case collection.BodyRaw:
		desc.Body = []byte(expand(body.Raw))
		defaultContentType(desc, rawContentType(body.RawType))
	case collection.BodyURLEncoded:
		desc.Body = []byte(encodeURLForm(body.URLEncoded, expand))
		defaultContentType(desc, contentTypeForm)
	case collection.BodyFormData:
		payload, contentType, err := a.encodeMultipart(body.FormData, expand, log)
		if err != nil {
			return err
		}
		desc.Body = payload
		desc.Header.Set(contentTypeHeaderName, contentType)
	case collection.BodyGraphQL:
		payload, err := encodeGraphQL(body.GraphQL, expand, log)
		if err != nil {
			return err
		}
		desc.Body = payload
		defaultContentType(desc, contentTypeJSON)
	case collection.BodyBinary:
		if strings.TrimSpace(body.Binary) == "" {
			return nil
		}
		desc.BodyFile = resolvePath(a.baseDir, body.Binary)
		defaultContentType(desc, contentTypeOctet)
	}
	return nil
}

func defaultContentType(desc *Descriptor, value string) {
	if value == "" || desc.Header.Get(contentTypeHeaderName) != "" {
		return
	}
	desc.Header.Set(contentTypeHeaderName, value)
}

func rawContentType(t collection.RawType) string {
	switch t {
	case collection.RawJSON:
		return contentTypeJSON
	case collection.RawXML:
		return "application/xml"
	case collection.RawHTML:
		return "text/html"
	case collection.RawJavaScript:
		return "application/javascript"
	case collection.RawText:
		return "text/plain"
	default:
		return ""
	}
}

// encodeURLForm keeps field order and repeated keys, unlike url.Values.Encode.
func encodeURLForm(items []collection.KeyValue, expand func(string) string) string {
	var b strings.Builder
	for _, kv := range items {
		if !kv.Active() {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(expand(kv.Key)))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(expand(kv.Value)))
	}
	return b.String()
}

func (a *Assembler) encodeMultipart(
	items []collection.KeyValue,
	expand func(string) string,
	log *slog.Logger,
) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, kv := range items {
		if !kv.Active() {
			continue
		}
		name := expand(kv.Key)
		if kv.IsFile() {
			data, path, err := readFile(a.fs, a.baseDir, kv.Value, "form file")
			if err != nil {
				log.Warn("form file skipped", "field", name, "error", err)
				continue
			}
			part, err := w.CreatePart(fileHeader(name, filepath.Base(path)))
			if err != nil {
				return nil, "", errdef.Wrap(errdef.CodeHTTP, err, "create form file %s", name)
			}
			if _, err := part.Write(data); err != nil {
				return nil, "", errdef.Wrap(errdef.CodeHTTP, err, "write form file %s", name)
			}
			continue
		}
		if err := w.WriteField(name, expand(kv.Value)); err != nil {
			return nil, "", errdef.Wrap(errdef.CodeHTTP, err, "write form field %s", name)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", errdef.Wrap(errdef.CodeHTTP, err, "close multipart body")
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func fileHeader(field, filename string) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		`form-data; name="`+quoteEscaper.Replace(field)+`"; filename="`+quoteEscaper.Replace(filename)+`"`)
	h.Set(contentTypeHeaderName, contentTypeOctet)
	return h
}

type graphQLPayload struct {
	Query     string `json:"query"`
	Variables any    `json:"variables,omitempty"`
}

// encodeGraphQL drops variables that are not valid JSON rather than failing.
func encodeGraphQL(gql *collection.GraphQL, expand func(string) string, log *slog.Logger) ([]byte, error) {
	if gql == nil {
		return nil, nil
	}
	payload := graphQLPayload{Query: expand(gql.Query)}
	if raw := strings.TrimSpace(expand(gql.Variables)); raw != "" {
		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			log.Warn("graphql variables are not valid JSON, omitting", "error", err)
		} else {
			payload.Variables = parsed
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeHTTP, err, "encode graphql body")
	}
	return data, nil
}
