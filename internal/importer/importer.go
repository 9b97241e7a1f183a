package importer

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/restbench/internal/collection"
	"github.com/unkn0wn-root/restbench/internal/errdef"
	"github.com/unkn0wn-root/restbench/internal/openapi"
)

type Format string

const (
	FormatPostman Format = "postman"
	FormatOpenAPI Format = "openapi"
	FormatCurl    Format = "curl"
)

// Document is the result of an import before it is placed in the
// workspace.
type Document struct {
	Name     string
	Format   Format
	Items    []collection.Item
	Warnings []string
	// Variables are values the source declared alongside its requests,
	// such as Postman collection variables.
	Variables map[string]string
}

// UnsupportedFormatError reports content that is none of the accepted
// import formats.
type UnsupportedFormatError struct {
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	msg := "unsupported import format: expected a Postman collection, an OpenAPI document or a curl command"
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

type Importer struct {
	logger *slog.Logger
}

type Option func(*Importer)

func WithLogger(l *slog.Logger) Option {
	return func(i *Importer) {
		if l != nil {
			i.logger = l
		}
	}
}

func New(opts ...Option) *Importer {
	i := &Importer{logger: slog.Default()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Parse returns only the items of ParseDocument.
func Parse(content string) ([]collection.Item, error) {
	return New().Parse(content)
}

func ParseDocument(ctx context.Context, content string) (*Document, error) {
	return New().ParseDocument(ctx, content)
}

func (i *Importer) Parse(content string) ([]collection.Item, error) {
	doc, err := i.ParseDocument(context.Background(), content)
	if err != nil {
		return nil, err
	}
	return doc.Items, nil
}

// ParseDocument detects the format of content and converts it. Detection
// tries JSON first (Postman, then OpenAPI), then YAML OpenAPI, then a
// leading curl token.
func (i *Importer) ParseDocument(ctx context.Context, content string) (*Document, error) {
	format, err := Detect(content)
	if err != nil {
		return nil, err
	}
	log := i.logger.With("format", string(format))

	var doc *Document
	switch format {
	case FormatPostman:
		doc, err = parsePostman([]byte(content))
	case FormatOpenAPI:
		doc, err = i.parseOpenAPI(ctx, []byte(content), log)
	case FormatCurl:
		doc = parseCurl(content)
	}
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeImport, err, "import %s", format)
	}
	doc.Format = format
	collection.AssignParents(doc.Items, "")
	if format != FormatOpenAPI {
		for _, w := range doc.Warnings {
			log.Warn("import warning", "warning", w)
		}
	}
	log.Debug("import complete", "items", len(doc.Items), "requests", len(collection.Requests(doc.Items)))
	return doc, nil
}

// Detect classifies content without converting it.
func Detect(content string) (Format, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", &UnsupportedFormatError{Reason: "empty input"}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
		switch {
		case hasKeys(obj, "info", "item"):
			return FormatPostman, nil
		case hasAnyKey(obj, "openapi", "swagger"):
			return FormatOpenAPI, nil
		}
	} else if isYAMLOpenAPI([]byte(trimmed)) {
		return FormatOpenAPI, nil
	}

	if startsWithCurl(trimmed) {
		return FormatCurl, nil
	}
	return "", &UnsupportedFormatError{}
}

// startsWithCurl requires curl as a whole word, so "curlfoo" is not a command.
func startsWithCurl(s string) bool {
	if len(s) < 4 || !strings.EqualFold(s[:4], "curl") {
		return false
	}
	if len(s) == 4 {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[4:])
	return unicode.IsSpace(r)
}

func isYAMLOpenAPI(data []byte) bool {
	var obj map[string]any
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&obj); err != nil {
		return false
	}
	_, hasOpenAPI := obj["openapi"]
	_, hasSwagger := obj["swagger"]
	return hasOpenAPI || hasSwagger
}

func hasKeys(obj map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return false
		}
	}
	return true
}

func hasAnyKey(obj map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

func (i *Importer) parseOpenAPI(ctx context.Context, data []byte, log *slog.Logger) (*Document, error) {
	res, err := openapi.Import(ctx, data, openapi.ImportOptions{Logger: log})
	if err != nil {
		return nil, err
	}
	return &Document{
		Name:      res.Title,
		Items:     res.Items,
		Warnings:  res.Warnings,
		Variables: res.Variables,
	}, nil
}
