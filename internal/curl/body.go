package curl

import (
	"fmt"
	"path/filepath"
	"strings"
)

type bodyBuilder struct {
	kind BodyKind
	// raw keeps every data argument in its on-the-wire form so a form body
	// can still be sent as text, or moved into the query by -G.
	raw   []string
	form  []Field
	parts []Part
	file  string
}

func newBodyBuilder() *bodyBuilder {
	return &bodyBuilder{kind: BodyNone}
}

func isData(k BodyKind) bool {
	return k == BodyRaw || k == BodyForm
}

func (b *bodyBuilder) ensureKind(kind BodyKind) error {
	switch {
	case b.kind == BodyNone:
		b.kind = kind
	case b.kind == kind:
	case isData(b.kind) && isData(kind):
		b.kind = BodyRaw
	default:
		return fmt.Errorf("conflicting body flags: cannot use %s with %s", b.kind, kind)
	}
	return nil
}

// addData handles -d: @file reads a file, key=value pairs are a form and
// anything else is sent verbatim.
func (b *bodyBuilder) addData(val string) error {
	trim := strings.TrimSpace(val)
	if strings.HasPrefix(trim, "@") {
		return b.addFile(strings.TrimPrefix(trim, "@"))
	}
	if looksLikeForm(val) {
		return b.addFormValues(val)
	}
	return b.addRaw(val)
}

func (b *bodyBuilder) addBinary(val string) error {
	trim := strings.TrimSpace(val)
	if strings.HasPrefix(trim, "@") {
		return b.addFile(strings.TrimPrefix(trim, "@"))
	}
	return b.addRaw(val)
}

func (b *bodyBuilder) addRaw(val string) error {
	if err := b.ensureKind(BodyRaw); err != nil {
		return err
	}
	b.raw = append(b.raw, val)
	return nil
}

// addURLEncoded handles --data-urlencode, whose value is given unencoded.
func (b *bodyBuilder) addURLEncoded(raw string) error {
	if err := b.ensureKind(BodyForm); err != nil {
		return err
	}
	name, value, ok := strings.Cut(raw, "=")
	if !ok {
		name, value = "", raw
	}
	name = strings.TrimSpace(name)
	f := Field{Name: name, Value: value}
	b.form = append(b.form, f)
	b.raw = append(b.raw, f.encode())
	return nil
}

func (b *bodyBuilder) addFormValues(raw string) error {
	if err := b.ensureKind(BodyForm); err != nil {
		return err
	}
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		b.form = append(b.form, Field{Name: unescape(strings.TrimSpace(name)), Value: unescape(value)})
	}
	b.raw = append(b.raw, raw)
	return nil
}

func (b *bodyBuilder) addFormPart(raw string, literal bool) error {
	if err := b.ensureKind(BodyMultipart); err != nil {
		return err
	}
	part, err := parseMultipartPart(raw, literal)
	if err != nil {
		return err
	}
	b.parts = append(b.parts, part)
	return nil
}

func (b *bodyBuilder) addFile(path string) error {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return fmt.Errorf("empty body file reference")
	}
	if b.kind != BodyNone && b.kind != BodyFile {
		return fmt.Errorf("file body conflicts with other data")
	}
	b.kind = BodyFile
	b.file = clean
	return nil
}

func (b *bodyBuilder) hasContent() bool {
	switch b.kind {
	case BodyRaw, BodyForm:
		return len(b.raw) > 0
	case BodyMultipart:
		return len(b.parts) > 0
	case BodyFile:
		return b.file != ""
	default:
		return false
	}
}

func (b *bodyBuilder) query() (string, error) {
	switch b.kind {
	case BodyMultipart:
		return "", fmt.Errorf("multipart body cannot be mapped to query")
	case BodyFile:
		return "", fmt.Errorf("file body cannot be mapped to query")
	default:
		return strings.Join(b.raw, "&"), nil
	}
}

// finish builds the Body and fills in the content type curl would send.
// A form body with an explicit non-form content type is kept as text.
func (b *bodyBuilder) finish(headers *Headers) (Body, error) {
	if !b.hasContent() {
		return Body{Kind: BodyNone}, nil
	}
	ct := headers.Get(headerContentType)
	switch b.kind {
	case BodyFile:
		return Body{Kind: BodyFile, File: b.file}, nil
	case BodyMultipart:
		return Body{Kind: BodyMultipart, Parts: b.parts}, nil
	case BodyForm:
		if ct != "" && !strings.Contains(strings.ToLower(ct), mimeFormURLEncoded) {
			return Body{Kind: BodyRaw, Raw: strings.Join(b.raw, "&")}, nil
		}
		if ct == "" {
			headers.Set(headerContentType, mimeFormURLEncoded)
		}
		return Body{Kind: BodyForm, Form: b.form, Raw: strings.Join(b.raw, "&")}, nil
	default:
		return Body{Kind: BodyRaw, Raw: strings.Join(b.raw, "&")}, nil
	}
}

// looksLikeForm rejects JSON and multi-line payloads that merely contain '='.
func looksLikeForm(v string) bool {
	trim := strings.TrimSpace(v)
	if trim == "" || strings.ContainsAny(v, "\n\r") {
		return false
	}
	if trim[0] == '{' || trim[0] == '[' {
		return false
	}
	name, _, ok := strings.Cut(trim, "=")
	return ok && name != "" && !strings.ContainsAny(name, " \t")
}

func parseMultipartPart(raw string, literal bool) (Part, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return Part{}, fmt.Errorf("empty multipart field")
	}

	name, remain, ok := strings.Cut(content, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Part{}, fmt.Errorf("invalid multipart field %q", raw)
	}

	segments := strings.Split(remain, ";")
	val := strings.TrimSpace(segments[0])
	part := Part{Name: name}
	if literal {
		// --form-string never interprets ';' or '@'.
		part.Value = remain
		return part, nil
	}

	if len(val) > 0 && (val[0] == '@' || val[0] == '<') {
		file := strings.TrimSpace(val[1:])
		if file == "" {
			return part, fmt.Errorf("multipart file field missing path")
		}
		part.File = file
	} else {
		part.Value = strings.Trim(val, `"`)
	}

	for _, opt := range segments[1:] {
		key, value, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "type":
			part.ContentType = strings.TrimSpace(value)
		case "filename":
			part.Filename = strings.Trim(strings.TrimSpace(value), `"`)
		}
	}

	if part.IsFile() {
		if part.Filename == "" {
			part.Filename = filepath.Base(part.File)
		}
		if part.ContentType == "" {
			part.ContentType = mimeOctetStream
		}
	}
	return part, nil
}
