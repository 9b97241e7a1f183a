package httpclient

import (
	"bytes"
	"encoding/base64"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/net/html/charset"

	"github.com/unkn0wn-root/restbench/internal/errdef"
	"github.com/unkn0wn-root/restbench/internal/nettrace"
)

const StatusTextError = "Error"

// Response is the uniform result of Execute. Data holds decoded JSON when
// the body is JSON and text otherwise; bodies that are not valid UTF-8 are
// base64 encoded and flagged by Encoding.
type Response struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Data       any               `json:"data"`
	Headers    map[string]string `json:"headers"`
	Duration   time.Duration     `json:"-"`
	Size       int64             `json:"size"`
	Encoding   string            `json:"encoding,omitempty"`
	Truncated  bool              `json:"truncated,omitempty"`
	Fallback   bool              `json:"fallback,omitempty"`
	Proto      string            `json:"proto,omitempty"`
	Body       []byte            `json:"-"`
	Err        error             `json:"-"`
	// Timeline is the phase breakdown of the primary attempt, nil when
	// nothing reached the network.
	Timeline *nettrace.Timeline `json:"-"`
}

func (r *Response) Failed() bool {
	return r != nil && r.StatusText == StatusTextError && r.Err != nil
}

func (r *Response) MarshalJSON() ([]byte, error) {
	type alias Response
	return json.Marshal(struct {
		*alias
		DurationMS int64 `json:"duration"`
	}{alias: (*alias)(r), DurationMS: r.Duration.Milliseconds()})
}

func (c *Client) normalize(resp *http.Response, desc *Descriptor, log *slog.Logger) (*Response, error) {
	limit := desc.MaxResponseSize
	raw, truncated, err := readLimited(resp.Body, limit)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeHTTP, err, "read response body")
	}

	headers := flattenHeaders(resp.Header)
	encoding := resp.Header.Get("Content-Encoding")
	body := raw
	if encoding != "" && !truncated {
		decoded, derr := decodeContent(encoding, raw, limit)
		switch {
		case derr != nil:
			log.Warn("response body left encoded", "encoding", encoding, "error", derr)
		default:
			body = decoded.data
			truncated = decoded.truncated
		}
	}
	if truncated {
		log.Warn("response body truncated", "limit", limit)
	}
	contentType := resp.Header.Get("Content-Type")
	body = toUTF8(body, contentType, log)

	out := &Response{
		Status:     resp.StatusCode,
		StatusText: statusText(resp),
		Headers:    headers,
		Body:       body,
		Truncated:  truncated,
		Proto:      resp.Proto,
	}
	out.Data, out.Encoding = decodeData(body, contentType)
	out.Size = serializedSize(out.Data, headers)
	return out, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, bool, error) {
	if limit <= 0 {
		data, err := io.ReadAll(r)
		return data, false, err
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	status := strings.TrimSpace(resp.Status)
	if _, rest, ok := strings.Cut(status, " "); ok {
		return rest
	}
	return status
}

// flattenHeaders lower-cases names and joins repeated values.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	return out
}

// serializedSize approximates the transferred size as the JSON length of
// the decoded body plus that of the headers.
func serializedSize(data any, headers map[string]string) int64 {
	var size int64
	if b, err := json.Marshal(data); err == nil {
		size += int64(len(b))
	}
	if b, err := json.Marshal(headers); err == nil {
		size += int64(len(b))
	}
	return size
}

func decodeData(body []byte, contentType string) (any, string) {
	if len(body) == 0 {
		return "", ""
	}
	if looksJSON(contentType, body) {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err == nil && !dec.More() {
			return v, ""
		}
	}
	if !utf8.Valid(body) {
		return base64.StdEncoding.EncodeToString(body), "base64"
	}
	return string(body), ""
}

func looksJSON(contentType string, body []byte) bool {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid(trimmed)
}

// toUTF8 only converts when the server declares a non UTF-8 charset.
func toUTF8(body []byte, contentType string, log *slog.Logger) []byte {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body
	}
	label := strings.TrimSpace(params["charset"])
	if label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8") {
		return body
	}
	enc, name := charset.Lookup(label)
	if enc == nil {
		log.Debug("unknown response charset", "charset", label)
		return body
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		log.Warn("response charset decode failed", "charset", name, "error", err)
		return body
	}
	return out
}

type decodedBody struct {
	data      []byte
	truncated bool
}

// decodeContent undoes Content-Encoding, applying codings in reverse order.
func decodeContent(header string, data []byte, limit int64) (decodedBody, error) {
	codings := strings.Split(header, ",")
	out := decodedBody{data: data}
	for i := len(codings) - 1; i >= 0; i-- {
		coding := strings.ToLower(strings.TrimSpace(codings[i]))
		r, closeFn, err := decoder(coding, bytes.NewReader(out.data))
		if err != nil {
			return decodedBody{}, err
		}
		if r == nil {
			continue
		}
		plain, truncated, err := readLimited(r, limit)
		if closeFn != nil {
			closeFn()
		}
		if err != nil {
			return decodedBody{}, errdef.Wrap(errdef.CodeHTTP, err, "decode %s body", coding)
		}
		out.data = plain
		out.truncated = out.truncated || truncated
	}
	return out, nil
}

func decoder(coding string, r *bytes.Reader) (io.Reader, func(), error) {
	switch coding {
	case "", "identity":
		return nil, nil, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, errdef.Wrap(errdef.CodeHTTP, err, "open gzip body")
		}
		return zr, func() { _ = zr.Close() }, nil
	case "deflate":
		// servers disagree on zlib framing; fall back to a bare stream
		zr, err := zlib.NewReader(r)
		if err != nil {
			_, _ = r.Seek(0, io.SeekStart)
			fr := flate.NewReader(r)
			return fr, func() { _ = fr.Close() }, nil
		}
		return zr, func() { _ = zr.Close() }, nil
	case "br":
		return brotli.NewReader(r), nil, nil
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, errdef.Wrap(errdef.CodeHTTP, err, "open zstd body")
		}
		return zr, zr.Close, nil
	default:
		return nil, nil, errdef.New(errdef.CodeHTTP, "unsupported content encoding %q", coding)
	}
}
