package snippet

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/unkn0wn-root/restbench/internal/curl"
)

const multipartBoundary = "----RestbenchFormBoundary7MA4YWxkTrZu0gW"

// jsString renders v as a double-quoted JavaScript string literal.
func jsString(v string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return strconv.Quote(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// headersFor merges explicit headers with the credentials from --user.
// Browsers and the form-data package pick their own multipart boundary, so
// withMultipartType is false for them.
func headersFor(cmd curl.Command, withMultipartType bool) curl.Headers {
	out := make(curl.Headers, 0, len(cmd.Headers)+1)
	for _, h := range cmd.Headers {
		if cmd.Body.Kind == curl.BodyMultipart && strings.EqualFold(h.Name, "Content-Type") {
			continue
		}
		out = append(out, h)
	}
	if cmd.User != "" && !out.Has("Authorization") {
		out.Add("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(cmd.User)))
	}
	if withMultipartType && cmd.Body.Kind == curl.BodyMultipart {
		out.Set("Content-Type", "multipart/form-data; boundary="+multipartBoundary)
	}
	return out
}

func writeHeaderObject(b *strings.Builder, headers curl.Headers, indent string) {
	b.WriteString("{\n")
	for _, h := range headers {
		fmt.Fprintf(b, "%s  %s: %s,\n", indent, jsString(h.Name), jsString(h.Value))
	}
	b.WriteString(indent + "}")
}

// writeBrowserBody declares `body` for fetch and XMLHttpRequest. It reports
// whether a body was declared.
func writeBrowserBody(b *strings.Builder, body curl.Body) bool {
	switch body.Kind {
	case curl.BodyRaw:
		fmt.Fprintf(b, "const body = %s;\n\n", jsString(body.Raw))
	case curl.BodyForm:
		b.WriteString("const body = new URLSearchParams();\n")
		for _, f := range body.Form {
			fmt.Fprintf(b, "body.append(%s, %s);\n", jsString(f.Name), jsString(f.Value))
		}
		b.WriteString("\n")
	case curl.BodyMultipart:
		b.WriteString("const body = new FormData();\n")
		for _, p := range body.Parts {
			if p.IsFile() {
				fmt.Fprintf(b, "body.append(%s, fileInput.files[0], %s); // %s\n",
					jsString(p.Name), jsString(p.Filename), p.File)
				continue
			}
			fmt.Fprintf(b, "body.append(%s, %s);\n", jsString(p.Name), jsString(p.Value))
		}
		b.WriteString("\n")
	case curl.BodyFile:
		fmt.Fprintf(b, "const body = fileInput.files[0]; // %s\n\n", body.File)
	default:
		return false
	}
	return true
}

func renderFetch(cmd curl.Command) (string, error) {
	var b strings.Builder
	hasBody := writeBrowserBody(&b, cmd.Body)
	headers := headersFor(cmd, false)

	fmt.Fprintf(&b, "fetch(%s, {\n", jsString(cmd.RawURL()))
	fmt.Fprintf(&b, "  method: %s,\n", jsString(cmd.Method))
	if len(headers) > 0 {
		b.WriteString("  headers: ")
		writeHeaderObject(&b, headers, "  ")
		b.WriteString(",\n")
	}
	if cmd.FollowRedirects {
		b.WriteString("  redirect: \"follow\",\n")
	}
	if hasBody {
		b.WriteString("  body: body,\n")
	}
	b.WriteString("})\n")
	b.WriteString("  .then((response) => response.text())\n")
	b.WriteString("  .then((result) => console.log(result))\n")
	b.WriteString("  .catch((error) => console.error(error));\n")
	return b.String(), nil
}

func renderXHR(cmd curl.Command) (string, error) {
	var b strings.Builder
	hasBody := writeBrowserBody(&b, cmd.Body)

	b.WriteString("const xhr = new XMLHttpRequest();\n")
	fmt.Fprintf(&b, "xhr.open(%s, %s);\n", jsString(cmd.Method), jsString(cmd.RawURL()))
	for _, h := range headersFor(cmd, false) {
		fmt.Fprintf(&b, "xhr.setRequestHeader(%s, %s);\n", jsString(h.Name), jsString(h.Value))
	}
	if cmd.Timeout > 0 {
		fmt.Fprintf(&b, "xhr.timeout = %d;\n", cmd.Timeout.Milliseconds())
	}
	b.WriteString("\nxhr.addEventListener(\"load\", () => {\n")
	b.WriteString("  console.log(xhr.status, xhr.responseText);\n")
	b.WriteString("});\n")
	b.WriteString("xhr.addEventListener(\"error\", () => {\n")
	b.WriteString("  console.error(\"request failed\");\n")
	b.WriteString("});\n\n")
	if hasBody {
		b.WriteString("xhr.send(body);\n")
	} else {
		b.WriteString("xhr.send();\n")
	}
	return b.String(), nil
}

func renderAxios(cmd curl.Command) (string, error) {
	var b strings.Builder
	b.WriteString("const axios = require(\"axios\");\n")
	switch cmd.Body.Kind {
	case curl.BodyMultipart:
		b.WriteString("const FormData = require(\"form-data\");\n")
		if hasFilePart(cmd.Body.Parts) {
			b.WriteString("const fs = require(\"fs\");\n")
		}
	case curl.BodyFile:
		b.WriteString("const fs = require(\"fs\");\n")
	}
	b.WriteString("\n")

	hasData := true
	switch cmd.Body.Kind {
	case curl.BodyRaw:
		fmt.Fprintf(&b, "const data = %s;\n\n", jsString(cmd.Body.Raw))
	case curl.BodyForm:
		b.WriteString("const data = new URLSearchParams();\n")
		for _, f := range cmd.Body.Form {
			fmt.Fprintf(&b, "data.append(%s, %s);\n", jsString(f.Name), jsString(f.Value))
		}
		b.WriteString("\n")
	case curl.BodyMultipart:
		b.WriteString("const data = new FormData();\n")
		for _, p := range cmd.Body.Parts {
			if p.IsFile() {
				fmt.Fprintf(&b, "data.append(%s, fs.createReadStream(%s), %s);\n",
					jsString(p.Name), jsString(p.File), jsString(p.Filename))
				continue
			}
			fmt.Fprintf(&b, "data.append(%s, %s);\n", jsString(p.Name), jsString(p.Value))
		}
		b.WriteString("\n")
	case curl.BodyFile:
		fmt.Fprintf(&b, "const data = fs.readFileSync(%s);\n\n", jsString(cmd.Body.File))
	default:
		hasData = false
	}

	headers := headersFor(cmd, false)
	b.WriteString("axios({\n")
	fmt.Fprintf(&b, "  method: %s,\n", jsString(strings.ToLower(cmd.Method)))
	fmt.Fprintf(&b, "  url: %s,\n", jsString(cmd.RawURL()))
	switch {
	case cmd.Body.Kind == curl.BodyMultipart:
		b.WriteString("  headers: Object.assign(")
		writeHeaderObject(&b, headers, "  ")
		b.WriteString(", data.getHeaders()),\n")
	case len(headers) > 0:
		b.WriteString("  headers: ")
		writeHeaderObject(&b, headers, "  ")
		b.WriteString(",\n")
	}
	if hasData {
		b.WriteString("  data: data,\n")
	}
	if cmd.Timeout > 0 {
		fmt.Fprintf(&b, "  timeout: %d,\n", cmd.Timeout.Milliseconds())
	}
	b.WriteString("})\n")
	b.WriteString("  .then((response) => console.log(response.data))\n")
	b.WriteString("  .catch((error) => console.error(error));\n")
	return b.String(), nil
}

func renderNode(cmd curl.Command) (string, error) {
	raw := cmd.RawURL()
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("url %q has no host", cmd.RawURL())
	}
	module := "https"
	if strings.EqualFold(u.Scheme, "http") {
		module = "http"
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	var b strings.Builder
	fmt.Fprintf(&b, "const %s = require(%s);\n", module, jsString(module))
	if cmd.Body.Kind == curl.BodyFile || (cmd.Body.Kind == curl.BodyMultipart && hasFilePart(cmd.Body.Parts)) {
		b.WriteString("const fs = require(\"fs\");\n")
	}
	b.WriteString("\nconst options = {\n")
	fmt.Fprintf(&b, "  method: %s,\n", jsString(cmd.Method))
	fmt.Fprintf(&b, "  hostname: %s,\n", jsString(u.Hostname()))
	if port := u.Port(); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			fmt.Fprintf(&b, "  port: %d,\n", n)
		}
	}
	fmt.Fprintf(&b, "  path: %s,\n", jsString(path))
	if headers := headersFor(cmd, true); len(headers) > 0 {
		b.WriteString("  headers: ")
		writeHeaderObject(&b, headers, "  ")
		b.WriteString(",\n")
	}
	if cmd.Timeout > 0 {
		fmt.Fprintf(&b, "  timeout: %d,\n", cmd.Timeout.Milliseconds())
	}
	b.WriteString("};\n\n")

	fmt.Fprintf(&b, "const req = %s.request(options, (res) => {\n", module)
	b.WriteString("  const chunks = [];\n")
	b.WriteString("  res.on(\"data\", (chunk) => chunks.push(chunk));\n")
	b.WriteString("  res.on(\"end\", () => {\n")
	b.WriteString("    console.log(res.statusCode, Buffer.concat(chunks).toString());\n")
	b.WriteString("  });\n")
	b.WriteString("});\n\n")
	b.WriteString("req.on(\"error\", (error) => console.error(error));\n")
	writeNodeBody(&b, cmd.Body)
	b.WriteString("req.end();\n")
	return b.String(), nil
}

func writeNodeBody(b *strings.Builder, body curl.Body) {
	switch body.Kind {
	case curl.BodyRaw:
		fmt.Fprintf(b, "req.write(%s);\n", jsString(body.Raw))
	case curl.BodyForm:
		pairs := make([]string, 0, len(body.Form))
		for _, f := range body.Form {
			pairs = append(pairs, url.QueryEscape(f.Name)+"="+url.QueryEscape(f.Value))
		}
		fmt.Fprintf(b, "req.write(%s);\n", jsString(strings.Join(pairs, "&")))
	case curl.BodyMultipart:
		for _, p := range body.Parts {
			disposition := fmt.Sprintf("Content-Disposition: form-data; name=%q", p.Name)
			if !p.IsFile() {
				head := "--" + multipartBoundary + "\r\n" + disposition + "\r\n\r\n" + p.Value + "\r\n"
				fmt.Fprintf(b, "req.write(%s);\n", jsString(head))
				continue
			}
			head := "--" + multipartBoundary + "\r\n" +
				disposition + fmt.Sprintf("; filename=%q", p.Filename) + "\r\n" +
				"Content-Type: " + p.ContentType + "\r\n\r\n"
			fmt.Fprintf(b, "req.write(%s);\n", jsString(head))
			fmt.Fprintf(b, "req.write(fs.readFileSync(%s));\n", jsString(p.File))
			fmt.Fprintf(b, "req.write(%s);\n", jsString("\r\n"))
		}
		fmt.Fprintf(b, "req.write(%s);\n", jsString("--"+multipartBoundary+"--\r\n"))
	case curl.BodyFile:
		fmt.Fprintf(b, "req.write(fs.readFileSync(%s));\n", jsString(body.File))
	}
}

func hasFilePart(parts []curl.Part) bool {
	for _, p := range parts {
		if p.IsFile() {
			return true
		}
	}
	return false
}
