package snippet

import (
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc"
	"github.com/dop251/goja"

	"github.com/unkn0wn-root/restbench/internal/collection"
	"github.com/unkn0wn-root/restbench/internal/config"
)

func TestCurlDefault(t *testing.T) {
	t.Parallel()

	req := collection.NewRequest("r", "GET", "https://example.com")
	req.Headers = []collection.KeyValue{collection.NewKeyValue("Authorization", "Bearer x")}

	got := Generate(req, "curl", nil)
	want := `curl -X GET 'https://example.com' -H 'Authorization: Bearer x'`
	if got != want {
		t.Fatalf("Generate() =\n%s\nwant\n%s", got, want)
	}
}

func TestCurlLongMultilineDouble(t *testing.T) {
	t.Parallel()

	req := collection.NewRequest("r", "post", "https://api.example.com/items")
	req.Headers = []collection.KeyValue{collection.NewKeyValue("Content-Type", "application/json")}
	req.Body = collection.Body{Type: collection.BodyRaw, Raw: `{"name":"$a"}`, RawType: collection.RawJSON}
	opts := &config.CurlOptions{
		Multiline:        true,
		LongForm:         true,
		LineContinuation: `\`,
		QuoteType:        config.QuoteDouble,
		TimeoutSeconds:   10,
		FollowRedirects:  true,
		Silent:           true,
	}

	got := Generate(req, "curl", opts)
	want := heredoc.Doc(`
		curl --request POST "https://api.example.com/items" \
		  --header "Content-Type: application/json" \
		  --data "{\"name\":\"\$a\"}" \
		  --max-time 10 \
		  --location \
		  --silent`)
	if got != want {
		t.Fatalf("Generate() =\n%s\nwant\n%s", got, want)
	}
}

func TestCurlBodies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body collection.Body
		want string
	}{
		{
			name: "urlencoded",
			body: collection.Body{Type: collection.BodyURLEncoded, URLEncoded: []collection.KeyValue{
				collection.NewKeyValue("a", "1"),
				{Key: "off", Value: "x"},
				collection.NewKeyValue("b", "it's"),
			}},
			want: `curl -X POST 'https://x.com' --data-urlencode 'a=1' --data-urlencode 'b=it'\''s'`,
		},
		{
			name: "form-data",
			body: collection.Body{Type: collection.BodyFormData, FormData: []collection.KeyValue{
				collection.NewKeyValue("note", "hi"),
				{Key: "file", Value: "/tmp/a.png", Type: collection.FieldFile, Enabled: true},
			}},
			want: `curl -X POST 'https://x.com' -F 'note=hi' -F 'file=@/tmp/a.png'`,
		},
		{
			name: "binary",
			body: collection.Body{Type: collection.BodyBinary, Binary: "/tmp/blob.bin"},
			want: `curl -X POST 'https://x.com' --data-binary '@/tmp/blob.bin'`,
		},
		{
			name: "graphql",
			body: collection.Body{Type: collection.BodyGraphQL, GraphQL: &collection.GraphQL{
				Query:     "{ me }",
				Variables: `{ "id": 1 }`,
			}},
			want: `curl -X POST 'https://x.com' -H 'Content-Type: application/json' -d '{"query":"{ me }","variables":{"id":1}}'`,
		},
		{
			name: "graphql invalid variables",
			body: collection.Body{Type: collection.BodyGraphQL, GraphQL: &collection.GraphQL{
				Query:     "{ me }",
				Variables: `{ nope`,
			}},
			want: `curl -X POST 'https://x.com' -H 'Content-Type: application/json' -d '{"query":"{ me }"}'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := collection.NewRequest("r", "POST", "https://x.com")
			req.Body = tt.body
			if got := Generate(req, "curl", nil); got != tt.want {
				t.Fatalf("Generate() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestCurlQueryAndAuth(t *testing.T) {
	t.Parallel()

	req := collection.NewRequest("r", "GET", "https://x.com/users/{{id}}")
	req.QueryParams = []collection.KeyValue{
		collection.NewKeyValue("q", "a b"),
		collection.NewKeyValue("env", "{{stage}}"),
		{Key: "skip", Value: "1"},
	}
	req.Auth = &collection.Auth{Type: collection.AuthBasic, Params: map[string]string{"username": "u", "password": "p"}}

	got := Generate(req, "curl", nil)
	want := `curl -X GET 'https://x.com/users/{{id}}?q=a+b&env={{stage}}' -u 'u:p'`
	if got != want {
		t.Fatalf("Generate() =\n%s\nwant\n%s", got, want)
	}

	req.Auth = &collection.Auth{Type: collection.AuthAPIKey, Params: map[string]string{
		"name": "api_key", "value": "k", "placement": "query",
	}}
	req.QueryParams = nil
	if got := Generate(req, "curl", nil); got != `curl -X GET 'https://x.com/users/{{id}}?api_key=k'` {
		t.Fatalf("api key query not applied: %s", got)
	}

	req.Auth = &collection.Auth{Type: collection.AuthBearer, Params: map[string]string{"token": "t"}}
	if got := Generate(req, "curl", nil); !strings.HasSuffix(got, `-H 'Authorization: Bearer t'`) {
		t.Fatalf("bearer header missing: %s", got)
	}
}

func sampleRequests() map[string]*collection.Request {
	get := collection.NewRequest("get", "GET", "https://api.example.com:8443/items?limit=5")
	get.Headers = []collection.KeyValue{collection.NewKeyValue("Accept", "application/json")}
	get.Auth = &collection.Auth{Type: collection.AuthBasic, Params: map[string]string{"username": "u", "password": "p"}}

	raw := collection.NewRequest("raw", "POST", "http://localhost:3000/items")
	raw.Body = collection.Body{Type: collection.BodyRaw, Raw: "{\"note\":\"it's \\\"quoted\\\"\"}", RawType: collection.RawJSON}

	form := collection.NewRequest("form", "PUT", "https://x.com/login")
	form.Body = collection.Body{Type: collection.BodyURLEncoded, URLEncoded: []collection.KeyValue{
		collection.NewKeyValue("user", "admin"),
		collection.NewKeyValue("pass", "a&b"),
	}}

	multipart := collection.NewRequest("multipart", "POST", "https://x.com/upload")
	multipart.Body = collection.Body{Type: collection.BodyFormData, FormData: []collection.KeyValue{
		collection.NewKeyValue("note", "a;b"),
		{Key: "file", Value: "/tmp/photo.jpg", Type: collection.FieldFile, Enabled: true},
	}}

	binary := collection.NewRequest("binary", "POST", "https://x.com/blob")
	binary.Body = collection.Body{Type: collection.BodyBinary, Binary: "/tmp/blob.bin"}

	return map[string]*collection.Request{
		"get": get, "raw": raw, "form": form, "multipart": multipart, "binary": binary,
	}
}

func TestJavaScriptSnippetsCompile(t *testing.T) {
	t.Parallel()

	langs := []Language{LangJavaScript, LangJavaScriptXHR, LangAxios, LangNode}
	for name, req := range sampleRequests() {
		for _, lang := range langs {
			t.Run(name+"/"+string(lang), func(t *testing.T) {
				t.Parallel()
				src := Generate(req, string(lang), nil)
				if strings.HasPrefix(src, errorPrefix) {
					t.Fatalf("Generate() failed: %s", src)
				}
				if _, err := goja.Compile(name+".js", src, false); err != nil {
					t.Fatalf("generated %s does not compile: %v\n%s", lang, err, src)
				}
			})
		}
	}
}

func TestFetchContent(t *testing.T) {
	t.Parallel()

	src := Generate(sampleRequests()["get"], "javascript", nil)
	for _, want := range []string{
		`fetch("https://api.example.com:8443/items?limit=5", {`,
		`method: "GET",`,
		`"Accept": "application/json",`,
		`"Authorization": "Basic dTpw",`,
	} {
		if !strings.Contains(src, want) {
			t.Fatalf("fetch snippet missing %q:\n%s", want, src)
		}
	}
}

func TestNodeContent(t *testing.T) {
	t.Parallel()

	reqs := sampleRequests()
	src := Generate(reqs["get"], "node", nil)
	for _, want := range []string{
		`const https = require("https");`,
		`hostname: "api.example.com",`,
		`port: 8443,`,
		`path: "/items?limit=5",`,
	} {
		if !strings.Contains(src, want) {
			t.Fatalf("node snippet missing %q:\n%s", want, src)
		}
	}

	src = Generate(reqs["multipart"], "node", nil)
	for _, want := range []string{
		`const http`, // substring of https too
		`require("fs")`,
		`multipart/form-data; boundary=` + multipartBoundary,
		`req.write(fs.readFileSync("/tmp/photo.jpg"));`,
		`\r\n\r\na;b\r\n`,
	} {
		if !strings.Contains(src, want) {
			t.Fatalf("node multipart snippet missing %q:\n%s", want, src)
		}
	}

	if src := Generate(reqs["raw"], "node", nil); !strings.Contains(src, `const http = require("http");`) {
		t.Fatalf("plain http url should use the http module:\n%s", src)
	}
}

func TestAxiosContent(t *testing.T) {
	t.Parallel()

	reqs := sampleRequests()
	src := Generate(reqs["form"], "axios", nil)
	for _, want := range []string{
		`method: "put",`,
		`data.append("pass", "a&b");`,
		`"Content-Type": "application/x-www-form-urlencoded",`,
	} {
		if !strings.Contains(src, want) {
			t.Fatalf("axios snippet missing %q:\n%s", want, src)
		}
	}

	src = Generate(reqs["multipart"], "axios", nil)
	if !strings.Contains(src, `fs.createReadStream("/tmp/photo.jpg")`) || !strings.Contains(src, "data.getHeaders()") {
		t.Fatalf("axios multipart snippet incomplete:\n%s", src)
	}
}

func TestXHRContent(t *testing.T) {
	t.Parallel()

	src := Generate(sampleRequests()["raw"], "javascript-xhr", nil)
	for _, want := range []string{
		`xhr.open("POST", "http://localhost:3000/items");`,
		`xhr.setRequestHeader("Content-Type", "application/json");`,
		`xhr.send(body);`,
	} {
		if !strings.Contains(src, want) {
			t.Fatalf("xhr snippet missing %q:\n%s", want, src)
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	t.Parallel()

	req := collection.NewRequest("r", "GET", "https://x.com")
	if got := Generate(req, "cobol", nil); !strings.HasPrefix(got, errorPrefix) || !strings.Contains(got, "cobol") {
		t.Fatalf("unexpected output for unknown language: %q", got)
	}

	empty := collection.NewRequest("r", "GET", "")
	if got := Generate(empty, "javascript", nil); !strings.HasPrefix(got, "// Error generating snippet: ") {
		t.Fatalf("expected inline error, got %q", got)
	}
}
