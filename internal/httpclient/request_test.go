package httpclient

import (
	"bytes"
	"mime"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/unkn0wn-root/restbench/internal/collection"
	"github.com/unkn0wn-root/restbench/internal/config"
	"github.com/unkn0wn-root/restbench/internal/tlsconfig"
)

func kv(key, value string, enabled bool) collection.KeyValue {
	return collection.KeyValue{Key: key, Value: value, Enabled: enabled}
}

func defaults() *config.Settings {
	s := config.WithDefaults(config.Partial{})
	return &s
}

func TestAssembleSubstitutesAndSkipsDisabled(t *testing.T) {
	t.Parallel()
	req := collection.NewRequest("get user", "get", "{{base}}/users/{{id}}")
	req.QueryParams = []collection.KeyValue{
		kv("q", "{{id}}", true),
		kv("skip", "1", false),
	}
	req.Headers = []collection.KeyValue{
		kv("X-User", "{{id}}", true),
		kv("X-Off", "1", false),
	}
	env := []collection.KeyValue{
		kv("base", "https://api.test", true),
		kv("id", "7", true),
		kv("id", "9", false),
	}

	desc, err := NewAssembler(WithAssemblerLogger(quietLogger())).Assemble(req, env, defaults())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if desc.Method != http.MethodGet {
		t.Fatalf("expected upper-cased method, got %q", desc.Method)
	}
	if got := desc.FullURL(); got != "https://api.test/users/7?q=7" {
		t.Fatalf("unexpected url %q", got)
	}
	if desc.Header.Get("X-User") != "7" {
		t.Fatalf("expected substituted header, got %v", desc.Header)
	}
	if _, ok := desc.Header["X-Off"]; ok {
		t.Fatalf("disabled header should be excluded")
	}
	if desc.Timeout != 30*time.Second {
		t.Fatalf("expected default timeout, got %s", desc.Timeout)
	}
	if desc.ClientCertsConfigured {
		t.Fatalf("no client certificates configured")
	}
}

func TestFullURLAppendsToExistingQuery(t *testing.T) {
	t.Parallel()
	d := &Descriptor{URL: "example.com/a?x=1", Query: map[string][]string{"b": {"2"}}}
	if got := d.FullURL(); got != "http://example.com/a?x=1&b=2" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestAssembleDefaultHeadersAreCaseInsensitive(t *testing.T) {
	t.Parallel()
	req := collection.NewRequest("r", "GET", "https://api.test")
	req.Headers = []collection.KeyValue{kv("x-trace", "mine", true)}
	req.Auth = &collection.Auth{Type: collection.AuthBearer, Params: map[string]string{"token": "tok"}}
	settings := defaults()
	settings.General.DefaultHeaders = []collection.KeyValue{
		kv("X-Trace", "default", true),
		kv("Accept", "*/*", true),
		kv("Authorization", "Bearer default", true),
		kv("X-Disabled", "1", false),
	}

	desc, err := NewAssembler(WithAssemblerLogger(quietLogger())).Assemble(req, nil, settings)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if got := desc.Header.Values("X-Trace"); len(got) != 1 || got[0] != "mine" {
		t.Fatalf("request header should win, got %v", got)
	}
	if desc.Header.Get("Accept") != "*/*" {
		t.Fatalf("expected default Accept header")
	}
	if desc.Header.Get("Authorization") != "Bearer tok" {
		t.Fatalf("auth should be applied before defaults, got %q", desc.Header.Get("Authorization"))
	}
	if desc.Header.Get("X-Disabled") != "" {
		t.Fatalf("disabled default header should be skipped")
	}
}

func TestAssembleAuth(t *testing.T) {
	t.Parallel()
	a := NewAssembler(WithAssemblerLogger(quietLogger()))

	basic := collection.NewRequest("basic", "GET", "https://api.test")
	basic.Auth = &collection.Auth{
		Type:   collection.AuthBasic,
		Params: map[string]string{"username": "{{user}}", "password": "pw"},
	}
	desc, err := a.Assemble(basic, []collection.KeyValue{kv("user", "ann", true)}, defaults())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if got := desc.Header.Get("Authorization"); got != "Basic YW5uOnB3" {
		t.Fatalf("unexpected basic auth %q", got)
	}

	apiKey := collection.NewRequest("key", "GET", "https://api.test")
	apiKey.Auth = &collection.Auth{
		Type:   collection.AuthAPIKey,
		Params: map[string]string{"name": "api_key", "value": "s3cret", "placement": "query"},
	}
	desc, err = a.Assemble(apiKey, nil, defaults())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if desc.Query.Get("api_key") != "s3cret" {
		t.Fatalf("expected api key in query, got %v", desc.Query)
	}
}

func TestAssembleURLEncodedKeepsOrder(t *testing.T) {
	t.Parallel()
	req := collection.NewRequest("form", "POST", "https://api.test")
	req.Body = collection.Body{
		Type: collection.BodyURLEncoded,
		URLEncoded: []collection.KeyValue{
			kv("b", "two words", true),
			kv("a", "{{v}}", true),
			kv("off", "x", false),
		},
	}
	desc, err := NewAssembler(WithAssemblerLogger(quietLogger())).
		Assemble(req, []collection.KeyValue{kv("v", "1&2", true)}, defaults())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if got := string(desc.Body); got != "b=two+words&a=1%262" {
		t.Fatalf("unexpected form body %q", got)
	}
	if desc.Header.Get("Content-Type") != contentTypeForm {
		t.Fatalf("unexpected content type %q", desc.Header.Get("Content-Type"))
	}
}

func TestAssembleMultipart(t *testing.T) {
	t.Parallel()
	fsys := mapFS{"a.txt": []byte("file contents")}
	req := collection.NewRequest("upload", "POST", "https://api.test/upload")
	req.Headers = []collection.KeyValue{kv("Content-Type", "text/plain", true)}
	req.Body = collection.Body{
		Type: collection.BodyFormData,
		FormData: []collection.KeyValue{
			kv("name", "{{who}}", true),
			{Key: "upload", Value: "a.txt", Type: collection.FieldFile, Enabled: true},
			{Key: "missing", Value: "nope.bin", Type: collection.FieldFile, Enabled: true},
		},
	}
	a := NewAssembler(WithAssemblerFS(fsys), WithAssemblerLogger(quietLogger()))
	desc, err := a.Assemble(req, []collection.KeyValue{kv("who", "ann", true)}, defaults())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	mediaType, params, err := mime.ParseMediaType(desc.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("expected multipart content type, got %q (%v)", desc.Header.Get("Content-Type"), err)
	}
	form, err := multipart.NewReader(bytes.NewReader(desc.Body), params["boundary"]).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	if got := form.Value["name"]; len(got) != 1 || got[0] != "ann" {
		t.Fatalf("unexpected text field %v", got)
	}
	files := form.File["upload"]
	if len(files) != 1 || files[0].Filename != "a.txt" {
		t.Fatalf("unexpected file parts %v", files)
	}
	if _, ok := form.File["missing"]; ok {
		t.Fatalf("unreadable file should be skipped")
	}
}

func TestAssembleGraphQLDropsInvalidVariables(t *testing.T) {
	t.Parallel()
	a := NewAssembler(WithAssemblerLogger(quietLogger()))
	req := collection.NewRequest("gql", "POST", "https://api.test/graphql")
	req.Body = collection.Body{
		Type:    collection.BodyGraphQL,
		GraphQL: &collection.GraphQL{Query: "{ user(id: $id) { name } }", Variables: `{"id": {{id}}}`},
	}
	desc, err := a.Assemble(req, []collection.KeyValue{kv("id", "5", true)}, defaults())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(desc.Body, &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if vars, ok := payload["variables"].(map[string]any); !ok || vars["id"] != float64(5) {
		t.Fatalf("unexpected variables %v", payload["variables"])
	}

	req.Body.GraphQL.Variables = "{not json"
	desc, err = a.Assemble(req, nil, defaults())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	payload = nil
	if err := json.Unmarshal(desc.Body, &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if _, ok := payload["variables"]; ok {
		t.Fatalf("invalid variables should be omitted, got %v", payload)
	}
	if desc.Header.Get("Content-Type") != contentTypeJSON {
		t.Fatalf("expected json content type")
	}
}

func TestAssembleRawDefaultsContentType(t *testing.T) {
	t.Parallel()
	req := collection.NewRequest("raw", "POST", "https://api.test")
	req.Body = collection.Body{Type: collection.BodyRaw, Raw: `{"id":"{{id}}"}`, RawType: collection.RawJSON}
	desc, err := NewAssembler(WithAssemblerLogger(quietLogger())).
		Assemble(req, []collection.KeyValue{kv("id", "x", true)}, defaults())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if string(desc.Body) != `{"id":"x"}` || desc.Header.Get("Content-Type") != contentTypeJSON {
		t.Fatalf("unexpected raw body %q / %q", desc.Body, desc.Header.Get("Content-Type"))
	}
}

func TestBinaryBodyReadAtSend(t *testing.T) {
	t.Parallel()
	fsys := mapFS{"/data/blob.bin": []byte{0x00, 0x01}}
	req := collection.NewRequest("bin", "PUT", "https://api.test/blob")
	req.Body = collection.Body{Type: collection.BodyBinary, Binary: "blob.bin"}
	a := NewAssembler(WithAssemblerFS(fsys), WithBaseDir("/data"), WithAssemblerLogger(quietLogger()))
	desc, err := a.Assemble(req, nil, defaults())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if desc.BodyFile != "/data/blob.bin" || desc.Body != nil {
		t.Fatalf("binary body should be deferred, got file %q body %v", desc.BodyFile, desc.Body)
	}
	payload, err := desc.payload(fsys)
	if err != nil || !bytes.Equal(payload, []byte{0x00, 0x01}) {
		t.Fatalf("unexpected payload %v (%v)", payload, err)
	}
}

func TestAssembleSelectsClientCertificate(t *testing.T) {
	t.Parallel()
	settings := defaults()
	settings.Certificates.Client = []config.ClientCertificate{
		{Host: "(", CRT: "bad.crt", Key: "bad.key"},
		{Host: `.*\.example\.com`, CRT: "wild.crt", Key: "wild.key"},
		{Host: "api.example.com", CRT: "api.crt", Key: "api.key"},
	}
	a := NewAssembler(WithAssemblerFS(mapFS{}), WithAssemblerLogger(quietLogger()))

	cases := []struct {
		url   string
		index int
		kind  tlsconfig.MatchKind
	}{
		{url: "https://api.example.com/v1", index: 2, kind: tlsconfig.MatchExact},
		{url: "https://web.example.com", index: 1, kind: tlsconfig.MatchPattern},
		{url: "https://other.test", index: -1},
	}
	for _, tc := range cases {
		req := collection.NewRequest("r", "GET", tc.url)
		desc, err := a.Assemble(req, nil, settings)
		if err != nil {
			t.Fatalf("Assemble %s: %v", tc.url, err)
		}
		if !desc.ClientCertsConfigured {
			t.Fatalf("%s: expected client certs configured", tc.url)
		}
		if desc.TLS == nil {
			t.Fatalf("%s: expected tls config", tc.url)
		}
		if tc.index < 0 {
			if desc.ClientCert != nil {
				t.Fatalf("%s: expected no selection, got %+v", tc.url, desc.ClientCert)
			}
			continue
		}
		if desc.ClientCert == nil || desc.ClientCert.Index != tc.index || desc.ClientCert.Match != tc.kind {
			t.Fatalf("%s: unexpected selection %+v", tc.url, desc.ClientCert)
		}
	}
}

func TestAssembleInsecureWhenVerificationDisabled(t *testing.T) {
	t.Parallel()
	settings := defaults()
	settings.General.SSLVerification = false
	desc, err := NewAssembler(WithAssemblerLogger(quietLogger())).
		Assemble(collection.NewRequest("r", "GET", "https://self-signed.test"), nil, settings)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if desc.TLS == nil || !desc.TLS.InsecureSkipVerify {
		t.Fatalf("expected InsecureSkipVerify")
	}
}
