package curl

import (
	"strings"
	"testing"
	"time"

	"github.com/MakeNowJust/heredoc"
)

func mustParse(t *testing.T, cmd string) Command {
	t.Helper()
	c, err := ParseCommand(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestParseCommandSimpleGET(t *testing.T) {
	req := mustParse(t, "curl https://example.com")
	if req.Method != "GET" {
		t.Fatalf("expected GET, got %s", req.Method)
	}
	if req.URL != "https://example.com" {
		t.Fatalf("unexpected url %q", req.URL)
	}
	if req.Body.Kind != BodyNone {
		t.Fatalf("expected no body, got %s", req.Body.Kind)
	}
}

func TestParseCommandWithHeadersAndBody(t *testing.T) {
	cmd := "curl -X POST https://api.example.com/users -H 'Content-Type: application/json' --data '{\"name\":\"Sam\"}'"
	req := mustParse(t, cmd)
	if req.Method != "POST" {
		t.Fatalf("expected POST, got %s", req.Method)
	}
	if got := req.Headers.Get("content-type"); got != "application/json" {
		t.Fatalf("expected json content type, got %q", got)
	}
	if req.Body.Kind != BodyRaw || req.Body.Raw != "{\"name\":\"Sam\"}" {
		t.Fatalf("unexpected body %+v", req.Body)
	}
}

func TestParseCommandKeepsHeaderOrder(t *testing.T) {
	req := mustParse(t, "curl https://x.test -H 'B: 2' -H 'A: 1' -H 'B: 3'")
	var names []string
	for _, h := range req.Headers {
		names = append(names, h.Name+"="+h.Value)
	}
	if strings.Join(names, ",") != "B=2,A=1,B=3" {
		t.Fatalf("unexpected header order %v", names)
	}
}

func TestParseCommandImplicitPost(t *testing.T) {
	req := mustParse(t, "curl https://example.com --data foo=bar")
	if req.Method != "POST" {
		t.Fatalf("expected POST fallback when data provided, got %s", req.Method)
	}
}

func TestParseCommandBasicAuth(t *testing.T) {
	req := mustParse(t, "curl https://example.com -u user:pass")
	user, pass, ok := req.BasicAuth()
	if !ok || user != "user" || pass != "pass" {
		t.Fatalf("unexpected credentials %q %q %v", user, pass, ok)
	}
	if req.Headers.Get("Authorization") != "" {
		t.Fatalf("expected auth header to be empty")
	}
}

func TestParseCommandDataFile(t *testing.T) {
	for _, cmd := range []string{
		"curl https://example.com --data @payload.json",
		"curl https://example.com --data-binary @payload.json",
	} {
		req := mustParse(t, cmd)
		if req.Body.Kind != BodyFile || req.Body.File != "payload.json" {
			t.Fatalf("%s: expected file body, got %+v", cmd, req.Body)
		}
	}
}

func TestParseCommandCompressedAddsHeader(t *testing.T) {
	req := mustParse(t, "curl --compressed https://example.com")
	if req.Headers.Get("Accept-Encoding") == "" {
		t.Fatalf("expected accept-encoding header to be set")
	}
}

func TestParseCommandPromptPrefix(t *testing.T) {
	req := mustParse(t, "$ curl https://api.example.com")
	if req.URL != "https://api.example.com" {
		t.Fatalf("unexpected url %q", req.URL)
	}
}

func TestParseCommandSudoHead(t *testing.T) {
	req := mustParse(t, "sudo curl -I https://example.com")
	if req.Method != "HEAD" {
		t.Fatalf("expected HEAD, got %s", req.Method)
	}
}

func TestParseCommandFormEncoded(t *testing.T) {
	req := mustParse(t, "curl https://example.com --data foo=bar --data 'baz=two%20words'")
	if req.Method != "POST" {
		t.Fatalf("expected POST, got %s", req.Method)
	}
	if req.Headers.Get("Content-Type") != "application/x-www-form-urlencoded" {
		t.Fatalf("expected form urlencoded header, got %q", req.Headers.Get("Content-Type"))
	}
	if req.Body.Kind != BodyForm || len(req.Body.Form) != 2 {
		t.Fatalf("unexpected form body %+v", req.Body)
	}
	if req.Body.Form[1] != (Field{Name: "baz", Value: "two words"}) {
		t.Fatalf("expected decoded form value, got %+v", req.Body.Form[1])
	}
	if req.Body.Raw != "foo=bar&baz=two%20words" {
		t.Fatalf("unexpected wire body %q", req.Body.Raw)
	}
}

func TestParseCommandFormWithJSONContentTypeStaysRaw(t *testing.T) {
	req := mustParse(t, "curl https://example.com -H 'Content-Type: application/json' -d 'a=b'")
	if req.Body.Kind != BodyRaw || req.Body.Raw != "a=b" {
		t.Fatalf("expected raw body, got %+v", req.Body)
	}
}

func TestParseCommandJSONWithEqualsIsRaw(t *testing.T) {
	req := mustParse(t, `curl https://example.com -d '{"q":"a=b"}'`)
	if req.Body.Kind != BodyRaw {
		t.Fatalf("expected raw body, got %s", req.Body.Kind)
	}
	if req.Headers.Has("Content-Type") {
		t.Fatalf("raw data should not add a content type")
	}
}

func TestParseCommandDataUrlencode(t *testing.T) {
	req := mustParse(t, "curl https://example.com --data-urlencode 'note=hello world'")
	if req.Headers.Get("Content-Type") != "application/x-www-form-urlencoded" {
		t.Fatalf("expected form urlencoded header, got %q", req.Headers.Get("Content-Type"))
	}
	if len(req.Body.Form) != 1 || req.Body.Form[0].Value != "hello world" {
		t.Fatalf("unexpected form %+v", req.Body.Form)
	}
	if req.Body.Raw != "note=hello+world" {
		t.Fatalf("unexpected urlencode body %q", req.Body.Raw)
	}
}

func TestParseCommandMultipart(t *testing.T) {
	req := mustParse(t, "curl https://example.com -F file=@payload.json -F 'caption=hello;type=text/plain'")
	if req.Body.Kind != BodyMultipart || len(req.Body.Parts) != 2 {
		t.Fatalf("unexpected multipart body %+v", req.Body)
	}
	file := req.Body.Parts[0]
	if !file.IsFile() || file.File != "payload.json" || file.Filename != "payload.json" ||
		file.ContentType != mimeOctetStream {
		t.Fatalf("unexpected file part %+v", file)
	}
	caption := req.Body.Parts[1]
	if caption.IsFile() || caption.Value != "hello" || caption.ContentType != "text/plain" {
		t.Fatalf("unexpected text part %+v", caption)
	}
	if req.Method != "POST" {
		t.Fatalf("expected POST, got %s", req.Method)
	}
}

func TestParseCommandFormStringIsLiteral(t *testing.T) {
	req := mustParse(t, "curl https://example.com --form-string 'note=@not-a-file;type=x'")
	part := req.Body.Parts[0]
	if part.IsFile() || part.Value != "@not-a-file;type=x" {
		t.Fatalf("unexpected literal part %+v", part)
	}
}

func TestParseCommandMixedBodyFlagsConflict(t *testing.T) {
	if _, err := ParseCommand("curl https://example.com -d a=b -F c=d"); err == nil {
		t.Fatalf("expected conflict error")
	}
}

func TestParseCommandMultilineJSON(t *testing.T) {
	cmd := heredoc.Doc(`
		curl https://example.com -d '{
		  "foo": "bar"
		}'`)
	req := mustParse(t, cmd)
	if req.Method != "POST" {
		t.Fatalf("expected POST, got %s", req.Method)
	}
	if !strings.Contains(req.Body.Raw, "\n  \"foo\": \"bar\"\n") {
		t.Fatalf("expected multiline body, got %q", req.Body.Raw)
	}
}

func TestParseCommandDataRawSegments(t *testing.T) {
	req := mustParse(t, "curl https://example.com --data-raw alpha --data-raw beta")
	if req.Body.Raw != "alpha&beta" {
		t.Fatalf("unexpected raw body %q", req.Body.Raw)
	}
}

func TestParseCommandJsonShortcut(t *testing.T) {
	req := mustParse(t, "curl https://example.com --json '{\"ok\":true}'")
	if req.Headers.Get("Content-Type") != "application/json" || req.Headers.Get("Accept") != "application/json" {
		t.Fatalf("expected json headers, got %+v", req.Headers)
	}
	if req.Body.Raw != "{\"ok\":true}" {
		t.Fatalf("unexpected json body %q", req.Body.Raw)
	}
}

func TestParseCommandHeaderShortcuts(t *testing.T) {
	req := mustParse(t, "curl https://example.com -A agent -b a=b -e https://ref.test")
	if req.Headers.Get("User-Agent") != "agent" {
		t.Fatalf("expected user-agent header, got %q", req.Headers.Get("User-Agent"))
	}
	if req.Headers.Get("Cookie") != "a=b" {
		t.Fatalf("expected cookie header, got %q", req.Headers.Get("Cookie"))
	}
	if req.Headers.Get("Referer") != "https://ref.test" {
		t.Fatalf("expected referer header, got %q", req.Headers.Get("Referer"))
	}
}

func TestParseCommandUploadFile(t *testing.T) {
	req := mustParse(t, "curl https://example.com -T payload.json")
	if req.Method != "PUT" {
		t.Fatalf("expected PUT, got %s", req.Method)
	}
	if req.Body.File != "payload.json" {
		t.Fatalf("expected file body, got %q", req.Body.File)
	}
}

func TestParseCommandTransportOptions(t *testing.T) {
	cmd := "curl https://example.com -k -L -s -x http://proxy --max-time 2.5 --cacert ca.pem --cert c.pem --key k.pem --connect-timeout 3 --max-redirs 7 --retry 2"
	req := mustParse(t, cmd)
	if !req.Insecure || !req.FollowRedirects {
		t.Fatalf("expected insecure and follow redirects, got %+v", req)
	}
	if req.Proxy != "http://proxy" {
		t.Fatalf("expected proxy, got %q", req.Proxy)
	}
	if req.Timeout != 2500*time.Millisecond {
		t.Fatalf("expected timeout 2.5s, got %s", req.Timeout)
	}
	if req.CACert != "ca.pem" || req.Cert != "c.pem" || req.Key != "k.pem" {
		t.Fatalf("unexpected tls files %q %q %q", req.CACert, req.Cert, req.Key)
	}
	want := []string{
		"unsupported flag --connect-timeout (ignored)",
		"unsupported flag --max-redirs (ignored)",
		"unsupported flag --retry (ignored)",
	}
	if strings.Join(req.Warnings, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected warnings %v", req.Warnings)
	}
}

func TestParseCommandInvalidTimeout(t *testing.T) {
	if _, err := ParseCommand("curl https://example.com --max-time soon"); err == nil {
		t.Fatalf("expected invalid timeout error")
	}
}

func TestSplitTokensAnsiQuote(t *testing.T) {
	tok, err := splitTokens("curl $'foo\\nbar'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tok) != 2 {
		t.Fatalf("unexpected token count: %d", len(tok))
	}
	if tok[1] != "foo\nbar" {
		t.Fatalf("unexpected ansi token: %q", tok[1])
	}
}

func TestSplitTokensAnsiHex(t *testing.T) {
	tok, err := splitTokens("curl $'foo\\x41bar'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tok) != 2 || tok[1] != "fooAbar" {
		t.Fatalf("unexpected ansi hex tokens: %q", tok)
	}
}

func TestSplitTokensUnterminatedQuote(t *testing.T) {
	if _, err := splitTokens("curl 'https://x.test"); err == nil {
		t.Fatalf("expected unterminated quote error")
	}
}

func TestParseCommandLineContinuation(t *testing.T) {
	cmd := "curl https://example.com \\\n -H 'X-Test: 1'"
	req := mustParse(t, cmd)
	if req.Headers.Get("X-Test") != "1" {
		t.Fatalf("expected header from continuation, got %q", req.Headers.Get("X-Test"))
	}
}

func TestParseCommandSplitsQuery(t *testing.T) {
	req := mustParse(t, "curl 'https://example.com/search?q=two%20words&page=2&flag'")
	if req.URL != "https://example.com/search" {
		t.Fatalf("unexpected url %q", req.URL)
	}
	want := []Field{{Name: "q", Value: "two words"}, {Name: "page", Value: "2"}, {Name: "flag"}}
	if len(req.Queries) != len(want) {
		t.Fatalf("unexpected queries %+v", req.Queries)
	}
	for i := range want {
		if req.Queries[i] != want[i] {
			t.Fatalf("query %d: got %+v want %+v", i, req.Queries[i], want[i])
		}
	}
}

func TestParseCommandKeepsPlaceholders(t *testing.T) {
	req := mustParse(t, "curl '{{base}}/users/{{id}}?token={{token}}'")
	if req.URL != "{{base}}/users/{{id}}" {
		t.Fatalf("unexpected url %q", req.URL)
	}
	if len(req.Queries) != 1 || req.Queries[0].Value != "{{token}}" {
		t.Fatalf("unexpected queries %+v", req.Queries)
	}
}

func TestParseCommandGetQuery(t *testing.T) {
	req := mustParse(t, "curl -G https://example.com -d foo=bar")
	if req.Method != "GET" {
		t.Fatalf("expected GET, got %s", req.Method)
	}
	if req.RawURL() != "https://example.com?foo=bar" {
		t.Fatalf("unexpected url %q", req.RawURL())
	}
	if req.Body.Kind != BodyNone {
		t.Fatalf("expected empty body, got %+v", req.Body)
	}
}

func TestParseCommandsNext(t *testing.T) {
	reqs, err := ParseCommands("curl https://a.test --next -X DELETE https://b.test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	if reqs[0].URL != "https://a.test" || reqs[1].URL != "https://b.test" {
		t.Fatalf("unexpected urls %q %q", reqs[0].URL, reqs[1].URL)
	}
	if reqs[1].Method != "DELETE" {
		t.Fatalf("expected DELETE, got %s", reqs[1].Method)
	}
}

func TestParseCommandNotCurl(t *testing.T) {
	if _, err := ParseCommands("wget https://example.com"); err == nil {
		t.Fatalf("expected error for non-curl command")
	}
}

func TestParseScriptSkipsBrokenCommands(t *testing.T) {
	src := heredoc.Doc(`
		curl https://a.test

		curl https://b.test --max-time never

		curl -X POST https://c.test -d x=1
	`)
	cmds, errs := ParseScript(src)
	if len(cmds) != 2 || len(errs) != 1 {
		t.Fatalf("expected 2 commands and 1 error, got %d and %v", len(cmds), errs)
	}
	if cmds[1].Method != "POST" || cmds[1].URL != "https://c.test" {
		t.Fatalf("unexpected second command %+v", cmds[1])
	}
}

func TestHeadersSetReplacesAllCases(t *testing.T) {
	h := Headers{{Name: "accept", Value: "a"}, {Name: "X", Value: "1"}, {Name: "Accept", Value: "b"}}
	h.Set("ACCEPT", "c")
	if len(h) != 2 || h[0] != (Header{Name: "accept", Value: "c"}) {
		t.Fatalf("unexpected headers %+v", h)
	}
}
