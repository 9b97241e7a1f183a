package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MakeNowJust/heredoc"
)

func TestWithDefaultsEmpty(t *testing.T) {
	t.Parallel()

	s := WithDefaults(Partial{})
	if s.Version != CurrentVersion {
		t.Fatalf("expected version %d, got %d", CurrentVersion, s.Version)
	}
	if s.General.TimeoutMS != DefaultTimeoutMS || s.General.MaxResponseSize != DefaultMaxResponseSize {
		t.Fatalf("unexpected general defaults %+v", s.General)
	}
	if !s.General.SSLVerification || !s.General.AutoSave {
		t.Fatalf("expected verification and autosave on by default")
	}
	if s.Curl.QuoteType != QuoteSingle || s.Curl.LineContinuation != `\` || s.Curl.LongForm {
		t.Fatalf("unexpected curl defaults %+v", s.Curl)
	}
	if s.Proxy.Enabled {
		t.Fatalf("proxy should be disabled by default")
	}
}

func TestWithDefaultsKeepsExplicitFalse(t *testing.T) {
	t.Parallel()

	off := false
	zero := int64(0)
	s := WithDefaults(Partial{General: &PartialGeneral{
		SSLVerification: &off,
		Timeout:         &zero,
		DefaultHeaders:  []DefaultHeader{{Key: " X-Trace ", Value: "1"}},
	}})
	if s.General.SSLVerification {
		t.Fatalf("explicit false must survive defaults")
	}
	if s.General.TimeoutMS != 0 {
		t.Fatalf("explicit zero timeout must survive defaults, got %d", s.General.TimeoutMS)
	}
	if len(s.General.DefaultHeaders) != 1 {
		t.Fatalf("expected one default header")
	}
	h := s.General.DefaultHeaders[0]
	if h.Key != "X-Trace" || !h.Enabled || h.ID == "" {
		t.Fatalf("unexpected default header %+v", h)
	}
}

func TestWithDefaultsProxyEnabledByURL(t *testing.T) {
	t.Parallel()

	s := WithDefaults(Partial{Proxy: &PartialProxy{URL: "http://proxy:3128"}})
	if !s.Proxy.Enabled || s.Proxy.URL != "http://proxy:3128" {
		t.Fatalf("unexpected proxy %+v", s.Proxy)
	}
}

func TestLoadSettingsDefaultsWhenMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	settings, handle, err := LoadSettings(dir)
	if err != nil {
		t.Fatalf("LoadSettings returned error: %v", err)
	}
	if handle.Path != filepath.Join(dir, "settings.toml") || handle.Format != SettingsFormatTOML {
		t.Fatalf("unexpected handle %+v", handle)
	}
	if settings.General.TimeoutMS != DefaultTimeoutMS {
		t.Fatalf("expected default timeout")
	}
}

func TestLoadSettingsTOML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := heredoc.Doc(`
		version = 1

		[general]
		timeout = 5000
		ssl_verification = false

		[[general.default_headers]]
		key = "User-Agent"
		value = "restbench"

		[certificates]
		ca = ["/etc/ssl/custom.pem"]

		[[certificates.client]]
		host = "api.internal"
		crt = "client.crt"
		key = "client.key"

		[curl]
		long_form = true
		quote_type = "double"
	`)
	if err := os.WriteFile(filepath.Join(dir, "settings.toml"), []byte(src), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, _, err := LoadSettings(dir)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.General.TimeoutMS != 5000 || s.General.SSLVerification {
		t.Fatalf("unexpected general %+v", s.General)
	}
	if len(s.Certificates.Client) != 1 || s.Certificates.Client[0].Host != "api.internal" {
		t.Fatalf("unexpected certificates %+v", s.Certificates)
	}
	if !s.Curl.LongForm || s.Curl.QuoteType != QuoteDouble {
		t.Fatalf("unexpected curl %+v", s.Curl)
	}
	if len(s.General.DefaultHeaders) != 1 || s.General.DefaultHeaders[0].Value != "restbench" {
		t.Fatalf("unexpected default headers %+v", s.General.DefaultHeaders)
	}
}

func TestLoadSettingsRejectsUnknownJSONField(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := []byte(`{"general":{"timeout":1000,"bogus":true}}`)
	if err := os.WriteFile(filepath.Join(dir, "settings.json"), data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := LoadSettings(dir); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestLoadSettingsRejectsNewerVersion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "settings.json"), []byte(`{"version":9}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := LoadSettings(dir); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	for _, format := range []SettingsFormat{SettingsFormatTOML, SettingsFormatJSON} {
		dir := t.TempDir()
		want := WithDefaults(Partial{})
		want.General.TimeoutMS = 1234
		want.Curl.Silent = true
		want.Certificates.CA = []string{"ca.pem"}

		handle := SettingsHandle{Path: filepath.Join(dir, "settings."+string(format)), Format: format}
		if err := SaveSettings(want, handle); err != nil {
			t.Fatalf("SaveSettings(%s): %v", format, err)
		}
		got, gotHandle, err := LoadSettings(dir)
		if err != nil {
			t.Fatalf("LoadSettings(%s): %v", format, err)
		}
		if gotHandle.Format != format {
			t.Fatalf("expected %s handle, got %s", format, gotHandle.Format)
		}
		if got.General.TimeoutMS != 1234 || !got.Curl.Silent || len(got.Certificates.CA) != 1 {
			t.Fatalf("round trip mismatch (%s): %+v", format, got)
		}
	}
}
