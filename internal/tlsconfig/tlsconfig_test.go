package tlsconfig

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMatchHost(t *testing.T) {
	t.Parallel()

	cases := []struct {
		pattern string
		host    string
		kind    MatchKind
		invalid bool
	}{
		{"api.example.com", "api.example.com", MatchExact, false},
		{`.*\.example\.com`, "api.example.com", MatchPattern, false},
		{"example", "api.example.com", MatchPattern, false},
		{"other.com", "api.example.com", MatchNone, false},
		{"[invalid", "api.example.com", MatchNone, true},
		{"", "api.example.com", MatchNone, false},
	}
	for _, tc := range cases {
		m := MatchHost(tc.pattern, tc.host)
		if m.Kind != tc.kind {
			t.Fatalf("MatchHost(%q, %q) = %s, want %s", tc.pattern, tc.host, m.Kind, tc.kind)
		}
		if (m.Err != nil) != tc.invalid {
			t.Fatalf("MatchHost(%q) err = %v, want invalid=%v", tc.pattern, m.Err, tc.invalid)
		}
	}
}

func TestSelectPrefersExactOverEarlierPattern(t *testing.T) {
	t.Parallel()

	patterns := []string{`.*`, "[bad", "api.example.com"}
	idx, m, skipped := Select(patterns, "api.example.com")
	if idx != 2 || m.Kind != MatchExact {
		t.Fatalf("expected exact match at 2, got %d %s", idx, m.Kind)
	}
	if len(skipped) != 0 {
		t.Fatalf("exact stage should not report skipped patterns")
	}

	idx, m, skipped = Select([]string{"[bad", `^api\.`}, "api.internal")
	if idx != 1 || m.Kind != MatchPattern {
		t.Fatalf("expected pattern match at 1, got %d %s", idx, m.Kind)
	}
	if len(skipped) != 1 || skipped[0].Pattern != "[bad" {
		t.Fatalf("expected invalid pattern to be reported, got %+v", skipped)
	}

	if idx, _, _ := Select([]string{"x"}, ""); idx != -1 {
		t.Fatalf("empty host must not match")
	}
}

func TestBuildSkipsMissingCA(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	certPEM, _ := selfSigned(t)
	caPath := filepath.Join(dir, "ca.pem")
	if err := os.WriteFile(caPath, certPEM, 0o600); err != nil {
		t.Fatalf("write ca: %v", err)
	}

	var logs bytes.Buffer
	loader := Loader{Logger: slog.New(slog.NewTextHandler(&logs, nil)), BaseDir: dir}
	cfg := loader.Build(Files{
		RootCAs:  []string{"missing.pem", "ca.pem"},
		RootMode: RootModeReplace,
	})
	if cfg.RootCAs == nil {
		t.Fatalf("expected root pool with the readable CA")
	}
	if !strings.Contains(logs.String(), "missing.pem") {
		t.Fatalf("expected missing CA to be logged, got %q", logs.String())
	}
	if cfg.InsecureSkipVerify {
		t.Fatalf("verification should stay on")
	}
}

func TestBuildLoadsClientKeyPair(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	certPEM, keyPEM := selfSigned(t)
	if err := os.WriteFile(filepath.Join(dir, "client.crt"), certPEM, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "client.key"), keyPEM, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Loader{BaseDir: dir}.Build(Files{
		Client:   &ClientFiles{CRT: "client.crt", Key: "client.key"},
		Insecure: true,
	})
	if len(cfg.Certificates) != 1 {
		t.Fatalf("expected client certificate to load")
	}
	if !cfg.InsecureSkipVerify {
		t.Fatalf("expected insecure flag to carry over")
	}
}

func TestBuildLogsBadClientCertificate(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	loader := Loader{Logger: slog.New(slog.NewTextHandler(&logs, nil)), BaseDir: t.TempDir()}
	cfg := loader.Build(Files{Client: &ClientFiles{PFX: "nope.pfx", Passphrase: "x"}})
	if len(cfg.Certificates) != 0 {
		t.Fatalf("expected no certificates")
	}
	if !strings.Contains(logs.String(), "client certificate not loaded") {
		t.Fatalf("expected warning, got %q", logs.String())
	}
}

func TestDecodePFXRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := decodePFX([]byte("not a pfx"), "pw"); err == nil {
		t.Fatalf("expected error")
	}
}

func selfSigned(t *testing.T) ([]byte, []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "restbench test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM
}
