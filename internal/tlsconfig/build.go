package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pkcs12"

	"github.com/unkn0wn-root/restbench/internal/errdef"
)

type RootMode string

const (
	RootModeAppend  RootMode = "append"
	RootModeReplace RootMode = "replace"
)

type FileReader interface {
	ReadFile(name string) ([]byte, error)
}

type osReader struct{}

func (osReader) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

// ClientFiles names the material for one client certificate. PFX wins over
// the CRT/KEY pair when both are set.
type ClientFiles struct {
	CRT        string
	Key        string
	PFX        string
	Passphrase string
}

func (c ClientFiles) Empty() bool {
	return c.PFX == "" && (c.CRT == "" || c.Key == "")
}

type Files struct {
	RootCAs  []string
	RootMode RootMode
	Client   *ClientFiles
	Insecure bool
}

type Loader struct {
	FS      FileReader
	Logger  *slog.Logger
	BaseDir string
}

func (l Loader) reader() FileReader {
	if l.FS == nil {
		return osReader{}
	}
	return l.FS
}

func (l Loader) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func (l Loader) resolve(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || filepath.IsAbs(path) || l.BaseDir == "" {
		return path
	}
	return filepath.Join(l.BaseDir, path)
}

// Build never fails: unreadable CA files and client certificates are
// logged and left out, and the request proceeds with what did load.
func (l Loader) Build(files Files) *tls.Config {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: files.Insecure, //nolint:gosec // user controlled
	}
	if pool := l.rootPool(files); pool != nil {
		cfg.RootCAs = pool
	}
	if files.Client != nil && !files.Client.Empty() {
		cert, err := l.LoadClientCertificate(*files.Client)
		if err != nil {
			l.logger().Warn("client certificate not loaded", "error", err)
		} else {
			cfg.Certificates = []tls.Certificate{cert}
		}
	}
	return cfg
}

// caPaths resolves the configured CA files, dropping blanks and repeats.
func (l Loader) caPaths(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	var out []string
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		path := l.resolve(p)
		if seen[path] {
			continue
		}
		seen[path] = true
		out = append(out, path)
	}
	return out
}

func (l Loader) rootPool(files Files) *x509.CertPool {
	paths := l.caPaths(files.RootCAs)
	if len(paths) == 0 {
		return nil
	}
	var pool *x509.CertPool
	if files.RootMode != RootModeReplace {
		if sys, err := x509.SystemCertPool(); err == nil && sys != nil {
			pool = sys
		}
	}
	if pool == nil {
		pool = x509.NewCertPool()
	}
	log := l.logger()
	added := 0
	for _, path := range paths {
		data, err := l.reader().ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Warn("CA file not found, skipping", "path", path)
			} else {
				log.Warn("CA file unreadable, skipping", "path", path, "error", err)
			}
			continue
		}
		if !pool.AppendCertsFromPEM(data) {
			log.Warn("CA file has no PEM certificates, skipping", "path", path)
			continue
		}
		added++
	}
	if added == 0 && files.RootMode != RootModeReplace {
		return nil
	}
	return pool
}

func (l Loader) LoadClientCertificate(files ClientFiles) (tls.Certificate, error) {
	if files.PFX != "" {
		path := l.resolve(files.PFX)
		data, err := l.reader().ReadFile(path)
		if err != nil {
			return tls.Certificate{}, errdef.Wrap(errdef.CodeFilesystem, err, "read pfx %s", path)
		}
		return decodePFX(data, files.Passphrase)
	}

	certPath := l.resolve(files.CRT)
	keyPath := l.resolve(files.Key)
	certPEM, err := l.reader().ReadFile(certPath)
	if err != nil {
		return tls.Certificate{}, errdef.Wrap(errdef.CodeFilesystem, err, "read certificate %s", certPath)
	}
	keyPEM, err := l.reader().ReadFile(keyPath)
	if err != nil {
		return tls.Certificate{}, errdef.Wrap(errdef.CodeFilesystem, err, "read key %s", keyPath)
	}
	if files.Passphrase != "" {
		keyPEM, err = decryptKey(keyPEM, files.Passphrase)
		if err != nil {
			return tls.Certificate{}, err
		}
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, errdef.Wrap(errdef.CodeTLS, err, "load key pair %s", certPath)
	}
	return cert, nil
}

func decodePFX(data []byte, passphrase string) (tls.Certificate, error) {
	blocks, err := pkcs12.ToPEM(data, passphrase)
	if err != nil {
		return tls.Certificate{}, errdef.Wrap(errdef.CodeTLS, err, "decode pfx")
	}
	var certPEM, keyPEM []byte
	for _, b := range blocks {
		switch {
		case b.Type == "CERTIFICATE":
			certPEM = append(certPEM, pem.EncodeToMemory(b)...)
		case strings.HasSuffix(b.Type, "PRIVATE KEY"):
			keyPEM = pem.EncodeToMemory(&pem.Block{Type: b.Type, Bytes: b.Bytes})
		}
	}
	if len(certPEM) == 0 || len(keyPEM) == 0 {
		return tls.Certificate{}, errdef.New(errdef.CodeTLS, "pfx has no certificate and key pair")
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, errdef.Wrap(errdef.CodeTLS, err, "load pfx key pair")
	}
	return cert, nil
}

// decryptKey handles legacy RFC 1423 encrypted PEM keys. Unencrypted keys are
// returned untouched.
func decryptKey(keyPEM []byte, passphrase string) ([]byte, error) {
	block, rest := pem.Decode(keyPEM)
	if block == nil {
		return keyPEM, nil
	}
	//nolint:staticcheck // legacy encrypted PEM is still common for client keys
	if !x509.IsEncryptedPEMBlock(block) {
		return keyPEM, nil
	}
	//nolint:staticcheck
	der, err := x509.DecryptPEMBlock(block, []byte(passphrase))
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeTLS, err, "decrypt private key")
	}
	out := pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der})
	return append(out, rest...), nil
}
