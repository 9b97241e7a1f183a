package httpclient

import (
	"log/slog"

	"github.com/unkn0wn-root/restbench/internal/config"
	"github.com/unkn0wn-root/restbench/internal/tlsconfig"
)

func (a *Assembler) applyTLS(desc *Descriptor, settings *config.Settings, log *slog.Logger) {
	certs := settings.Certificates
	files := tlsconfig.Files{
		RootCAs:  certs.CA,
		RootMode: tlsconfig.RootModeAppend,
		Insecure: !settings.General.SSLVerification,
	}
	desc.ClientCertsConfigured = len(certs.Client) > 0

	if desc.ClientCertsConfigured {
		if sel, cert, ok := selectClientCert(desc, certs.Client, log); ok {
			desc.ClientCert = sel
			files.Client = &tlsconfig.ClientFiles{
				CRT:        cert.CRT,
				Key:        cert.Key,
				PFX:        cert.PFX,
				Passphrase: cert.Passphrase,
			}
		}
	}

	loader := tlsconfig.Loader{FS: a.fs, Logger: log, BaseDir: a.baseDir}
	desc.TLS = loader.Build(files)
}

// selectClientCert skips selection, not the request, when the URL has no
// usable host.
func selectClientCert(
	desc *Descriptor,
	certs []config.ClientCertificate,
	log *slog.Logger,
) (*CertSelection, config.ClientCertificate, bool) {
	host, err := desc.Hostname()
	if err != nil {
		log.Warn("client certificate selection skipped", "url", desc.URL, "error", err)
		return nil, config.ClientCertificate{}, false
	}
	patterns := make([]string, len(certs))
	for i, c := range certs {
		patterns[i] = c.Host
	}
	idx, match, skipped := tlsconfig.Select(patterns, host)
	for _, s := range skipped {
		log.Warn("invalid client certificate host pattern", "pattern", s.Pattern, "error", s.Err)
	}
	if idx < 0 {
		return nil, config.ClientCertificate{}, false
	}
	sel := &CertSelection{Index: idx, Host: certs[idx].Host, Match: match.Kind}
	log.Debug("client certificate selected", "host", host, "pattern", sel.Host, "match", match.Kind.String())
	return sel, certs[idx], true
}
