// FILE: src/internal/tls/client.go
package tls

import (
	"crypto/tls"
	"fmt"
	"net"

	"kinlog/src/internal/config"

	"github.com/lixenwraith/log"
)

// ClientManager holds the TLS settings shared by every connection a
// producer opens to the stream endpoint. A nil manager means plaintext.
type ClientManager struct {
	base     *tls.Config
	mutual   bool
	pinnedCA bool
}

// NewClientManager returns nil when TLS is not enabled
func NewClientManager(cfg *config.TLSClientConfig, logger *log.Logger) (*ClientManager, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	lo, hi, err := versionRange(cfg.MinVersion, cfg.MaxVersion)
	if err != nil {
		return nil, err
	}
	suites, err := cipherSuites(cfg.CipherSuites)
	if err != nil {
		return nil, err
	}

	m := &ClientManager{
		base: &tls.Config{
			MinVersion:         lo,
			MaxVersion:         hi,
			CipherSuites:       suites,
			ServerName:         cfg.ServerName,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}

	switch {
	case cfg.ClientCertFile != "" && cfg.ClientKeyFile != "":
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load producer certificate: %w", err)
		}
		m.base.Certificates = []tls.Certificate{cert}
		m.mutual = true
	case cfg.ClientCertFile != "" || cfg.ClientKeyFile != "":
		return nil, fmt.Errorf("client_cert_file and client_key_file must be set together")
	}

	if cfg.ServerCAFile != "" {
		pool, err := loadPool(cfg.ServerCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load stream CA: %w", err)
		}
		m.base.RootCAs = pool
		m.pinnedCA = true
	}

	if cfg.InsecureSkipVerify {
		logger.Warn("msg", "Stream certificate verification is disabled",
			"component", "tls")
	}
	logger.Debug("msg", "Producer TLS configured",
		"component", "tls",
		"mtls", m.mutual,
		"pinned_ca", m.pinnedCA,
		"versions", tls.VersionName(lo)+"-"+tls.VersionName(hi))
	return m, nil
}

// ForAddress returns a config for dialing hostport. The configured
// server_name wins; otherwise the host part is verified. Nil when the
// manager is nil.
func (m *ClientManager) ForAddress(hostport string) *tls.Config {
	if m == nil {
		return nil
	}
	c := m.base.Clone()
	if c.ServerName == "" {
		host, _, err := net.SplitHostPort(hostport)
		if err != nil {
			host = hostport
		}
		c.ServerName = host
	}
	return c
}

func (m *ClientManager) GetStats() map[string]any {
	if m == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"enabled":              true,
		"min_version":          tls.VersionName(m.base.MinVersion),
		"max_version":          tls.VersionName(m.base.MaxVersion),
		"mtls":                 m.mutual,
		"pinned_ca":            m.pinnedCA,
		"insecure_skip_verify": m.base.InsecureSkipVerify,
	}
}
