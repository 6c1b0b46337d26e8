// FILE: src/internal/tls/server.go
package tls

import (
	"crypto/tls"
	"fmt"
	"net"

	"kinlog/src/internal/config"

	"github.com/lixenwraith/log"
)

// ServerManager holds the HTTP receiver's TLS configuration
type ServerManager struct {
	config    *config.TLSServerConfig
	tlsConfig *tls.Config
	logger    *log.Logger
}

// NewServerManager returns nil when TLS is not enabled
func NewServerManager(cfg *config.TLSServerConfig, logger *log.Logger) (*ServerManager, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	lo, hi, err := versionRange(cfg.MinVersion, cfg.MaxVersion)
	if err != nil {
		return nil, err
	}
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load receiver cert/key: %w", err)
	}

	m := &ServerManager{
		config: cfg,
		logger: logger,
		tlsConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   lo,
			MaxVersion:   hi,
			NextProtos:   []string{"http/1.1"},
		},
	}

	// Producers presenting a cert signed by this CA are required
	if cfg.ClientCAFile != "" {
		pool, err := loadPool(cfg.ClientCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load producer CA: %w", err)
		}
		m.tlsConfig.ClientCAs = pool
		m.tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}

	logger.Info("msg", "Receiver TLS configured",
		"component", "tls",
		"mtls", cfg.ClientCAFile != "",
		"min_version", tls.VersionName(m.tlsConfig.MinVersion))
	return m, nil
}

// Listener wraps ln so accepted connections speak TLS. A nil manager
// returns ln unchanged.
func (m *ServerManager) Listener(ln net.Listener) net.Listener {
	if m == nil {
		return ln
	}
	return tls.NewListener(ln, m.tlsConfig.Clone())
}

func (m *ServerManager) GetStats() map[string]any {
	if m == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"enabled":     true,
		"min_version": tls.VersionName(m.tlsConfig.MinVersion),
		"max_version": tls.VersionName(m.tlsConfig.MaxVersion),
		"mtls":        m.config.ClientCAFile != "",
	}
}
