// FILE: src/internal/shipper/factory.go
package shipper

import (
	"fmt"
	"time"

	"kinlog/src/internal/auth"
	"kinlog/src/internal/config"
	"kinlog/src/internal/transport"
	"kinlog/src/internal/transport/httpstream"
	"kinlog/src/internal/transport/tcpstream"

	"github.com/lixenwraith/log"
)

// NewProducer builds the producer selected by cfg.Type. subject names the
// producer in signed tokens.
func NewProducer(cfg *config.TransportConfig, subject string, logger *log.Logger) (transport.Producer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("transport is not configured")
	}

	var signer *auth.Signer
	if cfg.AuthEnabled() {
		var err error
		signer, err = auth.NewSigner(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.Audience,
			subject, time.Duration(cfg.Auth.TTLSeconds)*time.Second, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create token signer: %w", err)
		}
	}

	switch cfg.Type {
	case "http", "":
		var tokens httpstream.TokenSource
		if signer != nil {
			tokens = signer
		}
		p, err := httpstream.New(cfg, tokens, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "tcp":
		var tokens tcpstream.TokenSource
		if signer != nil {
			tokens = signer
		}
		p, err := tcpstream.New(cfg, tokens, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "memory":
		return transport.NewMemoryProducer(logger), nil
	default:
		return nil, fmt.Errorf("unknown transport type: %s", cfg.Type)
	}
}
