// FILE: src/internal/config/validation.go
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"kinlog/src/internal/core"
	"kinlog/src/internal/filter"
)

// validateConfig checks every section that does not belong to the shipper.
// Shipper identity is validated by ValidateShipper at start time so that
// every violation can be reported.
func validateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.Logging != nil {
		if err := validateLogConfig(cfg.Logging); err != nil {
			return fmt.Errorf("logging config: %w", err)
		}
	}

	if cfg.Shipper != nil && cfg.Shipper.MinLevel != "" {
		if _, err := core.ParseLevel(cfg.Shipper.MinLevel); err != nil {
			return fmt.Errorf("shipper.min_level: %w", err)
		}
	}

	if cfg.Transport != nil {
		if err := validateTransport(cfg.Transport); err != nil {
			return fmt.Errorf("transport config: %w", err)
		}
	}

	for i, f := range cfg.Filters {
		if err := filter.Validate(f); err != nil {
			return fmt.Errorf("filter[%d]: %w", i, err)
		}
	}

	if cfg.Receiver != nil {
		if err := validateReceiver(cfg.Receiver); err != nil {
			return fmt.Errorf("receiver config: %w", err)
		}
	}

	return nil
}

func validateTransport(t *TransportConfig) error {
	switch t.Type {
	case "http":
		if strings.TrimSpace(t.Endpoint) == "" {
			return fmt.Errorf("http transport requires 'endpoint'")
		}
		u, err := url.Parse(t.Endpoint)
		if err != nil {
			return fmt.Errorf("invalid endpoint %q: %w", t.Endpoint, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("endpoint scheme must be http or https: %s", t.Endpoint)
		}
	case "tcp":
		if strings.TrimSpace(t.Address) == "" {
			return fmt.Errorf("tcp transport requires 'address'")
		}
		if !strings.Contains(t.Address, ":") {
			return fmt.Errorf("tcp address must be host:port: %s", t.Address)
		}
	case "memory":
	default:
		return fmt.Errorf("unknown transport type '%s' (must be 'http', 'tcp' or 'memory')", t.Type)
	}

	if t.Workers < 1 {
		return fmt.Errorf("workers must be positive: %d", t.Workers)
	}
	if t.BufferSize < 1 {
		return fmt.Errorf("buffer_size must be positive: %d", t.BufferSize)
	}
	if t.TimeoutMS < 0 {
		return fmt.Errorf("timeout_ms cannot be negative: %d", t.TimeoutMS)
	}
	if t.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative: %f", t.RateLimit)
	}
	if t.RateLimit > 0 && t.RateBurst < 0 {
		return fmt.Errorf("rate_burst cannot be negative: %d", t.RateBurst)
	}

	switch t.Compression {
	case "", "none", "gzip", "zstd":
	default:
		return fmt.Errorf("invalid compression '%s' (must be 'none', 'gzip' or 'zstd')", t.Compression)
	}

	if t.TLS != nil {
		if err := validateTLS(t.TLS); err != nil {
			return err
		}
	}

	if t.AuthEnabled() {
		if len(t.Auth.SigningKey) < 32 {
			return fmt.Errorf("auth signing_key must be at least 32 bytes")
		}
		if t.Auth.TTLSeconds < 1 {
			return fmt.Errorf("auth ttl_seconds must be positive: %d", t.Auth.TTLSeconds)
		}
	}

	return nil
}

func validPort(p int64) error {
	if p < 1 || p > 65535 {
		return fmt.Errorf("port out of range: %d", p)
	}
	return nil
}

func validateReceiver(r *ReceiverConfig) error {
	if r.HTTPPort != 0 {
		if err := validPort(r.HTTPPort); err != nil {
			return fmt.Errorf("http_port: %w", err)
		}
	}
	if r.TCPPort != 0 {
		if err := validPort(r.TCPPort); err != nil {
			return fmt.Errorf("tcp_port: %w", err)
		}
	}
	if r.HTTPPort != 0 && r.HTTPPort == r.TCPPort {
		return fmt.Errorf("http_port and tcp_port conflict: %d", r.HTTPPort)
	}
	if r.Host != "" && r.Host != "0.0.0.0" && r.Host != "localhost" {
		if net.ParseIP(r.Host) == nil {
			return fmt.Errorf("host: invalid IP address %q", r.Host)
		}
	}
	if r.MaxBodySize < 1 {
		return fmt.Errorf("max_body_size must be positive: %d", r.MaxBodySize)
	}
	if r.ShardCount < 1 {
		return fmt.Errorf("shard_count must be positive: %d", r.ShardCount)
	}
	if r.ShardRecordsPerSecond < 0 {
		return fmt.Errorf("shard_records_per_second cannot be negative: %f", r.ShardRecordsPerSecond)
	}
	switch r.Format {
	case "", "json", "text", "raw":
	default:
		return fmt.Errorf("invalid display format: %s", r.Format)
	}
	if r.TLS != nil && r.TLS.Enabled {
		if r.TLS.CertFile == "" || r.TLS.KeyFile == "" {
			return fmt.Errorf("receiver tls requires cert_file and key_file")
		}
		if !validTLSVersions[r.TLS.MinVersion] || !validTLSVersions[r.TLS.MaxVersion] {
			return fmt.Errorf("invalid receiver tls version range: %q-%q", r.TLS.MinVersion, r.TLS.MaxVersion)
		}
	}
	if o := r.Output; o != nil {
		switch o.Type {
		case "", "console":
			switch o.Target {
			case "", "stdout", "stderr", "split":
			default:
				return fmt.Errorf("invalid output target: %s", o.Target)
			}
		case "file":
			if o.Directory == "" {
				return fmt.Errorf("file output requires a directory")
			}
		default:
			return fmt.Errorf("invalid output type: %s", o.Type)
		}
		if o.BufferSize < 0 {
			return fmt.Errorf("output buffer_size cannot be negative: %d", o.BufferSize)
		}
	}
	return nil
}

var validTLSVersions = map[string]bool{
	"": true, "TLS1.0": true, "TLS1.1": true, "TLS1.2": true, "TLS1.3": true,
}

func validateTLS(t *TLSClientConfig) error {
	if t.ServerCAFile != "" {
		if _, err := os.Stat(t.ServerCAFile); err != nil {
			return fmt.Errorf("tls server_ca_file not accessible: %w", err)
		}
	}
	if (t.ClientCertFile == "") != (t.ClientKeyFile == "") {
		return fmt.Errorf("tls client_cert_file and client_key_file must be set together")
	}
	if !validTLSVersions[t.MinVersion] || !validTLSVersions[t.MaxVersion] {
		return fmt.Errorf("invalid tls version range: %q-%q", t.MinVersion, t.MaxVersion)
	}
	return nil
}
