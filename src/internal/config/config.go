// FILE: src/internal/config/config.go
package config

import (
	"kinlog/src/internal/filter"
	"kinlog/src/internal/format"
)

// Config is the full kinlog configuration
type Config struct {
	Logging   *LogConfig       `toml:"logging"`
	Shipper   *ShipperConfig   `toml:"shipper"`
	Transport *TransportConfig `toml:"transport"`
	Filters   []filter.Config  `toml:"filters"`
	Receiver  *ReceiverConfig  `toml:"receiver"`
}

// ShipperConfig identifies the application and the destination stream
type ShipperConfig struct {
	AppName     string `toml:"app_name"`
	Environment string `toml:"environment"`
	StreamName  string `toml:"stream_name"`
	Region      string `toml:"region"`
	// Drop events without an event type; nil means on
	EventsOnly  *bool  `toml:"events_only"`
	LoggerName  string `toml:"logger_name"`
	// Minimum level accepted by the slog handler
	MinLevel string `toml:"min_level"`
}

// IsEventsOnly reports the effective events-only setting. An unset
// field counts as on.
func (c *ShipperConfig) IsEventsOnly() bool {
	return c == nil || c.EventsOnly == nil || *c.EventsOnly
}

// Bool returns a pointer to v, for optional boolean fields
func Bool(v bool) *bool {
	return &v
}

// TransportConfig selects and tunes the stream producer
type TransportConfig struct {
	// "http", "tcp" or "memory"
	Type string `toml:"type"`

	// Base URL for http, e.g. http://localhost:4567
	Endpoint string `toml:"endpoint"`

	// host:port for tcp
	Address string `toml:"address"`

	Workers    int   `toml:"workers"`
	BufferSize int   `toml:"buffer_size"`
	TimeoutMS  int64 `toml:"timeout_ms"`

	// Records per second, 0 disables
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`

	// "none", "gzip" or "zstd"
	Compression string `toml:"compression"`

	TLS  *TLSClientConfig `toml:"tls"`
	Auth *AuthConfig      `toml:"auth"`
}

// TLSClientConfig secures producer connections. https endpoints use TLS
// regardless of Enabled; Enabled switches the tcp transport to TLS.
type TLSClientConfig struct {
	Enabled            bool   `toml:"enabled"`
	ServerCAFile       string `toml:"server_ca_file"`
	ClientCertFile     string `toml:"client_cert_file"`
	ClientKeyFile      string `toml:"client_key_file"`
	ServerName         string `toml:"server_name"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
	MinVersion         string `toml:"min_version"`
	MaxVersion         string `toml:"max_version"`
	CipherSuites       string `toml:"cipher_suites"`
}

// AuthConfig controls the bearer token attached to stream requests
type AuthConfig struct {
	SigningKey string `toml:"signing_key"`
	Issuer     string `toml:"issuer"`
	Audience   string `toml:"audience"`
	TTLSeconds int64  `toml:"ttl_seconds"`
}

// ReceiverConfig configures the development receivers
type ReceiverConfig struct {
	Host     string `toml:"host"`
	HTTPPort int64  `toml:"http_port"`
	TCPPort  int64  `toml:"tcp_port"`

	// Verifies bearer tokens when set
	SigningKey string `toml:"signing_key"`

	MaxBodySize int64 `toml:"max_body_size"`
	ShardCount  int   `toml:"shard_count"`

	// Per-shard write capacity in records per second, 0 disables throttling
	ShardRecordsPerSecond float64 `toml:"shard_records_per_second"`

	// Display format: "json", "text" or "raw"
	Format  string         `toml:"format"`
	Display format.Options `toml:"display"`

	// Serves the HTTP receiver over TLS when enabled
	TLS *TLSServerConfig `toml:"tls"`

	// Where accepted records are written
	Output *OutputConfig `toml:"output"`
}

// OutputConfig selects the record sink of the receiver
type OutputConfig struct {
	// "console" or "file"
	Type string `toml:"type"`

	// Console: "stdout", "stderr" or "split"
	// split: WARN and ERROR events go to stderr
	Target string `toml:"target"`

	// File rotation
	Directory      string  `toml:"directory"`
	Name           string  `toml:"name"`
	MaxSizeMB      int64   `toml:"max_size_mb"`
	MaxTotalSizeMB int64   `toml:"max_total_size_mb"`
	RetentionHours float64 `toml:"retention_hours"`

	BufferSize int64 `toml:"buffer_size"`
}

// TLSServerConfig secures the HTTP receiver
type TLSServerConfig struct {
	Enabled      bool   `toml:"enabled"`
	CertFile     string `toml:"cert_file"`
	KeyFile      string `toml:"key_file"`
	ClientCAFile string `toml:"client_ca_file"`
	MinVersion   string `toml:"min_version"`
	MaxVersion   string `toml:"max_version"`
}

// AuthEnabled reports whether requests should carry a signed token
func (t *TransportConfig) AuthEnabled() bool {
	return t.Auth != nil && t.Auth.SigningKey != ""
}
