// FILE: src/internal/tls/parse.go
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
)

var versions = map[string]uint16{
	"TLS1.0": tls.VersionTLS10,
	"TLS1.1": tls.VersionTLS11,
	"TLS1.2": tls.VersionTLS12,
	"TLS1.3": tls.VersionTLS13,
}

// versionRange resolves the configured bounds, empty names take the defaults
func versionRange(minName, maxName string) (uint16, uint16, error) {
	lo, err := lookupVersion(minName, tls.VersionTLS12)
	if err != nil {
		return 0, 0, err
	}
	hi, err := lookupVersion(maxName, tls.VersionTLS13)
	if err != nil {
		return 0, 0, err
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("min_version %s is above max_version %s", tls.VersionName(lo), tls.VersionName(hi))
	}
	return lo, hi, nil
}

func lookupVersion(name string, fallback uint16) (uint16, error) {
	if name == "" {
		return fallback, nil
	}
	// "TLS12" is accepted alongside "TLS1.2"
	key := strings.ToUpper(name)
	if len(key) == 5 && strings.HasPrefix(key, "TLS1") {
		key = key[:4] + "." + key[4:]
	}
	v, ok := versions[key]
	if !ok {
		return 0, fmt.Errorf("unknown TLS version %q", name)
	}
	return v, nil
}

// cipherSuites resolves IANA suite names against the suites crypto/tls
// implements. Insecure suites are refused.
func cipherSuites(list string) ([]uint16, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}

	known := make(map[string]uint16)
	for _, s := range tls.CipherSuites() {
		known[s.Name] = s.ID
	}

	var ids []uint16
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		id, ok := known[name]
		if !ok {
			return nil, fmt.Errorf("unsupported cipher suite %q", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// loadPool reads a PEM bundle into a fresh pool
func loadPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}
