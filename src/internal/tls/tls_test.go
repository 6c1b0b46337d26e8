// FILE: src/internal/tls/tls_test.go
package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"kinlog/src/internal/config"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSelfSigned creates a loopback certificate usable as its own CA
func writeSelfSigned(t *testing.T) (certFile, keyFile string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "kinlog-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}

func TestVersionRange(t *testing.T) {
	lo, hi, err := versionRange("", "")
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS12), lo)
	assert.Equal(t, uint16(tls.VersionTLS13), hi)

	lo, _, err = versionRange("tls13", "TLS1.3")
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), lo)

	_, _, err = versionRange("TLS1.3", "TLS1.2")
	assert.Error(t, err)
	_, _, err = versionRange("SSL3", "")
	assert.Error(t, err)
}

func TestCipherSuites(t *testing.T) {
	ids, err := cipherSuites("")
	require.NoError(t, err)
	assert.Nil(t, ids)

	ids, err = cipherSuites(" TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256 , TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384")
	require.NoError(t, err)
	assert.Equal(t, []uint16{
		tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	}, ids)

	_, err = cipherSuites("TLS_RSA_WITH_RC4_128_SHA")
	assert.Error(t, err, "insecure suites are refused")
}

func TestClientManager(t *testing.T) {
	logger := log.NewLogger()

	t.Run("Disabled", func(t *testing.T) {
		m, err := NewClientManager(&config.TLSClientConfig{}, logger)
		require.NoError(t, err)
		assert.Nil(t, m)
		assert.Nil(t, m.ForAddress("stream:443"))
		assert.Equal(t, false, m.GetStats()["enabled"])
	})

	t.Run("ServerNameFromAddress", func(t *testing.T) {
		m, err := NewClientManager(&config.TLSClientConfig{Enabled: true}, logger)
		require.NoError(t, err)
		assert.Equal(t, "stream.local", m.ForAddress("stream.local:4443").ServerName)
		assert.Equal(t, "stream.local", m.ForAddress("stream.local").ServerName)

		// Each call gets its own copy
		c := m.ForAddress("a:1")
		c.ServerName = "changed"
		assert.Equal(t, "a", m.ForAddress("a:1").ServerName)
	})

	t.Run("ConfiguredServerNameWins", func(t *testing.T) {
		m, err := NewClientManager(&config.TLSClientConfig{Enabled: true, ServerName: "kinesis.internal"}, logger)
		require.NoError(t, err)
		assert.Equal(t, "kinesis.internal", m.ForAddress("10.0.0.1:443").ServerName)
	})

	t.Run("HalfKeyPair", func(t *testing.T) {
		_, err := NewClientManager(&config.TLSClientConfig{Enabled: true, ClientCertFile: "cert.pem"}, logger)
		assert.Error(t, err)
	})

	t.Run("BadCA", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ca.pem")
		require.NoError(t, os.WriteFile(path, []byte("not pem"), 0o600))
		_, err := NewClientManager(&config.TLSClientConfig{Enabled: true, ServerCAFile: path}, logger)
		assert.Error(t, err)
	})

	t.Run("Stats", func(t *testing.T) {
		certFile, keyFile := writeSelfSigned(t)
		m, err := NewClientManager(&config.TLSClientConfig{
			Enabled:        true,
			ServerCAFile:   certFile,
			ClientCertFile: certFile,
			ClientKeyFile:  keyFile,
		}, logger)
		require.NoError(t, err)
		stats := m.GetStats()
		assert.Equal(t, true, stats["mtls"])
		assert.Equal(t, true, stats["pinned_ca"])
		assert.Equal(t, "TLS 1.2", stats["min_version"])
	})
}

func TestHandshake_MutualTLS(t *testing.T) {
	logger := log.NewLogger()
	certFile, keyFile := writeSelfSigned(t)

	server, err := NewServerManager(&config.TLSServerConfig{
		Enabled:      true,
		CertFile:     certFile,
		KeyFile:      keyFile,
		ClientCAFile: certFile,
	}, logger)
	require.NoError(t, err)

	client, err := NewClientManager(&config.TLSClientConfig{
		Enabled:        true,
		ServerCAFile:   certFile,
		ClientCertFile: certFile,
		ClientKeyFile:  keyFile,
	}, logger)
	require.NoError(t, err)

	raw, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ln := server.Listener(raw)
	defer ln.Close()

	accepted := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			accepted <- err
			return
		}
		defer conn.Close()
		accepted <- conn.(*tls.Conn).Handshake()
	}()

	addr := ln.Addr().String()
	conn, err := tls.Dial("tcp", addr, client.ForAddress(addr))
	require.NoError(t, err)
	defer conn.Close()

	select {
	case err := <-accepted:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server handshake did not finish")
	}
	assert.True(t, conn.ConnectionState().HandshakeComplete)
}

func TestServerManager_Disabled(t *testing.T) {
	m, err := NewServerManager(nil, log.NewLogger())
	require.NoError(t, err)
	assert.Nil(t, m)

	raw, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer raw.Close()
	assert.Equal(t, raw, m.Listener(raw))
}
