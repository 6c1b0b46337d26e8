// FILE: src/internal/auth/auth_test.go
package auth

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func TestSigner_Token(t *testing.T) {
	s, err := NewSigner(testKey, "kinlog", "", "myApp", time.Hour, newTestLogger())
	require.NoError(t, err)

	clock := time.Now()
	s.now = func() time.Time { return clock }

	first, err := s.Token()
	require.NoError(t, err)

	second, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, first, second, "token cached while fresh")

	clock = clock.Add(50 * time.Minute)
	third, err := s.Token()
	require.NoError(t, err)
	assert.NotEqual(t, first, third, "token reissued near expiry")
}

func TestNewSigner_Invalid(t *testing.T) {
	_, err := NewSigner("", "kinlog", "", "myApp", time.Hour, newTestLogger())
	assert.Error(t, err)

	_, err = NewSigner(testKey, "kinlog", "", "myApp", 0, newTestLogger())
	assert.Error(t, err)
}

func TestVerifier(t *testing.T) {
	logger := newTestLogger()
	signer, err := NewSigner(testKey, "kinlog", "streams", "myApp", time.Hour, logger)
	require.NoError(t, err)
	token, err := signer.Token()
	require.NoError(t, err)

	t.Run("Valid", func(t *testing.T) {
		v, err := NewVerifier(testKey, "kinlog", "streams", logger)
		require.NoError(t, err)

		subject, err := v.VerifyHeader("Bearer " + token)
		require.NoError(t, err)
		assert.Equal(t, "myApp", subject)
		assert.Equal(t, uint64(1), v.GetStats()["total_verified"])
	})

	t.Run("WrongKey", func(t *testing.T) {
		v, err := NewVerifier("ffffffffffffffffffffffffffffffff", "", "", logger)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.Error(t, err)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		v, err := NewVerifier(testKey, "someone-else", "", logger)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.Error(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		past := time.Now().Add(-2 * time.Hour)
		expired, err := Mint([]byte(testKey), jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Minute)),
		})
		require.NoError(t, err)

		v, err := NewVerifier(testKey, "", "", logger)
		require.NoError(t, err)
		_, err = v.Verify(expired)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("MissingExpiry", func(t *testing.T) {
		noExp, err := Mint([]byte(testKey), jwt.RegisteredClaims{Subject: "x"})
		require.NoError(t, err)

		v, err := NewVerifier(testKey, "", "", logger)
		require.NoError(t, err)
		_, err = v.Verify(noExp)
		assert.Error(t, err)
	})

	t.Run("Headers", func(t *testing.T) {
		v, err := NewVerifier(testKey, "", "", logger)
		require.NoError(t, err)

		_, err = v.VerifyHeader("")
		assert.True(t, errors.Is(err, ErrMissingToken))

		_, err = v.VerifyHeader("Basic abc")
		assert.Error(t, err)
		assert.Equal(t, uint64(2), v.GetStats()["total_rejected"])
	})
}

func TestGeneratorCommand(t *testing.T) {
	newCommand := func() (*GeneratorCommand, *bytes.Buffer) {
		out := &bytes.Buffer{}
		g := &GeneratorCommand{output: out, errOut: &bytes.Buffer{}}
		g.readSecret = func(string) (string, error) { return testKey, nil }
		return g, out
	}

	t.Run("Key", func(t *testing.T) {
		g, out := newCommand()
		require.NoError(t, g.Execute([]string{"-l", "48"}))
		assert.Contains(t, out.String(), "[transport.auth]")
		assert.Contains(t, out.String(), "signing_key = ")
	})

	t.Run("KeyTooShort", func(t *testing.T) {
		g, _ := newCommand()
		assert.Error(t, g.Execute([]string{"-l", "8"}))
	})

	t.Run("Token", func(t *testing.T) {
		t.Setenv("KINLOG_TRANSPORT_AUTH_SIGNING_KEY", "")
		g, out := newCommand()
		require.NoError(t, g.Execute([]string{"-t", "-s", "tester"}))

		v, err := NewVerifier(testKey, "kinlog", "", newTestLogger())
		require.NoError(t, err)
		subject, err := v.Verify(strings.TrimSpace(out.String()))
		require.NoError(t, err)
		assert.Equal(t, "tester", subject)
	})
}
