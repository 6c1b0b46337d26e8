// FILE: src/internal/auth/verifier.go
package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lixenwraith/log"
)

var ErrMissingToken = errors.New("missing bearer token")

// Verifier validates bearer tokens presented to the development receivers
type Verifier struct {
	key      []byte
	issuer   string
	audience string
	parser   *jwt.Parser
	logger   *log.Logger

	totalVerified atomic.Uint64
	totalRejected atomic.Uint64
}

// NewVerifier creates a verifier. Empty issuer or audience disables that check.
func NewVerifier(key, issuer, audience string, logger *log.Logger) (*Verifier, error) {
	if key == "" {
		return nil, fmt.Errorf("signing key is empty")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithLeeway(5 * time.Second),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	return &Verifier{
		key:      []byte(key),
		issuer:   issuer,
		audience: audience,
		parser:   jwt.NewParser(opts...),
		logger:   logger,
	}, nil
}

// VerifyHeader checks an HTTP Authorization header value
func (v *Verifier) VerifyHeader(authHeader string) (string, error) {
	if authHeader == "" {
		v.totalRejected.Add(1)
		return "", ErrMissingToken
	}
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		v.totalRejected.Add(1)
		return "", fmt.Errorf("invalid bearer auth header")
	}
	return v.Verify(token)
}

// Verify validates a raw token and returns its subject
func (v *Verifier) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		v.totalRejected.Add(1)
		v.logger.Warn("msg", "Token rejected",
			"component", "auth",
			"error", err)
		return "", fmt.Errorf("JWT validation failed: %w", err)
	}
	if !parsed.Valid {
		v.totalRejected.Add(1)
		return "", fmt.Errorf("invalid JWT token")
	}

	v.totalVerified.Add(1)
	return claims.Subject, nil
}

// GetStats returns verification counters
func (v *Verifier) GetStats() map[string]any {
	return map[string]any{
		"total_verified": v.totalVerified.Load(),
		"total_rejected": v.totalRejected.Load(),
	}
}
