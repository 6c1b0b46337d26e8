// FILE: src/internal/auth/signer.go
package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lixenwraith/log"
)

// Tokens are reissued once less than this fraction of their lifetime remains
const refreshFraction = 5

// Signer issues HS256 bearer tokens for stream requests and caches the
// current token until it nears expiry
type Signer struct {
	key      []byte
	issuer   string
	audience string
	subject  string
	ttl      time.Duration
	now      func() time.Time
	logger   *log.Logger

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewSigner creates a signer. subject identifies the producing application.
func NewSigner(key, issuer, audience, subject string, ttl time.Duration, logger *log.Logger) (*Signer, error) {
	if key == "" {
		return nil, fmt.Errorf("signing key is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive: %s", ttl)
	}
	return &Signer{
		key:      []byte(key),
		issuer:   issuer,
		audience: audience,
		subject:  subject,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}, nil
}

// Token returns a valid signed token, minting a new one when needed
func (s *Signer) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(s.ttl/refreshFraction).Before(s.expires) {
		return s.token, nil
	}

	expires := now.Add(s.ttl)
	token, err := Mint(s.key, jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   s.subject,
		Audience:  audience(s.audience),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	if err != nil {
		return "", err
	}

	s.token = token
	s.expires = expires
	s.logger.Debug("msg", "Issued stream token",
		"component", "auth",
		"subject", s.subject,
		"expires", expires)
	return token, nil
}

// Mint signs claims with HS256
func Mint(key []byte, claims jwt.Claims) (string, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

func audience(aud string) jwt.ClaimStrings {
	if aud == "" {
		return nil
	}
	return jwt.ClaimStrings{aud}
}
