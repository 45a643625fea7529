package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tailored-api/apiserver/types"
)

const (
	DefaultAlgorithm = "HS256"
	DefaultTokenTTL  = 1440 * time.Minute
)

// Claims are the signed contents of a bearer token.
// The subject is the user id.
type Claims struct {
	Tier types.Tier `json:"tier"`
	jwt.RegisteredClaims
}

// TokenConfig is the resolved signing configuration.
type TokenConfig struct {
	Secret    string
	Algorithm string
	TTL       time.Duration
}

// TokenService issues and validates stateless HMAC-signed JWTs.
type TokenService struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewTokenService validates cfg and constructs a TokenService. A missing
// secret or an unsupported algorithm is reported as ErrConfiguration.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, fmt.Errorf("%w: signing secret is required", ErrConfiguration)
	}

	alg := strings.ToUpper(strings.TrimSpace(cfg.Algorithm))
	if alg == "" {
		alg = DefaultAlgorithm
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported signing algorithm %q", ErrConfiguration, cfg.Algorithm)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	svc := &TokenService{
		secret: []byte(secret),
		method: method,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for user with subject, tier, issued-at and expiry claims.
// The issue time is truncated to whole seconds, so a token expires TTL after
// the start of the second it was issued in.
func (s *TokenService) Issue(user types.User) (string, error) {
	if len(s.secret) == 0 || s.method == nil {
		return "", fmt.Errorf("%w: token service is not configured", ErrConfiguration)
	}
	if strings.TrimSpace(user.ID) == "" {
		return "", fmt.Errorf("issue token: user id is required")
	}

	// Token timestamps have second precision. Truncating first keeps
	// exp - iat equal to the configured TTL.
	now := s.now().Truncate(time.Second)
	claims := Claims{
		Tier: user.Tier.OrFree(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature, claim structure and expiry of tokenString.
// Expiry is compared exactly against the clock, without leeway. Every failure
// is reported as ErrInvalidToken.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	if len(s.secret) == 0 || s.method == nil {
		return nil, ErrInvalidToken
	}
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.IssuedAt == nil || !claims.Tier.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
