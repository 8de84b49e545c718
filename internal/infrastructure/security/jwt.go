package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/storefront/store-api/internal/core/domain"
	"github.com/storefront/store-api/internal/core/ports"
)

// DefaultTokenTTL applies when no TTL is configured.
const DefaultTokenTTL = 24 * time.Hour

type tokenClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTService implements ports.TokenService with HS256-signed JWTs.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// NewJWTService builds a token service. The secret must be non-empty; callers
// decide upstream whether an empty configured secret is acceptable.
func NewJWTService(secret string, ttl time.Duration, issuer string) (*JWTService, error) {
	if secret == "" {
		return nil, errors.New("jwt: empty signing secret")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &JWTService{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
	s.parser = s.newParser()
	return s, nil
}

// WithClock replaces the time source. Intended for tests.
func (s *JWTService) WithClock(now func() time.Time) *JWTService {
	s.now = now
	s.parser = s.newParser()
	return s
}

func (s *JWTService) newParser() *jwt.Parser {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	return jwt.NewParser(opts...)
}

// TTL returns the lifetime given to issued tokens.
func (s *JWTService) TTL() time.Duration { return s.ttl }

// Issue signs a token for subject expiring TTL from now.
func (s *JWTService) Issue(subject ports.TokenSubject) (ports.IssuedToken, error) {
	if subject.UserID == "" {
		return ports.IssuedToken{}, errors.New("jwt: empty subject")
	}

	now := s.now()
	exp := now.Add(s.ttl)
	claims := tokenClaims{
		Email: subject.Email,
		Role:  string(subject.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Subject:   subject.UserID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return ports.IssuedToken{}, fmt.Errorf("jwt: sign: %w", err)
	}
	return ports.IssuedToken{Token: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify checks signature, algorithm, issuer and expiry, in that order of
// trust, and returns the decoded claims.
func (s *JWTService) Verify(raw string) (*ports.TokenClaims, error) {
	var claims tokenClaims
	_, err := s.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, &ports.TokenError{Reason: classify(err), Err: err}
	}

	if claims.Subject == "" {
		return nil, &ports.TokenError{Reason: ports.TokenInvalidClaims, Err: errors.New("missing subject")}
	}

	out := &ports.TokenClaims{
		ID:      claims.ID,
		Subject: claims.Subject,
		Email:   claims.Email,
	}
	if claims.Role != "" {
		role, err := domain.ParseRole(claims.Role)
		if err != nil {
			return nil, &ports.TokenError{Reason: ports.TokenInvalidClaims, Err: err}
		}
		out.Role = role
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func classify(err error) ports.TokenFailure {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ports.TokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ports.TokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrSignatureInvalid):
		return ports.TokenBadSignature
	default:
		return ports.TokenInvalidClaims
	}
}

// GenerateSecret returns n random bytes, base64url encoded.
func GenerateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
