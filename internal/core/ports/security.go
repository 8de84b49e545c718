package ports

import (
	"time"

	"github.com/storefront/store-api/internal/core/domain"
)

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify never fails; a malformed hash simply does not match.
	Verify(plaintext, hash string) bool
	// VerifyDummy spends the same work as Verify against a throwaway hash so
	// that unknown accounts cannot be told apart by timing.
	VerifyDummy(plaintext string)
}

// TokenSubject is what gets embedded in an issued token.
type TokenSubject struct {
	UserID string
	Email  string
	Role   domain.Role
}

// IssuedToken is a signed token and its expiry.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenClaims is the verified content of a token.
type TokenClaims struct {
	ID        string
	Subject   string
	Email     string
	Role      domain.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenFailure tells apart the ways a token can be rejected.
type TokenFailure string

const (
	TokenMalformed     TokenFailure = "malformed"
	TokenBadSignature  TokenFailure = "signature"
	TokenExpired       TokenFailure = "expired"
	TokenInvalidClaims TokenFailure = "claims"
)

// TokenError is what TokenVerifier implementations return. Every TokenError
// matches domain.ErrInvalidToken under errors.Is; Reason keeps the detail.
type TokenError struct {
	Reason TokenFailure
	Err    error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return "token " + string(e.Reason)
	}
	return "token " + string(e.Reason) + ": " + e.Err.Error()
}

func (e *TokenError) Unwrap() error { return e.Err }

func (e *TokenError) Is(target error) bool { return target == domain.ErrInvalidToken }

// TokenVerifier checks a token. Every failure matches domain.ErrInvalidToken.
type TokenVerifier interface {
	Verify(token string) (*TokenClaims, error)
}

// TokenService issues and verifies identity tokens.
type TokenService interface {
	TokenVerifier
	Issue(subject TokenSubject) (IssuedToken, error)
}
