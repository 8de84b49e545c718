package service

import (
	"fmt"
	"unicode"

	"github.com/storefront/store-api/internal/core/apperr"
)

// maxPasswordBytes is bcrypt's input limit; longer inputs would be silently
// truncated by other bcrypt implementations and are rejected outright here.
const maxPasswordBytes = 72

// PasswordPolicy is the strength rule applied on registration and password
// change.
type PasswordPolicy struct {
	MinLength     int
	RequireDigit  bool
	RequireUpper  bool
	RequireLower  bool
	RequireSymbol bool
}

// DefaultPasswordPolicy requires eight characters with a digit and an
// uppercase letter.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 8, RequireDigit: true, RequireUpper: true}
}

// Check returns one FieldError per violated rule, attributed to field.
func (p PasswordPolicy) Check(field, password string) []apperr.FieldError {
	var out []apperr.FieldError
	add := func(msg string) { out = append(out, apperr.FieldError{Field: field, Message: msg}) }

	if len([]rune(password)) < p.MinLength {
		add(fmt.Sprintf("password must be at least %d characters", p.MinLength))
	}
	if len(password) > maxPasswordBytes {
		add(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}

	var digit, upper, lower, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if p.RequireDigit && !digit {
		add("password must contain at least one number")
	}
	if p.RequireUpper && !upper {
		add("password must contain at least one uppercase letter")
	}
	if p.RequireLower && !lower {
		add("password must contain at least one lowercase letter")
	}
	if p.RequireSymbol && !symbol {
		add("password must contain at least one symbol")
	}
	return out
}
