package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/storefront/store-api/internal/core/apperr"
	"github.com/storefront/store-api/internal/core/domain"
	"github.com/storefront/store-api/internal/core/ports"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgDeactivated        = "account deactivated"
	msgDuplicateEmail     = "user with this email already exists"
	msgTooManyFailures    = "too many failed login attempts, try again later"
)

// AuthService implements registration and login.
type AuthService struct {
	users    ports.UserRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenService
	policy   PasswordPolicy
	throttle ports.LoginThrottle
	audit    ports.AuditSink
	validate *validator.Validate
	now      func() time.Time
	log      zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenService,
	policy PasswordPolicy,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		policy:   policy,
		throttle: noopThrottle{},
		audit:    noopSink{},
		validate: validator.New(),
		now:      time.Now,
		log:      log,
	}
}

// WithThrottle enables the failed-login limit.
func (s *AuthService) WithThrottle(t ports.LoginThrottle) *AuthService {
	if t != nil {
		s.throttle = t
	}
	return s
}

// WithAudit sends register and login outcomes to sink.
func (s *AuthService) WithAudit(sink ports.AuditSink) *AuthService {
	if sink != nil {
		s.audit = sink
	}
	return s
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)

	var fields []apperr.FieldError
	switch {
	case email == "":
		fields = append(fields, apperr.FieldError{Field: "email", Message: "email is required"})
	case s.validate.Var(email, "email") != nil:
		fields = append(fields, apperr.FieldError{Field: "email", Message: "email must be a valid email address"})
	}
	if in.Password == "" {
		fields = append(fields, apperr.FieldError{Field: "password", Message: "password is required"})
	} else {
		fields = append(fields, s.policy.Check("password", in.Password)...)
	}
	if name == "" && first == "" {
		fields = append(fields, apperr.FieldError{Field: "name", Message: "name or firstName is required"})
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("validation failed", fields...)
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Persistence(err, "check email")
	}
	if exists {
		return nil, apperr.Wrap(apperr.Conflict, domain.ErrDuplicateEmail, msgDuplicateEmail)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "hash password")
	}

	if name == "" {
		name = strings.TrimSpace(first + " " + last)
	}
	now := s.now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		FirstName:    first,
		LastName:     last,
		Role:         domain.DefaultRole,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		// The unique index is the authoritative guard when two registrations
		// race past ExistsByEmail.
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, apperr.Wrap(apperr.Conflict, err, msgDuplicateEmail)
		}
		return nil, apperr.Persistence(err, "create user")
	}

	result, err := s.issue(created)
	if err != nil {
		return nil, err
	}

	s.record(domain.EventRegistered, created.ID, email, in.IP, in.UserAgent)
	s.log.Info().Str("user_id", created.ID).Msg("user registered")
	return result, nil
}

func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperr.Validation("validation failed", missingCredentials(email, in.Password)...)
	}

	blocked, err := s.throttle.Blocked(ctx, email)
	if err != nil {
		s.log.Warn().Err(err).Msg("login throttle check failed, proceeding")
	} else if blocked {
		s.record(domain.EventLoginBlocked, "", email, in.IP, in.UserAgent)
		return nil, apperr.New(apperr.RateLimited, msgTooManyFailures)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperr.Persistence(err, "find user")
		}
		s.hasher.VerifyDummy(in.Password)
		s.fail(ctx, "", email, in)
		return nil, apperr.Unauthenticatedf(msgInvalidCredentials)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.fail(ctx, user.ID, email, in)
		return nil, apperr.Unauthenticatedf(msgInvalidCredentials)
	}

	if !user.Active {
		s.record(domain.EventLoginFailure, user.ID, email, in.IP, in.UserAgent)
		return nil, apperr.Unauthenticatedf(msgDeactivated)
	}

	if err := s.throttle.Reset(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("failed to reset login throttle")
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.record(domain.EventLoginSuccess, user.ID, email, in.IP, in.UserAgent)
	return result, nil
}

func (s *AuthService) issue(user *domain.User) (*ports.AuthResult, error) {
	tok, err := s.tokens.Issue(ports.TokenSubject{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "issue token")
	}
	return &ports.AuthResult{User: user.Public(), Token: tok.Token, ExpiresAt: tok.ExpiresAt}, nil
}

func (s *AuthService) fail(ctx context.Context, userID, email string, in ports.LoginInput) {
	if err := s.throttle.RecordFailure(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("failed to record login failure")
	}
	s.record(domain.EventLoginFailure, userID, email, in.IP, in.UserAgent)
}

func (s *AuthService) record(typ domain.AuthEventType, userID, email, ip, ua string) {
	s.audit.Enqueue(domain.AuthEvent{
		Type:       typ,
		UserID:     userID,
		Email:      email,
		IP:         ip,
		UserAgent:  ua,
		OccurredAt: s.now().UTC(),
	})
}

func missingCredentials(email, password string) []apperr.FieldError {
	var fields []apperr.FieldError
	if email == "" {
		fields = append(fields, apperr.FieldError{Field: "email", Message: "email is required"})
	}
	if password == "" {
		fields = append(fields, apperr.FieldError{Field: "password", Message: "password is required"})
	}
	return fields
}

type noopThrottle struct{}

func (noopThrottle) Blocked(context.Context, string) (bool, error) { return false, nil }
func (noopThrottle) RecordFailure(context.Context, string) error  { return nil }
func (noopThrottle) Reset(context.Context, string) error          { return nil }

type noopSink struct{}

func (noopSink) Enqueue(domain.AuthEvent) {}
