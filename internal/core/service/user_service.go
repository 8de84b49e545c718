package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/storefront/store-api/internal/core/apperr"
	"github.com/storefront/store-api/internal/core/domain"
	"github.com/storefront/store-api/internal/core/ports"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// UserService implements profile self-service and admin user management.
type UserService struct {
	users    ports.UserRepository
	hasher   ports.PasswordHasher
	policy   PasswordPolicy
	audit    ports.AuditSink
	validate *validator.Validate
	now      func() time.Time
	log      zerolog.Logger
}

func NewUserService(users ports.UserRepository, hasher ports.PasswordHasher, policy PasswordPolicy, log zerolog.Logger) *UserService {
	return &UserService{
		users:    users,
		hasher:   hasher,
		policy:   policy,
		audit:    noopSink{},
		validate: validator.New(),
		now:      time.Now,
		log:      log,
	}
}

// WithAudit sends password changes to sink.
func (s *UserService) WithAudit(sink ports.AuditSink) *UserService {
	if sink != nil {
		s.audit = sink
	}
	return s
}

func (s *UserService) Profile(ctx context.Context, userID string) (*domain.PublicUser, error) {
	return s.Get(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ports.UpdateProfileInput) (*domain.PublicUser, error) {
	update := domain.UserUpdate{
		Name:      trimmed(in.Name),
		FirstName: trimmed(in.FirstName),
		LastName:  trimmed(in.LastName),
	}
	email, err := s.checkEmail(ctx, userID, in.Email)
	if err != nil {
		return nil, err
	}
	update.Email = email

	if update.Empty() {
		return s.Get(ctx, userID)
	}
	updated, err := s.users.Update(ctx, userID, update)
	if err != nil {
		return nil, userError(err, "update user")
	}
	pub := updated.Public()
	return &pub, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID string, in ports.ChangePasswordInput) error {
	if in.CurrentPassword == "" || in.NewPassword == "" {
		var fields []apperr.FieldError
		if in.CurrentPassword == "" {
			fields = append(fields, apperr.FieldError{Field: "currentPassword", Message: "currentPassword is required"})
		}
		if in.NewPassword == "" {
			fields = append(fields, apperr.FieldError{Field: "newPassword", Message: "newPassword is required"})
		}
		return apperr.Validation("validation failed", fields...)
	}
	if fields := s.policy.Check("newPassword", in.NewPassword); len(fields) > 0 {
		return apperr.Validation("validation failed", fields...)
	}
	if in.CurrentPassword == in.NewPassword {
		return apperr.Validation("validation failed", apperr.FieldError{
			Field: "newPassword", Message: "new password must differ from the current one",
		})
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return userError(err, "find user")
	}
	if !s.hasher.Verify(in.CurrentPassword, user.PasswordHash) {
		return apperr.Unauthenticatedf("current password is incorrect")
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return userError(err, "update password")
	}

	s.audit.Enqueue(domain.AuthEvent{
		Type:       domain.EventPasswordSet,
		UserID:     user.ID,
		Email:      user.Email,
		IP:         in.IP,
		UserAgent:  in.UserAgent,
		OccurredAt: s.now().UTC(),
	})
	s.log.Info().Str("user_id", user.ID).Msg("password changed")
	return nil
}

func (s *UserService) List(ctx context.Context, page ports.Page) (*ports.UserList, error) {
	if page.Number > ports.MaxPageNumber {
		return nil, apperr.Validation("validation failed", apperr.FieldError{
			Field: "page", Message: fmt.Sprintf("page must be at most %d", ports.MaxPageNumber),
		})
	}
	page = normalizePage(page)
	users, total, err := s.users.List(ctx, page)
	if err != nil {
		return nil, apperr.Persistence(err, "list users")
	}

	items := make([]domain.PublicUser, 0, len(users))
	for _, u := range users {
		items = append(items, u.Public())
	}
	return &ports.UserList{
		Items:      items,
		Total:      total,
		Page:       page.Number,
		Limit:      page.Limit,
		TotalPages: totalPages(total, page.Limit),
	}, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.PublicUser, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, userError(err, "find user")
	}
	pub := user.Public()
	return &pub, nil
}

func (s *UserService) AdminUpdate(ctx context.Context, actorID, id string, in ports.AdminUpdateUserInput) (*domain.PublicUser, error) {
	update := domain.UserUpdate{Name: trimmed(in.Name), Active: in.Active}

	if in.Role != nil {
		role, err := domain.ParseRole(*in.Role)
		if err != nil {
			return nil, apperr.Validation("validation failed", apperr.FieldError{
				Field: "role", Message: "role must be one of: user, admin",
			})
		}
		update.Role = &role
	}
	if actorID == id {
		if update.Role != nil && *update.Role != domain.RoleAdmin {
			return nil, apperr.Forbiddenf("you cannot change your own role")
		}
		if update.Active != nil && !*update.Active {
			return nil, apperr.Forbiddenf("you cannot deactivate your own account")
		}
	}

	email, err := s.checkEmail(ctx, id, in.Email)
	if err != nil {
		return nil, err
	}
	update.Email = email

	if update.Empty() {
		return s.Get(ctx, id)
	}
	updated, err := s.users.Update(ctx, id, update)
	if err != nil {
		return nil, userError(err, "update user")
	}

	s.log.Info().Str("actor_id", actorID).Str("user_id", id).Msg("user updated by admin")
	pub := updated.Public()
	return &pub, nil
}

func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return apperr.Forbiddenf("you cannot delete your own account")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return userError(err, "delete user")
	}
	s.log.Info().Str("actor_id", actorID).Str("user_id", id).Msg("user deleted")
	return nil
}

// EnsureAdmin creates an active admin account, or promotes and reactivates
// the account already holding email. The password is only used on creation.
// It reports whether a new account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password, name string) (*domain.PublicUser, bool, error) {
	email = domain.NormalizeEmail(email)
	if s.validate.Var(email, "required,email") != nil {
		return nil, false, apperr.Validation("validation failed", apperr.FieldError{
			Field: "email", Message: "email must be a valid email address",
		})
	}

	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		role, active := domain.RoleAdmin, true
		updated, err := s.users.Update(ctx, existing.ID, domain.UserUpdate{Role: &role, Active: &active})
		if err != nil {
			return nil, false, userError(err, "promote user")
		}
		s.log.Info().Str("user_id", updated.ID).Msg("user promoted to admin")
		pub := updated.Public()
		return &pub, false, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, false, apperr.Persistence(err, "find user by email")
	}

	if fields := s.policy.Check("password", password); len(fields) > 0 {
		return nil, false, apperr.Validation("validation failed", fields...)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.Internal, err, "hash password")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Administrator"
	}

	now := s.now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, false, userError(err, "create admin")
	}
	s.log.Info().Str("user_id", created.ID).Msg("admin account created")
	pub := created.Public()
	return &pub, true, nil
}

// checkEmail validates and normalizes an optional new address for userID.
// It returns nil when the address is absent or unchanged.
func (s *UserService) checkEmail(ctx context.Context, userID string, raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	email := domain.NormalizeEmail(*raw)
	if s.validate.Var(email, "required,email") != nil {
		return nil, apperr.Validation("validation failed", apperr.FieldError{
			Field: "email", Message: "email must be a valid email address",
		})
	}

	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return &email, nil
	case err != nil:
		return nil, apperr.Persistence(err, "find user by email")
	case existing.ID == userID:
		return nil, nil
	default:
		return nil, apperr.Wrap(apperr.Conflict, domain.ErrDuplicateEmail, msgDuplicateEmail)
	}
}

// userError tags a repository failure.
func userError(err error, op string) error {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return apperr.Wrap(apperr.NotFound, err, "user not found")
	case errors.Is(err, domain.ErrInvalidID):
		return apperr.Wrap(apperr.ValidationFailed, err, "invalid id")
	case errors.Is(err, domain.ErrDuplicateEmail):
		return apperr.Wrap(apperr.Conflict, err, msgDuplicateEmail)
	default:
		return apperr.Persistence(err, op)
	}
}

func normalizePage(p ports.Page) ports.Page {
	if p.Number < 1 {
		p.Number = 1
	}
	switch {
	case p.Limit <= 0:
		p.Limit = defaultPageLimit
	case p.Limit > maxPageLimit:
		p.Limit = maxPageLimit
	}
	return p
}

func totalPages(total int64, limit int) int {
	if limit <= 0 || total == 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
