package ports

import (
	"context"

	"github.com/storefront/store-api/internal/core/domain"
)

// UpdateProfileInput is a self-service profile change. Nil fields are kept.
type UpdateProfileInput struct {
	Email     *string
	Name      *string
	FirstName *string
	LastName  *string
}

// ChangePasswordInput requires the current password.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
	IP              string
	UserAgent       string
}

// AdminUpdateUserInput is the privileged update path: the only way a role or
// the active flag changes over HTTP.
type AdminUpdateUserInput struct {
	Email  *string
	Name   *string
	Role   *string
	Active *bool
}

// UserList is one page of users.
type UserList struct {
	Items      []domain.PublicUser
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

type UserService interface {
	Profile(ctx context.Context, userID string) (*domain.PublicUser, error)
	UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*domain.PublicUser, error)
	ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error

	List(ctx context.Context, page Page) (*UserList, error)
	Get(ctx context.Context, id string) (*domain.PublicUser, error)
	AdminUpdate(ctx context.Context, actorID, id string, in AdminUpdateUserInput) (*domain.PublicUser, error)
	Delete(ctx context.Context, actorID, id string) error
}
