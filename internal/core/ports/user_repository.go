package ports

import (
	"context"

	"github.com/storefront/store-api/internal/core/domain"
)

// UserReader is the read side the identity resolver needs.
type UserReader interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// UserRepository owns the user lifecycle.
//
// Lookups return domain.ErrUserNotFound on a miss and domain.ErrInvalidID for
// ids the store cannot parse. Create and Update return
// domain.ErrDuplicateEmail when the unique email index rejects the write.
type UserRepository interface {
	UserReader
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Update(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, page Page) ([]*domain.User, int64, error)
}

// MaxPageNumber bounds client page numbers so offsets stay representable.
const MaxPageNumber = 1_000_000

// Page is a 1-based page request.
type Page struct {
	Number int
	Limit  int
}

// Skip returns the number of rows preceding the page.
func (p Page) Skip() int64 {
	if p.Number <= 1 || p.Limit <= 0 {
		return 0
	}
	n := min(p.Number, MaxPageNumber)
	return int64(n-1) * int64(p.Limit)
}
