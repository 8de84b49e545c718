package ports

import (
	"context"

	"github.com/storefront/store-api/internal/core/domain"
)

// ProductFilter carries every query parameter of the product listing.
type ProductFilter struct {
	CategoryID string   // optional: exact category match
	Name       string   // optional: case-insensitive substring match
	MinPrice   *float64 // optional: price >= MinPrice
	MaxPrice   *float64 // optional: price <= MaxPrice
	SortBy     domain.ProductSort
	Descending bool
	Page       Page // zero Limit returns every match
}

// CategoryRepository persists categories. Misses return
// domain.ErrCategoryNotFound; unique name violations return
// domain.ErrDuplicateCategory.
type CategoryRepository interface {
	List(ctx context.Context) ([]*domain.Category, error)
	FindByID(ctx context.Context, id string) (*domain.Category, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, c *domain.Category) (*domain.Category, error)
	Update(ctx context.Context, id string, update domain.CategoryUpdate) (*domain.Category, error)
	Delete(ctx context.Context, id string) error
}

// ProductRepository persists products. Misses return domain.ErrProductNotFound.
type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int64, error)
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	CountByCategory(ctx context.Context, categoryID string) (int64, error)
	Create(ctx context.Context, p *domain.Product) (*domain.Product, error)
	Update(ctx context.Context, id string, update domain.ProductUpdate) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}
