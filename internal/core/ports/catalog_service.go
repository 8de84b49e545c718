package ports

import (
	"context"

	"github.com/storefront/store-api/internal/core/domain"
)

// CreateCategoryInput carries a new category.
type CreateCategoryInput struct {
	Name        string
	Description string
}

// UpdateCategoryInput is a partial category change.
type UpdateCategoryInput struct {
	Name        *string
	Description *string
}

// CategoryDetail is a category together with the products filed under it.
type CategoryDetail struct {
	domain.Category
	Products []*domain.Product
}

type CategoryService interface {
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	GetCategory(ctx context.Context, id string) (*CategoryDetail, error)
	CreateCategory(ctx context.Context, in CreateCategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id string, in UpdateCategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

// CreateProductInput carries a new product.
type CreateProductInput struct {
	Name        string
	Description string
	Price       float64
	Stock       int
	Image       string
	CategoryID  string
}

// UpdateProductInput is a partial product change.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *float64
	Stock       *int
	Image       *string
	CategoryID  *string
}

// ListProductsInput mirrors the query string of GET /products.
type ListProductsInput struct {
	CategoryID string
	Name       string
	MinPrice   *float64
	MaxPrice   *float64
	Page       int
	Limit      int
	SortBy     string
	Order      string
}

// CategorySummary is the slice of a category embedded in product views.
type CategorySummary struct {
	ID   string
	Name string
}

// ProductDetail is a product together with its category summary.
type ProductDetail struct {
	domain.Product
	Category *CategorySummary
}

// ProductList is one page of products and its pagination metadata.
type ProductList struct {
	Items      []ProductDetail
	Total      int64
	Page       int
	Limit      int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

type ProductService interface {
	ListProducts(ctx context.Context, in ListProductsInput) (*ProductList, error)
	GetProduct(ctx context.Context, id string) (*ProductDetail, error)
	CreateProduct(ctx context.Context, in CreateProductInput) (*ProductDetail, error)
	UpdateProduct(ctx context.Context, id string, in UpdateProductInput) (*ProductDetail, error)
	DeleteProduct(ctx context.Context, id string) error
}
