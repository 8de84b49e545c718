package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/storefront/store-api/internal/core/apperr"
	"github.com/storefront/store-api/internal/core/domain"
	"github.com/storefront/store-api/internal/core/ports"
)

type ProductService struct {
	products   ports.ProductRepository
	categories ports.CategoryRepository
	now        func() time.Time
	log        zerolog.Logger
}

func NewProductService(products ports.ProductRepository, categories ports.CategoryRepository, log zerolog.Logger) *ProductService {
	return &ProductService{products: products, categories: categories, now: time.Now, log: log}
}

// ListProducts validates the query, applies defaults and returns one page.
func (s *ProductService) ListProducts(ctx context.Context, in ports.ListProductsInput) (*ports.ProductList, error) {
	filter, err := buildProductFilter(in)
	if err != nil {
		return nil, err
	}

	items, total, err := s.products.List(ctx, filter)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidID) {
			return nil, apperr.Validation("validation failed", apperr.FieldError{Field: "categoryId", Message: "invalid category id"})
		}
		return nil, apperr.Persistence(err, "list products")
	}

	names, err := s.categoryNames(ctx)
	if err != nil {
		return nil, err
	}

	details := make([]ports.ProductDetail, 0, len(items))
	for _, p := range items {
		details = append(details, withCategory(p, names))
	}

	pages := totalPages(total, filter.Page.Limit)
	return &ports.ProductList{
		Items:      details,
		Total:      total,
		Page:       filter.Page.Number,
		Limit:      filter.Page.Limit,
		TotalPages: pages,
		HasNext:    filter.Page.Number < pages,
		HasPrev:    filter.Page.Number > 1,
	}, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (*ports.ProductDetail, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, productError(err, "find product")
	}
	return s.detail(ctx, p)
}

func (s *ProductService) CreateProduct(ctx context.Context, in ports.CreateProductInput) (*ports.ProductDetail, error) {
	name := strings.TrimSpace(in.Name)
	var fields []apperr.FieldError
	if name == "" {
		fields = append(fields, apperr.FieldError{Field: "name", Message: "name is required"})
	}
	if in.Price < 0 {
		fields = append(fields, apperr.FieldError{Field: "price", Message: "price must be a positive number"})
	}
	if in.Stock < 0 {
		fields = append(fields, apperr.FieldError{Field: "stock", Message: "stock must be a non-negative integer"})
	}
	if strings.TrimSpace(in.CategoryID) == "" {
		fields = append(fields, apperr.FieldError{Field: "categoryId", Message: "categoryId is required"})
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("validation failed", fields...)
	}

	if err := s.requireCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	created, err := s.products.Create(ctx, &domain.Product{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Stock:       in.Stock,
		Image:       strings.TrimSpace(in.Image),
		CategoryID:  in.CategoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, productError(err, "create product")
	}

	s.log.Info().Str("product_id", created.ID).Str("category_id", created.CategoryID).Msg("product created")
	return s.detail(ctx, created)
}

func (s *ProductService) UpdateProduct(ctx context.Context, id string, in ports.UpdateProductInput) (*ports.ProductDetail, error) {
	current, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, productError(err, "find product")
	}

	update := domain.ProductUpdate{
		Name:        trimmed(in.Name),
		Description: trimmed(in.Description),
		Price:       in.Price,
		Stock:       in.Stock,
		Image:       trimmed(in.Image),
		CategoryID:  in.CategoryID,
	}

	var fields []apperr.FieldError
	if update.Name != nil && *update.Name == "" {
		fields = append(fields, apperr.FieldError{Field: "name", Message: "name must not be empty"})
	}
	if update.Price != nil && *update.Price < 0 {
		fields = append(fields, apperr.FieldError{Field: "price", Message: "price must be a positive number"})
	}
	if update.Stock != nil && *update.Stock < 0 {
		fields = append(fields, apperr.FieldError{Field: "stock", Message: "stock must be a non-negative integer"})
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("validation failed", fields...)
	}

	if update.CategoryID != nil && *update.CategoryID != current.CategoryID {
		if err := s.requireCategory(ctx, *update.CategoryID); err != nil {
			return nil, err
		}
	}
	if update.Empty() {
		return s.detail(ctx, current)
	}

	updated, err := s.products.Update(ctx, id, update)
	if err != nil {
		return nil, productError(err, "update product")
	}
	return s.detail(ctx, updated)
}

func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return productError(err, "delete product")
	}
	s.log.Info().Str("product_id", id).Msg("product deleted")
	return nil
}

// requireCategory rejects a product write whose category does not exist.
func (s *ProductService) requireCategory(ctx context.Context, id string) error {
	_, err := s.categories.FindByID(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrCategoryNotFound), errors.Is(err, domain.ErrInvalidID):
		return apperr.Validation("category not found", apperr.FieldError{Field: "categoryId", Message: "category not found"})
	default:
		return apperr.Persistence(err, "find category")
	}
}

func (s *ProductService) detail(ctx context.Context, p *domain.Product) (*ports.ProductDetail, error) {
	out := ports.ProductDetail{Product: *p}
	c, err := s.categories.FindByID(ctx, p.CategoryID)
	switch {
	case err == nil:
		out.Category = &ports.CategorySummary{ID: c.ID, Name: c.Name}
	case errors.Is(err, domain.ErrCategoryNotFound), errors.Is(err, domain.ErrInvalidID):
		// dangling reference; render the product without a category
	default:
		return nil, apperr.Persistence(err, "find category")
	}
	return &out, nil
}

func (s *ProductService) categoryNames(ctx context.Context) (map[string]string, error) {
	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, apperr.Persistence(err, "list categories")
	}
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}

func withCategory(p *domain.Product, names map[string]string) ports.ProductDetail {
	d := ports.ProductDetail{Product: *p}
	if name, ok := names[p.CategoryID]; ok {
		d.Category = &ports.CategorySummary{ID: p.CategoryID, Name: name}
	}
	return d
}

func buildProductFilter(in ports.ListProductsInput) (ports.ProductFilter, error) {
	var fields []apperr.FieldError
	bad := func(field, msg string) { fields = append(fields, apperr.FieldError{Field: field, Message: msg}) }

	page := ports.Page{Number: in.Page, Limit: in.Limit}
	switch {
	case page.Number == 0:
		page.Number = 1
	case page.Number < 0:
		bad("page", "page must be a positive integer")
	case page.Number > ports.MaxPageNumber:
		bad("page", fmt.Sprintf("page must be at most %d", ports.MaxPageNumber))
	}
	switch {
	case page.Limit == 0:
		page.Limit = defaultPageLimit
	case page.Limit < 0 || page.Limit > maxPageLimit:
		bad("limit", "limit must be between 1 and 100")
	}

	if in.MinPrice != nil && *in.MinPrice < 0 {
		bad("minPrice", "minPrice must be a positive number")
	}
	if in.MaxPrice != nil && *in.MaxPrice < 0 {
		bad("maxPrice", "maxPrice must be a positive number")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MaxPrice <= *in.MinPrice {
		bad("maxPrice", "maxPrice must be greater than minPrice")
	}

	sortBy := domain.SortByCreatedAt
	switch domain.ProductSort(in.SortBy) {
	case "":
	case domain.SortByName, domain.SortByPrice, domain.SortByCreatedAt:
		sortBy = domain.ProductSort(in.SortBy)
	default:
		bad("sortBy", "sortBy must be one of: name, price, createdAt")
	}

	desc := true
	switch strings.ToLower(in.Order) {
	case "", "desc":
	case "asc":
		desc = false
	default:
		bad("order", "order must be either asc or desc")
	}

	if len(fields) > 0 {
		return ports.ProductFilter{}, apperr.Validation("validation failed", fields...)
	}
	return ports.ProductFilter{
		CategoryID: strings.TrimSpace(in.CategoryID),
		Name:       strings.TrimSpace(in.Name),
		MinPrice:   in.MinPrice,
		MaxPrice:   in.MaxPrice,
		SortBy:     sortBy,
		Descending: desc,
		Page:       page,
	}, nil
}

func productError(err error, op string) error {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		return apperr.Wrap(apperr.NotFound, err, "product not found")
	case errors.Is(err, domain.ErrInvalidID):
		return apperr.Wrap(apperr.ValidationFailed, err, "invalid id")
	default:
		return apperr.Persistence(err, op)
	}
}
