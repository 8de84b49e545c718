package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/storefront/store-api/internal/core/apperr"
	"github.com/storefront/store-api/internal/core/domain"
	"github.com/storefront/store-api/internal/core/ports"
)

type CategoryService struct {
	categories ports.CategoryRepository
	products   ports.ProductRepository
	now        func() time.Time
	log        zerolog.Logger
}

func NewCategoryService(categories ports.CategoryRepository, products ports.ProductRepository, log zerolog.Logger) *CategoryService {
	return &CategoryService{categories: categories, products: products, now: time.Now, log: log}
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	out, err := s.categories.List(ctx)
	if err != nil {
		return nil, apperr.Persistence(err, "list categories")
	}
	return out, nil
}

// GetCategory returns the category and every product filed under it.
func (s *CategoryService) GetCategory(ctx context.Context, id string) (*ports.CategoryDetail, error) {
	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, categoryError(err, "find category")
	}

	products, _, err := s.products.List(ctx, ports.ProductFilter{
		CategoryID: c.ID,
		SortBy:     domain.SortByName,
	})
	if err != nil {
		return nil, apperr.Persistence(err, "list category products")
	}
	return &ports.CategoryDetail{Category: *c, Products: products}, nil
}

func (s *CategoryService) CreateCategory(ctx context.Context, in ports.CreateCategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("validation failed", apperr.FieldError{Field: "name", Message: "name is required"})
	}

	exists, err := s.categories.ExistsByName(ctx, name)
	if err != nil {
		return nil, apperr.Persistence(err, "check category name")
	}
	if exists {
		return nil, apperr.Wrap(apperr.Conflict, domain.ErrDuplicateCategory, domain.ErrDuplicateCategory.Error())
	}

	now := s.now().UTC()
	created, err := s.categories.Create(ctx, &domain.Category{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, categoryError(err, "create category")
	}
	s.log.Info().Str("category_id", created.ID).Str("name", created.Name).Msg("category created")
	return created, nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, id string, in ports.UpdateCategoryInput) (*domain.Category, error) {
	current, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, categoryError(err, "find category")
	}

	update := domain.CategoryUpdate{Description: trimmed(in.Description)}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("validation failed", apperr.FieldError{Field: "name", Message: "name must not be empty"})
		}
		if !strings.EqualFold(name, current.Name) {
			exists, err := s.categories.ExistsByName(ctx, name)
			if err != nil {
				return nil, apperr.Persistence(err, "check category name")
			}
			if exists {
				return nil, apperr.Wrap(apperr.Conflict, domain.ErrDuplicateCategory, domain.ErrDuplicateCategory.Error())
			}
		}
		update.Name = &name
	}
	if update.Name == nil && update.Description == nil {
		return current, nil
	}

	updated, err := s.categories.Update(ctx, id, update)
	if err != nil {
		return nil, categoryError(err, "update category")
	}
	return updated, nil
}

// DeleteCategory refuses while products still reference the category.
func (s *CategoryService) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.categories.FindByID(ctx, id); err != nil {
		return categoryError(err, "find category")
	}

	n, err := s.products.CountByCategory(ctx, id)
	if err != nil {
		return apperr.Persistence(err, "count category products")
	}
	if n > 0 {
		return apperr.Conflictf("cannot delete category with %d associated products", n)
	}

	if err := s.categories.Delete(ctx, id); err != nil {
		return categoryError(err, "delete category")
	}
	s.log.Info().Str("category_id", id).Msg("category deleted")
	return nil
}

func categoryError(err error, op string) error {
	switch {
	case errors.Is(err, domain.ErrCategoryNotFound):
		return apperr.Wrap(apperr.NotFound, err, "category not found")
	case errors.Is(err, domain.ErrInvalidID):
		return apperr.Wrap(apperr.ValidationFailed, err, "invalid id")
	case errors.Is(err, domain.ErrDuplicateCategory):
		return apperr.Wrap(apperr.Conflict, err, domain.ErrDuplicateCategory.Error())
	default:
		return apperr.Persistence(err, op)
	}
}
