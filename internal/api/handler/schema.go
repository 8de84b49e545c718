package handler

import (
	"time"

	"github.com/storefront/store-api/internal/core/apperr"
	"github.com/storefront/store-api/internal/core/domain"
)

// errorResponse documents the error envelope rendered by the API error
// handler. Handlers never build it themselves.
type errorResponse struct {
	Status  string              `json:"status" example:"fail"`
	Message string              `json:"message"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
}

type statusResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message"`
}

// --- Auth ---

type registerRequest struct {
	Email     string `json:"email"     validate:"required,email,max=254"`
	Password  string `json:"password"  validate:"required,max=72"`
	Name      string `json:"name"      validate:"omitempty,max=100"`
	FirstName string `json:"firstName" validate:"omitempty,max=50"`
	LastName  string `json:"lastName"  validate:"omitempty,max=50"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	User      domain.PublicUser `json:"user"`
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// --- Users ---

type updateProfileRequest struct {
	Email     *string `json:"email"     validate:"omitempty,email,max=254"`
	Name      *string `json:"name"      validate:"omitempty,max=100"`
	FirstName *string `json:"firstName" validate:"omitempty,max=50"`
	LastName  *string `json:"lastName"  validate:"omitempty,max=50"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,max=72"`
}

type adminUpdateUserRequest struct {
	Email  *string `json:"email"  validate:"omitempty,email,max=254"`
	Name   *string `json:"name"   validate:"omitempty,max=100"`
	Role   *string `json:"role"   validate:"omitempty,oneof=user admin USER ADMIN"`
	Active *bool   `json:"active"`
}

type pageQuery struct {
	Page  int `query:"page"  validate:"gte=0,lte=1000000"`
	Limit int `query:"limit" validate:"gte=0,lte=100"`
}

type pageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

type userListResponse struct {
	Status  string              `json:"status" example:"success"`
	Results int                 `json:"results"`
	Data    []domain.PublicUser `json:"data"`
	Meta    pageMeta            `json:"meta"`
}

// --- Catalog ---

type createCategoryRequest struct {
	Name        string `json:"name"        validate:"required,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

type updateCategoryRequest struct {
	Name        *string `json:"name"        validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

type categoryListResponse struct {
	Status  string             `json:"status" example:"success"`
	Results int                `json:"results"`
	Data    []*domain.Category `json:"data"`
}

type categoryResponse struct {
	domain.Category
	Products []*domain.Product `json:"products"`
}

type createProductRequest struct {
	Name        string  `json:"name"        validate:"required,max=200"`
	Description string  `json:"description" validate:"omitempty,max=2000"`
	Price       float64 `json:"price"       validate:"gte=0"`
	Stock       int     `json:"stock"       validate:"gte=0"`
	Image       string  `json:"image"       validate:"omitempty,url"`
	CategoryID  string  `json:"categoryId"  validate:"required"`
}

type updateProductRequest struct {
	Name        *string  `json:"name"        validate:"omitempty,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Price       *float64 `json:"price"       validate:"omitempty,gte=0"`
	Stock       *int     `json:"stock"       validate:"omitempty,gte=0"`
	Image       *string  `json:"image"       validate:"omitempty,url"`
	CategoryID  *string  `json:"categoryId"`
}

type listProductsQuery struct {
	CategoryID string `query:"categoryId"`
	Name       string `query:"name"`
	MinPrice   string `query:"minPrice"`
	MaxPrice   string `query:"maxPrice"`
	Page       int    `query:"page"`
	Limit      int    `query:"limit"`
	SortBy     string `query:"sortBy"`
	Order      string `query:"order"`
}

type categorySummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type productResponse struct {
	domain.Product
	Category *categorySummary `json:"category,omitempty"`
}

type productListResponse struct {
	Status string            `json:"status" example:"success"`
	Data   []productResponse `json:"data"`
	Meta   pageMeta          `json:"meta"`
}
