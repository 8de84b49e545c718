package handler

import (
	"github.com/storefront/store-api/internal/core/domain"
	"github.com/storefront/store-api/internal/core/ports"
)

func toAuthResponse(r *ports.AuthResult) authResponse {
	return authResponse{User: r.User, Token: r.Token, ExpiresAt: r.ExpiresAt}
}

func toProductResponse(d ports.ProductDetail) productResponse {
	out := productResponse{Product: d.Product}
	if d.Category != nil {
		out.Category = &categorySummary{ID: d.Category.ID, Name: d.Category.Name}
	}
	return out
}

func toProductListResponse(l *ports.ProductList) productListResponse {
	data := make([]productResponse, 0, len(l.Items))
	for _, d := range l.Items {
		data = append(data, toProductResponse(d))
	}
	return productListResponse{
		Status: "success",
		Data:   data,
		Meta: pageMeta{
			Total:      l.Total,
			Page:       l.Page,
			Limit:      l.Limit,
			TotalPages: l.TotalPages,
			HasNext:    l.HasNext,
			HasPrev:    l.HasPrev,
		},
	}
}

func toUserListResponse(l *ports.UserList) userListResponse {
	data := l.Items
	if data == nil {
		data = []domain.PublicUser{}
	}
	return userListResponse{
		Status:  "success",
		Results: len(data),
		Data:    data,
		Meta: pageMeta{
			Total:      l.Total,
			Page:       l.Page,
			Limit:      l.Limit,
			TotalPages: l.TotalPages,
			HasNext:    l.Page < l.TotalPages,
			HasPrev:    l.Page > 1,
		},
	}
}

func toCategoryResponse(d *ports.CategoryDetail) categoryResponse {
	products := d.Products
	if products == nil {
		products = []*domain.Product{}
	}
	return categoryResponse{Category: d.Category, Products: products}
}
