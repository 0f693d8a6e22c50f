// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"

	"lumira/internal/models"
	"lumira/internal/store"
)

// recentProductsLimit is how many products the dashboard lists.
const recentProductsLimit = 5

// Admin groups the back-office JSON handlers and their dependencies.
type Admin struct {
	categories CategoryRepository
	products   ProductRepository
	cache      ResponseCache
	uploader   FileUploader
}

// NewAdmin creates a new Admin handler group.
func NewAdmin(categories CategoryRepository, products ProductRepository, cache ResponseCache, uploader FileUploader) *Admin {
	return &Admin{
		categories: categories,
		products:   products,
		cache:      cache,
		uploader:   uploader,
	}
}

// dashboardStats are the counter cards of the dashboard.
type dashboardStats struct {
	store.ProductStats
	TotalCategories int64 `json:"totalCategories"`
}

// dashboardResponse is the payload of GET /dashboard.
type dashboardResponse struct {
	Stats          dashboardStats   `json:"stats"`
	RecentProducts []models.Product `json:"recentProducts"`
}

// Dashboard returns catalog counters and the newest products.
func (a *Admin) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := a.products.Stats(ctx)
	if err != nil {
		writeStoreError(w, r, err, "Product")
		return
	}

	categories, err := a.categories.Count(ctx)
	if err != nil {
		writeStoreError(w, r, err, "Category")
		return
	}

	recent, err := a.products.List(ctx, store.ProductFilter{Limit: recentProductsLimit})
	if err != nil {
		writeStoreError(w, r, err, "Product")
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Stats:          dashboardStats{ProductStats: stats, TotalCategories: categories},
		RecentProducts: recent,
	})
}

// invalidateCatalog flushes cached storefront responses after a write.
func (a *Admin) invalidateCatalog(ctx context.Context) {
	a.cache.InvalidateAll(ctx)
}
