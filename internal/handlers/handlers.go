// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the LUMIRA catalog API.
// Handlers are grouped by concern (admin, auth, public) and receive their
// dependencies through the handler struct as interfaces, so tests can swap
// in fakes.
package handlers

import (
	"context"
	"net/http"

	"lumira/internal/models"
	"lumira/internal/session"
	"lumira/internal/storage"
	"lumira/internal/store"
)

// CategoryRepository is the category persistence used by the handlers.
// *store.CategoryStore satisfies it.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	ListActive(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id string) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	Create(ctx context.Context, c *models.Category) error
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// ProductRepository is the product persistence used by the handlers.
// *store.ProductStore satisfies it.
type ProductRepository interface {
	List(ctx context.Context, f store.ProductFilter) ([]models.Product, error)
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (store.ProductStats, error)
}

// ResponseCache holds rendered storefront responses. *cache.CatalogCache
// satisfies it. Set only stores the body while the cache is still at the
// version read before the body was built, so a read racing an admin write
// cannot cache stale data.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Version(ctx context.Context) int64
	Set(ctx context.Context, version int64, key string, body []byte)
	InvalidateAll(ctx context.Context)
}

// SessionIssuer starts and ends admin sessions. *session.Manager
// satisfies it.
type SessionIssuer interface {
	Issue(w http.ResponseWriter) (*session.Principal, error)
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// FileUploader stores uploaded images. *storage.Uploader satisfies it.
type FileUploader interface {
	Store(ctx context.Context, data []byte, originalName, contentType string) (*storage.Stored, error)
}
