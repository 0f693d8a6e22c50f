// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"

	"lumira/internal/models"
	"lumira/internal/store"
)

// Public groups the read-only storefront handlers. Responses are served
// from the catalog cache when possible and stored there on a miss.
// Failures degrade to empty lists or 404 rather than surfacing errors.
type Public struct {
	categories CategoryRepository
	products   ProductRepository
	cache      ResponseCache
}

// NewPublic creates a new Public handler group.
func NewPublic(categories CategoryRepository, products ProductRepository, cache ResponseCache) *Public {
	return &Public{
		categories: categories,
		products:   products,
		cache:      cache,
	}
}

// Products lists active products, optionally narrowed by a category id or
// slug and a name search.
func (p *Public) Products(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	key := "products?" + url.Values{"category": {category}, "search": {search}}.Encode()
	if cached, ok := p.cache.Get(ctx, key); ok {
		writeRaw(w, http.StatusOK, cached)
		return
	}

	version := p.cache.Version(ctx)
	filter := store.ProductFilter{Search: search, ActiveOnly: true}
	if category != "" {
		id, ok := p.resolveCategory(r, category)
		if !ok {
			writeJSON(w, http.StatusOK, []models.Product{})
			return
		}
		filter.CategoryID = id
	}

	items, err := p.products.List(ctx, filter)
	if err != nil {
		slog.Error("storefront product list failed", "error", err, "category", category)
		writeJSON(w, http.StatusOK, []models.Product{})
		return
	}

	for i := range items {
		items[i] = storefrontView(items[i])
	}
	p.respondCached(w, r, version, key, items)
}

// resolveCategory accepts an ObjectID or a slug. Unknown slugs and lookup
// failures report false.
func (p *Public) resolveCategory(r *http.Request, ref string) (bson.ObjectID, bool) {
	if id, err := bson.ObjectIDFromHex(ref); err == nil {
		return id, true
	}

	c, err := p.categories.FindBySlug(r.Context(), ref)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Error("storefront category lookup failed", "error", err, "slug", ref)
		}
		return bson.ObjectID{}, false
	}
	return c.ID, true
}

// Product returns one active product by id or slug.
func (p *Public) Product(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref := chi.URLParam(r, "ref")

	key := "product:" + ref
	if cached, ok := p.cache.Get(ctx, key); ok {
		writeRaw(w, http.StatusOK, cached)
		return
	}

	version := p.cache.Version(ctx)
	item, err := p.findProduct(r, ref)
	if err != nil || !item.IsActive {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			slog.Error("storefront product lookup failed", "error", err, "ref", ref)
		}
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	p.respondCached(w, r, version, key, storefrontView(*item))
}

func (p *Public) findProduct(r *http.Request, ref string) (*models.Product, error) {
	if _, err := bson.ObjectIDFromHex(ref); err == nil {
		item, err := p.products.FindByID(r.Context(), ref)
		if !errors.Is(err, store.ErrNotFound) {
			return item, err
		}
	}
	return p.products.FindBySlug(r.Context(), ref)
}

// Categories lists active categories.
func (p *Public) Categories(w http.ResponseWriter, r *http.Request) {
	const key = "categories"
	if cached, ok := p.cache.Get(r.Context(), key); ok {
		writeRaw(w, http.StatusOK, cached)
		return
	}

	version := p.cache.Version(r.Context())
	items, err := p.categories.ListActive(r.Context())
	if err != nil {
		slog.Error("storefront category list failed", "error", err)
		writeJSON(w, http.StatusOK, []models.Category{})
		return
	}

	p.respondCached(w, r, version, key, items)
}

// respondCached encodes v, stores it under key and writes it.
func (p *Public) respondCached(w http.ResponseWriter, r *http.Request, version int64, key string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("storefront encode failed", "error", err, "key", key)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	p.cache.Set(r.Context(), version, key, body)
	writeRaw(w, http.StatusOK, body)
}

// storefrontView returns a copy of the product without its inactive
// variants.
func storefrontView(item models.Product) models.Product {
	variants := make([]models.Variant, 0, len(item.Variants))
	for _, v := range item.Variants {
		if v.IsActive {
			variants = append(variants, v)
		}
	}
	item.Variants = variants
	return item
}
