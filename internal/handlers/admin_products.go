// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"

	"lumira/internal/models"
	"lumira/internal/store"
)

// ProductsList returns products filtered by the optional search and
// category query parameters, newest first.
func (a *Admin) ProductsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ProductFilter{Search: q.Get("search")}

	if raw := strings.TrimSpace(q.Get("category")); raw != "" {
		id, err := bson.ObjectIDFromHex(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid category id")
			return
		}
		filter.CategoryID = id
	}

	items, err := a.products.List(r.Context(), filter)
	if err != nil {
		writeStoreError(w, r, err, "Product")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// ProductCreate validates and stores a new product with its variants.
func (a *Admin) ProductCreate(w http.ResponseWriter, r *http.Request) {
	var in models.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}

	p, err := models.NewProduct(in)
	if err != nil {
		writeStoreError(w, r, err, "Product")
		return
	}

	if err := a.products.Create(r.Context(), p); err != nil {
		writeStoreError(w, r, err, "Product")
		return
	}

	a.invalidateCatalog(r.Context())
	slog.Info("product created", "id", p.ID.Hex(), "slug", p.Slug, "variants", len(p.Variants))
	writeJSON(w, http.StatusCreated, p)
}

// ProductGet returns a single product with its category resolved.
func (a *Admin) ProductGet(w http.ResponseWriter, r *http.Request) {
	p, err := a.products.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err, "Product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ProductUpdate applies the allow-listed fields of the request body. A
// variants array replaces the stored one.
func (a *Admin) ProductUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := a.products.FindByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err, "Product")
		return
	}

	var u models.ProductUpdate
	if !decodeJSON(w, r, &u) {
		return
	}

	if err := p.Apply(u); err != nil {
		writeStoreError(w, r, err, "Product")
		return
	}

	if err := a.products.Update(ctx, p); err != nil {
		writeStoreError(w, r, err, "Product")
		return
	}

	a.invalidateCatalog(ctx)
	slog.Info("product updated", "id", p.ID.Hex(), "slug", p.Slug)
	writeJSON(w, http.StatusOK, p)
}

// ProductDelete removes a product.
func (a *Admin) ProductDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.products.Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, err, "Product")
		return
	}

	a.invalidateCatalog(r.Context())
	slog.Info("product deleted", "id", id)
	writeSuccess(w)
}
