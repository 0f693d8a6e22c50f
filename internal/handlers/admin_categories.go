// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lumira/internal/models"
)

// CategoriesList returns every category, newest first.
func (a *Admin) CategoriesList(w http.ResponseWriter, r *http.Request) {
	items, err := a.categories.List(r.Context())
	if err != nil {
		writeStoreError(w, r, err, "Category")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CategoryCreate validates and stores a new category.
func (a *Admin) CategoryCreate(w http.ResponseWriter, r *http.Request) {
	var in models.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}

	c, err := models.NewCategory(in)
	if err != nil {
		writeStoreError(w, r, err, "Category")
		return
	}

	if err := a.categories.Create(r.Context(), c); err != nil {
		writeStoreError(w, r, err, "Category")
		return
	}

	a.invalidateCatalog(r.Context())
	slog.Info("category created", "id", c.ID.Hex(), "slug", c.Slug)
	writeJSON(w, http.StatusCreated, c)
}

// CategoryGet returns a single category.
func (a *Admin) CategoryGet(w http.ResponseWriter, r *http.Request) {
	c, err := a.categories.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err, "Category")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CategoryUpdate applies the allow-listed fields of the request body.
func (a *Admin) CategoryUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, err := a.categories.FindByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err, "Category")
		return
	}

	var u models.CategoryUpdate
	if !decodeJSON(w, r, &u) {
		return
	}

	if err := c.Apply(u); err != nil {
		writeStoreError(w, r, err, "Category")
		return
	}

	if err := a.categories.Update(ctx, c); err != nil {
		writeStoreError(w, r, err, "Category")
		return
	}

	a.invalidateCatalog(ctx)
	slog.Info("category updated", "id", c.ID.Hex(), "slug", c.Slug)
	writeJSON(w, http.StatusOK, c)
}

// CategoryDelete removes a category. Products keep their reference.
func (a *Admin) CategoryDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.categories.Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, err, "Category")
		return
	}

	a.invalidateCatalog(r.Context())
	slog.Info("category deleted", "id", id)
	writeSuccess(w)
}
