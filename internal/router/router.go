// Package router sets up all HTTP routes and middleware chains for the
// LUMIRA API. It organizes routes into storefront and admin groups with
// appropriate middleware stacks.
package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"lumira/internal/handlers"
	"lumira/internal/middleware"
)

// Options carries the deployment-dependent parts of the route table.
type Options struct {
	// Production enables HSTS.
	Production bool

	// UploadDir is served under UploadURLPrefix when set. Leave empty when
	// uploads go to object storage.
	UploadDir       string
	UploadURLPrefix string

	// LoginLimiter throttles POST /api/admin/auth. Optional.
	LoginLimiter *middleware.RateLimiter
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(sessions middleware.PrincipalLoader, admin *handlers.Admin, auth *handlers.Auth, public *handlers.Public, opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders(opts.Production))

	r.Get("/health", healthHandler)

	if opts.UploadDir != "" {
		prefix := strings.TrimRight(opts.UploadURLPrefix, "/")
		if prefix == "" {
			prefix = "/uploads"
		}
		r.Handle(prefix+"/*", http.StripPrefix(prefix, fileServer(opts.UploadDir)))
	}

	// Storefront, no session.
	r.Get("/api/products", public.Products)
	r.Get("/api/products/{ref}", public.Product)
	r.Get("/api/categories", public.Categories)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(middleware.LoadPrincipal(sessions))

		// Session endpoints, reachable without a session.
		if opts.LoginLimiter != nil {
			r.With(opts.LoginLimiter.Middleware).Post("/auth", auth.Login)
		} else {
			r.Post("/auth", auth.Login)
		}
		r.Get("/auth", auth.Check)
		r.Delete("/auth", auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/auth/totp", auth.TOTPQRCode)
			r.Get("/dashboard", admin.Dashboard)
			r.Post("/upload", admin.Upload)

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", admin.CategoriesList)
				r.Post("/", admin.CategoryCreate)
				r.Get("/{id}", admin.CategoryGet)
				r.Put("/{id}", admin.CategoryUpdate)
				r.Delete("/{id}", admin.CategoryDelete)
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", admin.ProductsList)
				r.Post("/", admin.ProductCreate)
				r.Get("/{id}", admin.ProductGet)
				r.Put("/{id}", admin.ProductUpdate)
				r.Delete("/{id}", admin.ProductDelete)
			})
		})
	})

	return r
}

// uploadsPolicy keeps uploaded files inert when opened directly: an SVG
// cannot run script or reach the API origin.
const uploadsPolicy = "default-src 'none'; img-src 'self'; style-src 'unsafe-inline'; sandbox"

// fileServer serves uploaded files without directory listings.
func fileServer(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Security-Policy", uploadsPolicy)
		fs.ServeHTTP(w, r)
	})
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
