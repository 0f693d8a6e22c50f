// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"lumira/internal/session"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// PrincipalKey is the context key for the verified admin principal.
	PrincipalKey contextKey = "principal"
)

// PrincipalLoader resolves the admin principal behind a request.
// *session.Manager satisfies it.
type PrincipalLoader interface {
	Principal(ctx context.Context, r *http.Request) (*session.Principal, error)
}

// LoadPrincipal verifies the session cookie and stores the principal in the
// request context. Downstream handlers can access it via PrincipalFromCtx().
// This middleware does NOT enforce authentication.
func LoadPrincipal(loader PrincipalLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := loader.Principal(r.Context(), r)
			if err != nil {
				// Treat as unauthenticated; the revocation list is unreachable.
				slog.Warn("session lookup failed", "error", err, "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			if p != nil {
				r = r.WithContext(context.WithValue(r.Context(), PrincipalKey, p))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin answers 401 for requests without a verified principal.
// Must be applied after LoadPrincipal in the middleware chain.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFromCtx(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// PrincipalFromCtx extracts the admin principal from the request context.
// Returns nil if the request is not authenticated.
func PrincipalFromCtx(ctx context.Context) *session.Principal {
	p, _ := ctx.Value(PrincipalKey).(*session.Principal)
	return p
}
