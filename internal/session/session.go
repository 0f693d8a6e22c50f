// Package session provides the admin session gate. An authenticated admin
// carries a signed, expiring token in an http-only cookie; logged-out
// tokens are remembered in Valkey until they would have expired anyway.
package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "admin_session"

	// DefaultTTL is how long an issued token stays valid.
	DefaultTTL = 24 * time.Hour

	// AdminSubject is the only principal the back-office knows about.
	AdminSubject = "admin"
)

// Principal is the verified identity behind a request.
type Principal struct {
	Subject   string
	TokenID   string
	ExpiresAt time.Time
}

// Revoker remembers token ids that were logged out before expiry.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Manager issues and verifies admin session tokens.
type Manager struct {
	secret  []byte
	revoker Revoker
	ttl     time.Duration
	secure  bool
	now     func() time.Time
}

// NewManager creates a session manager signing tokens with secret. When
// secure is true the cookie is only sent over HTTPS.
func NewManager(secret string, revoker Revoker, secure bool) *Manager {
	return &Manager{
		secret:  []byte(secret),
		revoker: revoker,
		ttl:     DefaultTTL,
		secure:  secure,
		now:     time.Now,
	}
}

// Issue signs a new admin token and sets it as the session cookie.
func (m *Manager) Issue(w http.ResponseWriter) (*Principal, error) {
	now := m.now()
	p := &Principal{
		Subject:   AdminSubject,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(m.ttl).Truncate(time.Second),
	}

	claims := jwt.RegisteredClaims{
		Subject:   p.Subject,
		ID:        p.TokenID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("session sign: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl.Seconds()),
	})

	return p, nil
}

// Principal returns the verified principal for the request's cookie, or
// nil if there is no cookie or the token is invalid, expired or revoked.
// An error means the revocation list could not be consulted.
func (m *Manager) Principal(ctx context.Context, r *http.Request) (*Principal, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, nil // No cookie = no session (not an error)
	}

	p, ok := m.parse(cookie.Value)
	if !ok {
		return nil, nil
	}

	revoked, err := m.revoker.IsRevoked(ctx, p.TokenID)
	if err != nil {
		return nil, fmt.Errorf("session revocation check: %w", err)
	}
	if revoked {
		return nil, nil
	}
	return p, nil
}

// Destroy revokes the request's token for its remaining lifetime and
// clears the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	// Expire the cookie immediately.
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil // No cookie, nothing to revoke
	}

	p, ok := m.parse(cookie.Value)
	if !ok {
		return nil
	}

	remaining := p.ExpiresAt.Sub(m.now())
	if remaining <= 0 {
		return nil
	}
	if err := m.revoker.Revoke(ctx, p.TokenID, remaining); err != nil {
		return fmt.Errorf("session revoke: %w", err)
	}
	return nil
}

func (m *Manager) parse(raw string) (*Principal, bool) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(AdminSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || claims.ID == "" {
		return nil, false
	}

	return &Principal{
		Subject:   claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, true
}
