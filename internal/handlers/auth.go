// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/base32"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/crypto/bcrypt"

	"lumira/internal/middleware"
	"lumira/internal/session"
)

// totpIssuer labels the entry in the admin's authenticator app.
const totpIssuer = "LUMIRA"

// Auth groups the admin session handlers.
type Auth struct {
	sessions     SessionIssuer
	passwordHash []byte
	totpSecret   string
}

// NewAuth creates a new Auth handler group. passwordHash is a bcrypt hash;
// an empty totpSecret disables the second factor.
func NewAuth(sessions SessionIssuer, passwordHash, totpSecret string) *Auth {
	return &Auth{
		sessions:     sessions,
		passwordHash: []byte(passwordHash),
		totpSecret:   strings.ToUpper(strings.TrimSpace(totpSecret)),
	}
}

type loginRequest struct {
	Password string `json:"password"`
	Code     string `json:"code"`
}

// Login checks the admin password (and TOTP code when configured) and
// issues the session cookie.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if bcrypt.CompareHashAndPassword(a.passwordHash, []byte(req.Password)) != nil {
		slog.Warn("admin login rejected", "reason", "password", "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	if a.totpSecret != "" && !totp.Validate(strings.TrimSpace(req.Code), a.totpSecret) {
		slog.Warn("admin login rejected", "reason", "totp", "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "Invalid code")
		return
	}

	if _, err := a.sessions.Issue(w); err != nil {
		slog.Error("session issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	slog.Info("admin logged in", "remote", r.RemoteAddr)
	writeSuccess(w)
}

// Check reports whether the request carries a valid admin session.
func (a *Auth) Check(w http.ResponseWriter, r *http.Request) {
	if middleware.PrincipalFromCtx(r.Context()) == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]bool{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
}

// Logout revokes the session token and clears the cookie.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		// The cookie is already cleared; the token simply expires on its own.
		slog.Error("session revoke failed", "error", err)
	}
	writeSuccess(w)
}

// TOTPQRCode serves the provisioning QR code for the configured TOTP
// secret as a PNG.
func (a *Auth) TOTPQRCode(w http.ResponseWriter, r *http.Request) {
	if a.totpSecret == "" {
		writeError(w, http.StatusNotFound, "Two-factor authentication is not configured")
		return
	}

	url, err := provisioningURL(a.totpSecret)
	if err != nil {
		slog.Error("totp provisioning failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		slog.Error("qr code generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

// provisioningURL builds the otpauth:// URI for a base32 secret.
func provisioningURL(secret string) (string, error) {
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.TrimRight(secret, "="))
	if err != nil {
		return "", fmt.Errorf("decode totp secret: %w", err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: session.AdminSubject,
		Secret:      raw,
	})
	if err != nil {
		return "", fmt.Errorf("totp key: %w", err)
	}
	return key.URL(), nil
}
