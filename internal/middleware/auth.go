// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"xhsstudio/internal/auth"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// ClaimsKey is the context key for the verified token claims.
	ClaimsKey contextKey = "claims"
)

// TokenVerifier checks a bearer token.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token with 401 and
// stores the token's claims in the request context. Downstream handlers
// read them via ClaimsFromCtx or UserIDFromCtx.
func RequireAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "No token provided")
				return
			}

			claims, err := v.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken returns the token of an "Authorization: Bearer" header, or "".
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ClaimsFromCtx extracts the token claims from the request context.
// Returns nil if the request was not authenticated.
func ClaimsFromCtx(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims
}

// UserIDFromCtx returns the authenticated user's ID, or uuid.Nil.
func UserIDFromCtx(ctx context.Context) uuid.UUID {
	if c := ClaimsFromCtx(ctx); c != nil {
		return c.UserID
	}
	return uuid.Nil
}

// WithClaims returns a copy of ctx carrying claims. Used by tests and by
// handlers that authenticate outside RequireAuth.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}
