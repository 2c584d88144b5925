package handlers

import (
	"net/http"
	"strings"

	"github.com/barberbook/barberbook/libs/auth"
)

const (
	RoleOwner    = "owner"
	RoleCustomer = "customer"
)

// RequireAuth verifies the Bearer token and stamps the caller's identity
// onto trusted request headers. Client-supplied identity headers are dropped
// first so they cannot be spoofed.
func RequireAuth(next http.Handler, jwtSecret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") || len(strings.TrimSpace(authHeader)) <= len("Bearer ") {
			http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := auth.ParseAndVerifyHS256(token, jwtSecret)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		r.Header.Del("X-User-Id")
		r.Header.Del("X-Business-Id")
		r.Header.Del("X-Role")
		r.Header.Set("X-User-Id", claims.Sub)
		r.Header.Set("X-Business-Id", claims.BusinessID)
		r.Header.Set("X-Role", claims.Role)
		next.ServeHTTP(w, r)
	})
}

// RequireRole gates a handler behind RequireAuth-stamped roles.
func RequireRole(next http.Handler, roles ...string) http.Handler {
	allowed := map[string]struct{}{}
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := allowed[r.Header.Get("X-Role")]; !ok {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CallerID returns the authenticated user's id.
func CallerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

// CallerBusinessID returns the business the caller belongs to; empty for
// customers.
func CallerBusinessID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Business-Id"))
}

// CallerRole returns the authenticated role.
func CallerRole(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Role"))
}
