package auth

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"storefront-service/internal/domain"
)

// CookieName is the session cookie set on login.
const CookieName = "token"

type contextKey struct{}

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	UserID int64
	Role   string
}

func (p Principal) IsAdmin() bool {
	return p.Role == domain.RoleAdmin
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

// UserIDFrom returns the caller's id, or nil for anonymous requests.
func UserIDFrom(ctx context.Context) *int64 {
	if p, ok := PrincipalFrom(ctx); ok {
		id := p.UserID
		return &id
	}
	return nil
}

// TokenFromRequest reads the session cookie, falling back to "Authorization: Bearer".
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": message}); err != nil {
		log.Printf("ERROR: Failed to write auth error response: %v", err)
	}
}

// RequireAuth rejects requests without a valid session token.
func RequireAuth(tm *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				writeAuthError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			claims, err := tm.Verify(token)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			ctx := WithPrincipal(r.Context(), Principal{UserID: claims.UserID, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the caller when a valid token is present and otherwise continues anonymously.
func OptionalAuth(tm *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := TokenFromRequest(r); token != "" {
				if claims, err := tm.Verify(token); err == nil {
					r = r.WithContext(WithPrincipal(r.Context(), Principal{UserID: claims.UserID, Role: claims.Role}))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminOnly must run after RequireAuth.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok || !p.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "You are not authorized: Admins only")
			return
		}
		next.ServeHTTP(w, r)
	})
}
