package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nexpos/engine/internal/auth"
	"github.com/nexpos/engine/internal/enum"
)

type contextKey string

const claimsKey contextKey = "claims"

func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, parts[1])
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePOS gates billing endpoints on the role capability table
// rather than a hardcoded role list.
func RequirePOS(next http.Handler) http.Handler {
	return requireCapability(next, func(p enum.RolePolicy) bool { return p.CanOperatePOS })
}

// RequireKitchen gates kitchen display endpoints.
func RequireKitchen(next http.Handler) http.Handler {
	return requireCapability(next, func(p enum.RolePolicy) bool { return p.KitchenAccess })
}

// RequireSettings gates configuration and back-office endpoints.
func RequireSettings(next http.Handler) http.Handler {
	return requireCapability(next, func(p enum.RolePolicy) bool { return p.CanAccessSettings })
}

func requireCapability(next http.Handler, allowed func(enum.RolePolicy) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			return
		}
		if !allowed(enum.PolicyFor(claims.Role)) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient permissions"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
