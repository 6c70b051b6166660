package httpapi

import (
	"context"
	"net/http"
	"strings"

	"logistics/pkg/apperror"
	"logistics/pkg/passhash"
)

type contextKey string

const claimsContextKey contextKey = "operator_claims"

// fixedRoles is the role set spec §6/§7 validates bearer claims against;
// anything else is rejected as a Validation error ("bad role").
var fixedRoles = map[string]bool{
	"operator": true,
	"admin":    true,
	"viewer":   true,
}

// RequireAuth parses the bearer JWT, validates the carried role against
// the fixed set, and stores the claims in the request context.
func RequireAuth(jwt *passhash.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, apperror.New(apperror.CodeValidation, "missing bearer token"))
				return
			}
			claims, err := jwt.ValidateToken(token)
			if err != nil {
				writeError(w, apperror.Wrap(err, apperror.CodeValidation, "invalid bearer token"))
				return
			}
			if !fixedRoles[claims.Role] {
				writeError(w, apperror.NewWithField(apperror.CodeValidation, "bad role", "role"))
				return
			}
			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose bearer claims aren't one of roles.
// Call after RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(claimsContextKey).(*passhash.Claims)
			if !ok || !allowed[claims.Role] {
				writeError(w, apperror.NewWithField(apperror.CodeValidation, "bad role", "role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
