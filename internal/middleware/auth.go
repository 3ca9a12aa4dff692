package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/reception-desk/api/internal/auth"
	"github.com/reception-desk/api/internal/policy"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authenticate loads the session from the Authorization header or the session
// cookie. Requests without a valid session continue anonymously; routes that
// need a user add RequireUser or RequireCapability.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	if c, err := r.Cookie(auth.SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ClaimsFromContext(r.Context()) == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"ok": false, "error": "not authenticated"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireCapability rejects callers that may not perform action with 403.
func RequireCapability(action policy.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !policy.Can(SubjectFromContext(r.Context()), action) {
				writeJSON(w, http.StatusForbidden, map[string]interface{}{"ok": false, "error": "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// SubjectFromContext returns the caller for capability checks, nil when anonymous.
func SubjectFromContext(ctx context.Context) *policy.Subject {
	return ClaimsFromContext(ctx).Subject()
}

// WithClaims returns ctx carrying claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
