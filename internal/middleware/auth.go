package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"appointment-api/internal/auth"
)

type ctxKey string

const UserIDKey ctxKey = "uid"

// UserID pulls the authenticated user out of the request context. Only
// valid behind the Auth middleware.
func UserID(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

// Auth resolves the bearer token to a user identity before any resource
// logic runs; missing or invalid credentials end the request with 401.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// token from Authorization: Bearer <jwt>
			raw := ""
			if v := r.Header.Get("Authorization"); v != "" {
				raw = strings.TrimPrefix(v, "Bearer ")
			}
			if raw == "" {
				unauthorized(w, "no token")
				return
			}

			claims, err := auth.ParseToken(raw, secret)
			if err != nil {
				unauthorized(w, "bad token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}
