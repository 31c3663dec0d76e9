package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cloo-solutions/taskpilot/internal/api"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// UserHeader carries the identity of the caller
const UserHeader = "X-User-ID"

// RequireUser resolves the calling user from the X-User-ID header. When token
// is non-empty the request must also carry it as a bearer token.
func RequireUser(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				authHeader := r.Header.Get("Authorization")
				if authHeader == "" {
					api.Error(w, http.StatusUnauthorized, "missing authorization header")
					return
				}

				if !strings.HasPrefix(authHeader, "Bearer ") {
					api.Error(w, http.StatusUnauthorized, "invalid authorization format")
					return
				}

				presented := strings.TrimPrefix(authHeader, "Bearer ")
				if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
					api.Error(w, http.StatusUnauthorized, "invalid api token")
					return
				}
			}

			userID := strings.TrimSpace(r.Header.Get(UserHeader))
			if userID == "" {
				api.Error(w, http.StatusUnauthorized, "missing user id")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}
