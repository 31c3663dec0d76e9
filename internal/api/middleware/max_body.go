package middleware

import (
	"fmt"
	"net/http"

	"github.com/cloo-solutions/taskpilot/internal/api"
)

// DefaultMaxBodyBytes bounds a prompt request including its chat history
const DefaultMaxBodyBytes = 1 << 20

// MaxBodyBytes rejects request bodies larger than limit. Requests without a
// body (GET, HEAD) pass through untouched.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", limit))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
