package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/af-corp/reqbridge/internal/httputil"
	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestID echoes X-Request-ID or assigns a new one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = "req_" + uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := context.WithValue(r.Context(), requestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the id assigned by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// TokenAuth requires "Authorization: Bearer <token>" when token returns a
// non-empty value.
func TokenAuth(token func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			want := token()
			if want == "" {
				next.ServeHTTP(w, r)
				return
			}
			reqID := w.Header().Get("X-Request-ID")

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.WriteAuthError(w, reqID, "Missing Authorization header. Use: Authorization: Bearer <token>")
				return
			}
			got, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				httputil.WriteAuthError(w, reqID, "Invalid Authorization format. Use: Authorization: Bearer <token>")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
				httputil.WriteAuthError(w, reqID, "Invalid API token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
