package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bcnelson/fulcrum-data-manager/internal/auth"
	"github.com/bcnelson/fulcrum-data-manager/internal/domain"
	"go.uber.org/zap"
)

// BearerToken requires "Authorization: Bearer <token>" on every request.
// An empty token disables the check; that is logged once at construction.
func BearerToken(token string, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if token == "" {
		logger.Warn("API_TOKEN is not set; the JSON API is unauthenticated")
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "missing authorization header")
				return
			}

			presented, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				unauthorized(w, "invalid authorization header format")
				return
			}
			if presented == "" {
				unauthorized(w, "empty API token")
				return
			}
			if !auth.ConstantTimeCompare(presented, token) {
				logger.Warn("rejected API token",
					zap.String("remote_addr", r.RemoteAddr),
					zap.String("path", r.URL.Path))
				unauthorized(w, "invalid API token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="fulcrum"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(domain.StandardErrorResponse{
		Error: domain.StandardError{Code: domain.ErrCodeUnauthorized, Message: message},
	})
}
