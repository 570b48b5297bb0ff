package web

import (
	"net/http"
	"net/url"

	"github.com/bcnelson/fulcrum-data-manager/internal/auth"
	"go.uber.org/zap"
)

// sessionAuth requires a valid session cookie when sign-in is configured.
// Without OIDC every request passes through.
func (s *Server) sessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.oidc == nil {
			next.ServeHTTP(w, r)
			return
		}

		session, err := s.oidc.Sessions.Get(r)
		if err != nil {
			s.logger.Debug("no valid session", zap.String("path", r.URL.Path), zap.Error(err))
			s.oidc.Sessions.Clear(w)
			loginURL := "/login?return_to=" + url.QueryEscape(r.URL.RequestURI())
			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", loginURL)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, loginURL, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
	})
}
