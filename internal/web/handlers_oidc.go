package web

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/bcnelson/fulcrum-data-manager/internal/auth"
	"go.uber.org/zap"
)

// loginData feeds the login page.
type loginData struct {
	ReturnTo string
}

// handleLoginPage renders the sign-in page.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.oidc == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login", PageData{
		Title:   "Sign in",
		Flash:   flashFromQuery(r),
		Content: loginData{ReturnTo: safeReturnTo(r.URL.Query().Get("return_to"))},
	})
}

// handleOIDCLogin initiates the OIDC login flow.
func (s *Server) handleOIDCLogin(w http.ResponseWriter, r *http.Request) {
	if s.oidc == nil {
		http.Error(w, "OIDC authentication is not enabled", http.StatusNotFound)
		return
	}

	stateData, err := s.oidc.State.Generate(w, safeReturnTo(r.URL.Query().Get("return_to")))
	if err != nil {
		s.logger.Error("generating OIDC state", zap.Error(err))
		http.Redirect(w, r, "/login?error="+url.QueryEscape("Failed to initiate login"), http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, s.oidc.Provider.AuthCodeURL(stateData.State, stateData.Nonce), http.StatusSeeOther)
}

// handleOIDCCallback handles the OIDC callback after authentication.
func (s *Server) handleOIDCCallback(w http.ResponseWriter, r *http.Request) {
	if s.oidc == nil {
		http.Error(w, "OIDC authentication is not enabled", http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		errDesc := q.Get("error_description")
		if errDesc == "" {
			errDesc = errParam
		}
		s.logger.Warn("OIDC provider returned error", zap.String("error", errParam), zap.String("description", errDesc))
		http.Redirect(w, r, "/login?error="+url.QueryEscape(errDesc), http.StatusSeeOther)
		return
	}

	code := q.Get("code")
	if code == "" {
		http.Redirect(w, r, "/login?error="+url.QueryEscape("No authorization code received"), http.StatusSeeOther)
		return
	}

	stateData, err := s.oidc.State.Validate(r, q.Get("state"))
	if err != nil {
		s.logger.Warn("OIDC state validation failed", zap.Error(err))
		http.Redirect(w, r, "/login?error="+url.QueryEscape("Invalid state parameter"), http.StatusSeeOther)
		return
	}
	s.oidc.State.Clear(w)

	claims, err := s.oidc.Provider.Exchange(r.Context(), code, stateData.Nonce)
	if err != nil {
		s.logger.Error("OIDC token exchange failed", zap.Error(err))
		http.Redirect(w, r, "/login?error="+url.QueryEscape("Failed to complete authentication"), http.StatusSeeOther)
		return
	}
	if err := s.oidc.Provider.ValidateClaims(claims); err != nil {
		s.logger.Warn("OIDC claims rejected", zap.String("email", claims.Email), zap.Error(err))
		http.Redirect(w, r, "/login?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
		return
	}

	session := &auth.Session{Subject: claims.Subject, Email: claims.Email, Name: claims.Name}
	if err := s.oidc.Sessions.Create(w, session); err != nil {
		s.logger.Error("creating session", zap.Error(err))
		http.Redirect(w, r, "/login?error="+url.QueryEscape("Failed to create session"), http.StatusSeeOther)
		return
	}

	s.logger.Info("signed in", zap.String("email", claims.Email))
	target := stateData.ReturnTo
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// handleLogout clears the session and returns to the sign-in page, or to the
// provider's end-session URL when one is configured.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.oidc == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.oidc.Sessions.Clear(w)
	if s.oidc.LogoutURL != "" {
		http.Redirect(w, r, s.oidc.LogoutURL, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login?ok="+url.QueryEscape("Signed out"), http.StatusSeeOther)
}

// safeReturnTo keeps only local absolute paths.
func safeReturnTo(path string) string {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.HasPrefix(path, "/\\") {
		return ""
	}
	return path
}
