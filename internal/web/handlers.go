package web

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/bcnelson/fulcrum-data-manager/internal/auth"
	"github.com/bcnelson/fulcrum-data-manager/internal/domain"
	"github.com/bcnelson/fulcrum-data-manager/internal/repository"
	"go.uber.org/zap"
)

// render renders a full page using the base template.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data PageData) {
	tmpl, ok := s.templates[page]
	if !ok {
		http.Error(w, "Template not found: "+page, http.StatusInternalServerError)
		return
	}
	if sess := auth.SessionFromContext(r.Context()); sess != nil {
		data.User = sess.DisplayName()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		s.logger.Error("rendering page", zap.String("page", page), zap.Error(err))
	}
}

// renderFragment renders one shared component for htmx requests.
func (s *Server) renderFragment(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.components.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("rendering fragment", zap.String("fragment", name), zap.Error(err))
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

// renderError renders an error message.
func (s *Server) renderError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`<div class="flash flash-error">` + template.HTMLEscapeString(message) + `</div>`))
}

// renderRepoError maps a repository failure to an error fragment. what names
// the entity for the user, e.g. "Set".
func (s *Server) renderRepoError(w http.ResponseWriter, err error, what, action string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.renderError(w, what+" not found", http.StatusNotFound)
	default:
		s.logger.Error(action+" failed", zap.String("step", repository.FailedStep(err)), zap.Error(err))
		s.renderError(w, "Failed to "+action, http.StatusInternalServerError)
	}
}

// redirect sends htmx requests to target through HX-Redirect and everything
// else through a 303.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// flashFromQuery turns ?ok=... and ?error=... into a flash message.
func flashFromQuery(r *http.Request) *FlashMessage {
	q := r.URL.Query()
	if msg := q.Get("error"); msg != "" {
		return &FlashMessage{Type: "error", Message: msg}
	}
	if msg := q.Get("ok"); msg != "" {
		return &FlashMessage{Type: "success", Message: msg}
	}
	return nil
}

// deleteButtonData feeds the delete_button component.
type deleteButtonData struct {
	Path    string // e.g. /sets/{id}
	ID      string
	Confirm bool // second step: the button reads "Sure?"
}

// handleDelete implements the two-click delete shared by sets and tags: a
// request without confirm={id} only swaps in the "Sure?" button; a matching
// confirm deletes and sends the browser back to list.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, id, list, what string, del func() error) {
	if r.FormValue("confirm") != id {
		s.renderFragment(w, "delete_button", deleteButtonData{Path: list + "/" + id, ID: id, Confirm: true})
		return
	}
	if err := del(); err != nil {
		s.renderRepoError(w, err, what, "delete "+strings.ToLower(what))
		return
	}
	redirect(w, r, list+"?ok="+url.QueryEscape(what+" deleted"))
}
