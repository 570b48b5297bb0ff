package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bcnelson/fulcrum-data-manager/internal/domain"
	"github.com/bcnelson/fulcrum-data-manager/internal/export"
	"github.com/bcnelson/fulcrum-data-manager/internal/repository"
	"github.com/bcnelson/fulcrum-data-manager/internal/validation"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TagsListData holds data for the tags list page.
type TagsListData struct {
	Tags []*domain.Tag
}

// setRow is one set selector of the tag form.
type setRow struct {
	Index    int
	Selected string
	Options  []*domain.Set
	Error    string
}

// TagFormData holds data for the tag create/update form.
type TagFormData struct {
	ID     string // empty when creating
	Name   string
	Rows   []setRow
	Errors map[string]string
}

func tagFormTitle(id string) string {
	if id == "" {
		return "New Tag"
	}
	return "Update Tag"
}

// tagFormData builds the form view. A new form starts with one empty selector.
func tagFormData(id string, form domain.TagForm, options []*domain.Set, errs map[string]string) TagFormData {
	data := TagFormData{ID: id, Name: form.Name, Errors: errs}
	for i, setID := range form.SetIDs {
		data.Rows = append(data.Rows, setRow{
			Index:    i,
			Selected: setID,
			Options:  options,
			Error:    errs[fmt.Sprintf("setIds[%d]", i)],
		})
	}
	if id == "" && len(data.Rows) == 0 {
		data.Rows = []setRow{{Options: options}}
	}
	return data
}

// setOptions lists the sets offered by the selectors.
func (s *Server) setOptions(r *http.Request) ([]*domain.Set, error) {
	sets, err := s.sets.List(r.Context())
	if err != nil {
		s.logger.Error("listing set options", zap.String("step", repository.FailedStep(err)), zap.Error(err))
	}
	return sets, err
}

// handleTagsList renders the tags list page. A failed read is logged and
// shown as an empty list with an error flash.
func (s *Server) handleTagsList(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	flash := flashFromQuery(r)

	tags, err := s.tags.List(r.Context())
	if err != nil {
		s.logger.Error("listing tags", zap.String("step", repository.FailedStep(err)), zap.Error(err))
		status = http.StatusInternalServerError
		flash = &FlashMessage{Type: "error", Message: "Failed to load tags"}
		tags = nil
	}

	s.render(w, r, status, "tags_list", PageData{
		Title:   "Tags",
		Active:  "tags",
		Flash:   flash,
		Content: TagsListData{Tags: tags},
	})
}

// handleTagNew renders the empty tag form.
func (s *Server) handleTagNew(w http.ResponseWriter, r *http.Request) {
	options, err := s.setOptions(r)
	if err != nil {
		s.renderError(w, "Failed to load sets", http.StatusInternalServerError)
		return
	}
	s.render(w, r, http.StatusOK, "tag_form", PageData{
		Title:   tagFormTitle(""),
		Active:  "tags",
		Content: tagFormData("", domain.TagForm{}, options, nil),
	})
}

// handleSetRow returns one more empty set selector.
func (s *Server) handleSetRow(w http.ResponseWriter, r *http.Request) {
	options, err := s.setOptions(r)
	if err != nil {
		s.renderError(w, "Failed to load sets", http.StatusInternalServerError)
		return
	}
	s.renderFragment(w, "set_row", setRow{Options: options})
}

// handleTagCreate validates the posted form and creates the tag.
func (s *Server) handleTagCreate(w http.ResponseWriter, r *http.Request) {
	s.saveTag(w, r, "")
}

// handleTagEdit renders the update form filled with the stored tag.
func (s *Server) handleTagEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tag, err := s.tags.Get(r.Context(), id)
	if err != nil {
		s.renderRepoError(w, err, "Tag", "load tag")
		return
	}
	options, err := s.setOptions(r)
	if err != nil {
		s.renderError(w, "Failed to load sets", http.StatusInternalServerError)
		return
	}

	s.render(w, r, http.StatusOK, "tag_form", PageData{
		Title:   tagFormTitle(id),
		Active:  "tags",
		Content: tagFormData(id, tag.Form(), options, nil),
	})
}

// handleTagUpdate validates the posted form and replaces the tag.
func (s *Server) handleTagUpdate(w http.ResponseWriter, r *http.Request) {
	s.saveTag(w, r, chi.URLParam(r, "id"))
}

// saveTag creates (id == "") or updates a tag from the posted form.
func (s *Server) saveTag(w http.ResponseWriter, r *http.Request, id string) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	form := parseTagForm(r.PostForm)

	options, err := s.setOptions(r)
	if err != nil {
		s.renderError(w, "Failed to load sets", http.StatusInternalServerError)
		return
	}

	page := PageData{Title: tagFormTitle(id), Active: "tags"}

	if errs := validation.ValidateTag(form); errs.HasErrors() {
		page.Content = tagFormData(id, form, options, errs.ByField())
		s.render(w, r, http.StatusUnprocessableEntity, "tag_form", page)
		return
	}

	if id == "" {
		_, err = s.tags.Create(r.Context(), form)
	} else {
		_, err = s.tags.Update(r.Context(), id, form)
	}
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		s.renderError(w, "Tag not found", http.StatusNotFound)
		return
	case errors.Is(err, domain.ErrInvalidReference):
		page.Flash = &FlashMessage{Type: "error", Message: "One or more selected sets no longer exist."}
		page.Content = tagFormData(id, form, options, nil)
		s.render(w, r, http.StatusUnprocessableEntity, "tag_form", page)
		return
	default:
		s.logger.Error("saving tag", zap.String("tag_id", id), zap.String("step", repository.FailedStep(err)), zap.Error(err))
		page.Flash = &FlashMessage{Type: "error", Message: "Failed to save tag"}
		page.Content = tagFormData(id, form, options, nil)
		s.render(w, r, http.StatusInternalServerError, "tag_form", page)
		return
	}

	msg := "Tag+created"
	if id != "" {
		msg = "Tag+updated"
	}
	redirect(w, r, "/tags?ok="+msg)
}

// handleTagDelete deletes a tag on the second, confirming request.
func (s *Server) handleTagDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.handleDelete(w, r, id, "/tags", "Tag", func() error {
		return s.tags.Delete(r.Context(), id)
	})
}

// handleTagsExport downloads every tag with its related set names.
func (s *Server) handleTagsExport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.exporter.Export(r.Context())
	if err != nil {
		s.logger.Error("exporting tags", zap.Error(err))
		s.renderError(w, "Failed to export tags", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	if err := export.Write(w, doc); err != nil {
		s.logger.Warn("writing export", zap.Error(err))
	}
}
