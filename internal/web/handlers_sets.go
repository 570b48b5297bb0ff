package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bcnelson/fulcrum-data-manager/internal/domain"
	"github.com/bcnelson/fulcrum-data-manager/internal/repository"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SetsListData holds data for the sets list page.
type SetsListData struct {
	Sets []*domain.Set
}

// aspectField is one aspect block of the set form.
type aspectField struct {
	Index  int
	Name   string
	Values []string // padded with blanks to the number of inputs shown
	Errors map[string]string
}

// addAspectData feeds the add_aspect_button component.
type addAspectData struct {
	Next int
	OOB  bool
}

// SetFormData holds data for the set create/update form.
type SetFormData struct {
	ID        string // empty when creating
	Name      string
	Aspects   []aspectField
	Errors    map[string]string
	AddAspect addAspectData
	Schema    string // value-count rule shown as a hint
}

func (s *Server) valueSlots(have int) int {
	return max(s.schema.MaxValues, have)
}

func (s *Server) schemaHint() string {
	if s.schema.Exact() {
		return "Each aspect needs exactly " + strconv.Itoa(s.schema.MinValues) + " values."
	}
	return "Each aspect needs " + strconv.Itoa(s.schema.MinValues) + " to " + strconv.Itoa(s.schema.MaxValues) + " values."
}

func (s *Server) blankAspect(index int) aspectField {
	return aspectField{Index: index, Values: make([]string, s.valueSlots(0))}
}

// setFormData builds the form view. A form without aspects starts with one
// blank aspect block.
func (s *Server) setFormData(id string, form domain.SetForm, errs map[string]string) SetFormData {
	data := SetFormData{ID: id, Name: form.Name, Errors: errs, Schema: s.schemaHint()}
	for i, a := range form.Aspects {
		values := make([]string, s.valueSlots(len(a.Values)))
		copy(values, a.Values)
		data.Aspects = append(data.Aspects, aspectField{Index: i, Name: a.Name, Values: values, Errors: errs})
	}
	if len(data.Aspects) == 0 {
		data.Aspects = []aspectField{s.blankAspect(0)}
	}
	data.AddAspect = addAspectData{Next: len(data.Aspects)}
	return data
}

func setFormTitle(id string) string {
	if id == "" {
		return "New Set"
	}
	return "Update Set"
}

// handleSetsList renders the sets list page. A failed read is logged and
// shown as an empty list with an error flash.
func (s *Server) handleSetsList(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	flash := flashFromQuery(r)

	sets, err := s.sets.List(r.Context())
	if err != nil {
		s.logger.Error("listing sets", zap.String("step", repository.FailedStep(err)), zap.Error(err))
		status = http.StatusInternalServerError
		flash = &FlashMessage{Type: "error", Message: "Failed to load sets"}
		sets = nil
	}

	s.render(w, r, status, "sets_list", PageData{
		Title:   "Sets",
		Active:  "sets",
		Flash:   flash,
		Content: SetsListData{Sets: sets},
	})
}

// handleSetNew renders the empty set form.
func (s *Server) handleSetNew(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "set_form", PageData{
		Title:   setFormTitle(""),
		Active:  "sets",
		Content: s.setFormData("", domain.SetForm{}, nil),
	})
}

// handleAspectRow returns a blank aspect block for ?index=N together with an
// out-of-band add button pointing at N+1.
func (s *Server) handleAspectRow(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil || index < 0 {
		s.renderError(w, "Invalid aspect index", http.StatusBadRequest)
		return
	}
	s.renderFragment(w, "new_aspect", map[string]any{
		"Row":       s.blankAspect(index),
		"AddAspect": addAspectData{Next: index + 1, OOB: true},
	})
}

// handleSetCreate validates the posted form and creates the set.
func (s *Server) handleSetCreate(w http.ResponseWriter, r *http.Request) {
	s.saveSet(w, r, "")
}

// handleSetEdit renders the update form filled with the stored set.
func (s *Server) handleSetEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	set, err := s.sets.Get(r.Context(), id)
	if err != nil {
		s.renderRepoError(w, err, "Set", "load set")
		return
	}

	s.render(w, r, http.StatusOK, "set_form", PageData{
		Title:   setFormTitle(id),
		Active:  "sets",
		Content: s.setFormData(id, set.Form(), nil),
	})
}

// handleSetUpdate validates the posted form and replaces the set.
func (s *Server) handleSetUpdate(w http.ResponseWriter, r *http.Request) {
	s.saveSet(w, r, chi.URLParam(r, "id"))
}

// saveSet creates (id == "") or updates a set from the posted form.
// Validation failures re-render the form with per-field messages.
func (s *Server) saveSet(w http.ResponseWriter, r *http.Request, id string) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	form := parseSetForm(r.PostForm)

	page := PageData{Title: setFormTitle(id), Active: "sets"}

	if errs := s.schema.ValidateSet(form); errs.HasErrors() {
		page.Content = s.setFormData(id, form, errs.ByField())
		s.render(w, r, http.StatusUnprocessableEntity, "set_form", page)
		return
	}

	var err error
	if id == "" {
		_, err = s.sets.Create(r.Context(), form)
	} else {
		_, err = s.sets.Update(r.Context(), id, form)
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.renderError(w, "Set not found", http.StatusNotFound)
			return
		}
		s.logger.Error("saving set", zap.String("set_id", id), zap.String("step", repository.FailedStep(err)), zap.Error(err))
		page.Flash = &FlashMessage{Type: "error", Message: "Failed to save set"}
		page.Content = s.setFormData(id, form, nil)
		s.render(w, r, http.StatusInternalServerError, "set_form", page)
		return
	}

	msg := "Set+created"
	if id != "" {
		msg = "Set+updated"
	}
	redirect(w, r, "/sets?ok="+msg)
}

// handleSetDelete deletes a set on the second, confirming request.
func (s *Server) handleSetDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.handleDelete(w, r, id, "/sets", "Set", func() error {
		return s.sets.Delete(r.Context(), id)
	})
}
