package handler

import (
	"net/http"

	"github.com/bcnelson/fulcrum-data-manager/internal/domain"
	"github.com/bcnelson/fulcrum-data-manager/internal/repository"
	"github.com/bcnelson/fulcrum-data-manager/internal/validation"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const setResource = "set"

// SetHandler handles set endpoints.
type SetHandler struct {
	sets   *repository.SetRepository
	schema validation.Schema
	logger *zap.Logger
}

// NewSetHandler creates a new SetHandler.
func NewSetHandler(sets *repository.SetRepository, schema validation.Schema, logger *zap.Logger) *SetHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SetHandler{sets: sets, schema: schema, logger: logger}
}

// List lists all sets with their aspects and tags.
func (h *SetHandler) List(w http.ResponseWriter, r *http.Request) {
	sets, err := h.sets.List(r.Context())
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, sets)
}

// Get gets a set by ID.
func (h *SetHandler) Get(w http.ResponseWriter, r *http.Request) {
	set, err := h.sets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	setETag(w, setResource, set.ID, set.UpdatedAt)
	respondJSON(w, http.StatusOK, set)
}

// Create creates a new set with its aspects.
func (h *SetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var form domain.SetForm
	if err := decodeJSON(w, r, &form); err != nil {
		respondInvalidBody(w)
		return
	}
	if errs := h.schema.ValidateSet(form); errs.HasErrors() {
		respondValidationErrors(w, errs)
		return
	}

	set, err := h.sets.Create(r.Context(), form)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	setETag(w, setResource, set.ID, set.UpdatedAt)
	respondJSON(w, http.StatusCreated, set)
}

// Update renames a set and replaces its aspects.
func (h *SetHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var form domain.SetForm
	if err := decodeJSON(w, r, &form); err != nil {
		respondInvalidBody(w)
		return
	}
	if errs := h.schema.ValidateSet(form); errs.HasErrors() {
		respondValidationErrors(w, errs)
		return
	}

	if r.Header.Get("If-Match") != "" {
		current, err := h.sets.Get(r.Context(), id)
		if err != nil {
			handleError(w, h.logger, err)
			return
		}
		if !checkIfMatch(r, setResource, current.ID, current.UpdatedAt) {
			respondPreconditionFailed(w, setResource, current.ID, current.UpdatedAt)
			return
		}
	}

	set, err := h.sets.Update(r.Context(), id, form)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	setETag(w, setResource, set.ID, set.UpdatedAt)
	respondJSON(w, http.StatusOK, set)
}

// Delete deletes a set together with its aspects and tag links.
func (h *SetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sets.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
