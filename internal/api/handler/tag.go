package handler

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

const tagResource = "tag"

// TagHandler handles tag endpoints.
type TagHandler struct {
	tags     *repository.TagRepository
	exporter *export.Exporter
	logger   *zap.Logger
}

// NewTagHandler creates a new TagHandler.
func NewTagHandler(tags *repository.TagRepository, logger *zap.Logger) *TagHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TagHandler{tags: tags, exporter: export.New(tags), logger: logger}
}

// List lists all tags with their related sets.
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.List(r.Context())
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, tags)
}

// Get gets a tag by ID.
func (h *TagHandler) Get(w http.ResponseWriter, r *http.Request) {
	tag, err := h.tags.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	setETag(w, tagResource, tag.ID, tag.UpdatedAt)
	respondJSON(w, http.StatusOK, tag)
}

// Create creates a new tag linked to the given sets.
func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	var form domain.TagForm
	if err := decodeJSON(w, r, &form); err != nil {
		respondInvalidBody(w)
		return
	}
	if errs := validation.ValidateTag(form); errs.HasErrors() {
		respondValidationErrors(w, errs)
		return
	}

	tag, err := h.tags.Create(r.Context(), form)
	if err != nil {
		h.handleWriteError(w, err)
		return
	}
	setETag(w, tagResource, tag.ID, tag.UpdatedAt)
	respondJSON(w, http.StatusCreated, tag)
}

// Update renames a tag and replaces its set links.
func (h *TagHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var form domain.TagForm
	if err := decodeJSON(w, r, &form); err != nil {
		respondInvalidBody(w)
		return
	}
	if errs := validation.ValidateTag(form); errs.HasErrors() {
		respondValidationErrors(w, errs)
		return
	}

	if r.Header.Get("If-Match") != "" {
		current, err := h.tags.Get(r.Context(), id)
		if err != nil {
			handleError(w, h.logger, err)
			return
		}
		if !checkIfMatch(r, tagResource, current.ID, current.UpdatedAt) {
			respondPreconditionFailed(w, tagResource, current.ID, current.UpdatedAt)
			return
		}
	}

	tag, err := h.tags.Update(r.Context(), id, form)
	if err != nil {
		h.handleWriteError(w, err)
		return
	}
	setETag(w, tagResource, tag.ID, tag.UpdatedAt)
	respondJSON(w, http.StatusOK, tag)
}

// Delete deletes a tag and its set links.
func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.tags.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export serves every tag with its related set names as a download.
func (h *TagHandler) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.exporter.Export(r.Context())
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	if err := export.Write(w, doc); err != nil {
		h.logger.Warn("writing export", zap.Error(err))
	}
}

// handleWriteError points an invalid set reference at the setIds field.
func (h *TagHandler) handleWriteError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidReference) {
		respondStandardError(w, http.StatusBadRequest, domain.ErrCodeInvalidReference,
			"one or more sets do not exist", "setIds", nil)
		return
	}
	handleError(w, h.logger, err)
}
