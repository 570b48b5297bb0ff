package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bcnelson/fulcrum-data-manager/internal/domain"
	"github.com/bcnelson/fulcrum-data-manager/internal/repository"
	"github.com/bcnelson/fulcrum-data-manager/internal/validation"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondStandardError writes a domain.StandardErrorResponse.
func respondStandardError(w http.ResponseWriter, status int, code, message, field string, details map[string]any) {
	respondJSON(w, status, domain.StandardErrorResponse{
		Error: domain.StandardError{
			Code:    code,
			Message: message,
			Field:   field,
			Details: details,
		},
	})
}

// handleError converts repository errors to HTTP errors. Unexpected failures
// are logged with the step that failed; the client only sees a generic message.
func handleError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondStandardError(w, http.StatusNotFound, domain.ErrCodeResourceNotFound, "not found", "", nil)
	case errors.Is(err, domain.ErrInvalidReference):
		respondStandardError(w, http.StatusBadRequest, domain.ErrCodeInvalidReference,
			"referenced resource does not exist", "", nil)
	case errors.Is(err, domain.ErrAlreadyExists):
		respondStandardError(w, http.StatusConflict, domain.ErrCodeResourceAlreadyExists, "already exists", "", nil)
	case errors.Is(err, domain.ErrInvalidInput):
		respondStandardError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid input", "", nil)
	default:
		logger.Error("request failed", zap.String("step", repository.FailedStep(err)), zap.Error(err))
		respondStandardError(w, http.StatusInternalServerError, domain.ErrCodeInternalError,
			"internal server error", "", nil)
	}
}

// decodeJSON decodes a bounded JSON request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}

// respondInvalidBody writes the 400 for an undecodable body.
func respondInvalidBody(w http.ResponseWriter) {
	respondStandardError(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body", "", nil)
}

// respondValidationErrors writes a JSON response for multiple validation errors.
func respondValidationErrors(w http.ResponseWriter, errs validation.ValidationErrors) {
	respondJSON(w, http.StatusBadRequest, map[string]any{
		"errors": errs,
	})
}
