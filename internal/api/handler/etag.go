package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bcnelson/fulcrum-data-manager/internal/domain"
)

// GenerateETag generates an ETag for a resource based on its ID and updated_at timestamp.
// Format: "<resource_type>-<id>-<updated_at_unix_nano>"
func GenerateETag(resourceType, id string, updatedAt time.Time) string {
	return fmt.Sprintf(`"%s-%s-%d"`, resourceType, id, updatedAt.UnixNano())
}

// setETag sets the ETag header on the response.
func setETag(w http.ResponseWriter, resourceType, id string, updatedAt time.Time) {
	w.Header().Set("ETag", GenerateETag(resourceType, id, updatedAt))
}

// checkIfMatch reports whether the request may modify the resource: either it
// carries no If-Match header or the header names the current version.
func checkIfMatch(r *http.Request, resourceType, id string, updatedAt time.Time) bool {
	ifMatch := r.Header.Get("If-Match")
	if ifMatch == "" || ifMatch == "*" {
		return true
	}
	return ifMatch == GenerateETag(resourceType, id, updatedAt)
}

// respondPreconditionFailed writes a 412 carrying the current ETag.
func respondPreconditionFailed(w http.ResponseWriter, resourceType, id string, updatedAt time.Time) {
	current := GenerateETag(resourceType, id, updatedAt)
	w.Header().Set("ETag", current)
	respondStandardError(w, http.StatusPreconditionFailed, domain.ErrCodePreconditionFailed,
		"resource has been modified", "", map[string]any{
			"currentETag": current,
		})
}
