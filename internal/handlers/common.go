// Package handlers exposes the transit and inventory services as a JSON API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/otiuna/sigpat/internal/apperr"
	"github.com/otiuna/sigpat/internal/auth"
	"github.com/otiuna/sigpat/internal/httpx"
	"github.com/otiuna/sigpat/internal/models"
	"github.com/otiuna/sigpat/internal/services"
	"gorm.io/gorm"
)

// writeError maps the service error taxonomy onto HTTP status codes.
// Validation violations ride in the details field.
func writeError(w http.ResponseWriter, err error) {
	var e *apperr.Error
	if errors.As(err, &e) {
		switch e.Kind {
		case apperr.KindValidation:
			httpx.JSONError(w, http.StatusBadRequest, e.Kind.String(), e.Fields)
		case apperr.KindUnauthorized:
			httpx.JSONError(w, http.StatusForbidden, e.Kind.String(), e.Message)
		case apperr.KindNotFound:
			httpx.JSONError(w, http.StatusNotFound, e.Kind.String(), e.Message)
		case apperr.KindStateConflict, apperr.KindDuplicate:
			httpx.JSONError(w, http.StatusConflict, e.Kind.String(), e.Message)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		}
		return
	}
	httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
}

// currentActor resolves the authenticated user into a workflow actor.
// RequireAuth runs before the handlers, so a missing user means the
// session points at a deleted account.
func currentActor(db *gorm.DB, r *http.Request) (services.Actor, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return services.Actor{}, apperr.Unauthorized("no authenticated user")
	}
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return services.Actor{}, apperr.Unauthorized("user no longer exists")
		}
		return services.Actor{}, err
	}
	return services.Actor{UserID: user.ID, DependencyID: user.DependencyID}, nil
}

// decode reads the JSON request body into dst.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation(map[string]string{"body": "invalid_json"})
	}
	return nil
}

// pathID parses the {id} path segment.
func pathID(r *http.Request, name string) (uint, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation(map[string]string{name: "invalid_id"})
	}
	return uint(id), nil
}

// queryInt parses an integer query parameter with a default.
func queryInt(r *http.Request, name string, def int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return def
}

// pagedResponse is the envelope for paginated list endpoints.
type pagedResponse struct {
	Items any   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}
