package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remlyo/remlyo/internal/api/dto"
	"github.com/remlyo/remlyo/internal/api/middleware"
	"github.com/remlyo/remlyo/internal/domain/entitlement"
	"github.com/remlyo/remlyo/internal/pkg/errors"
	"github.com/remlyo/remlyo/internal/pkg/utils"
	"github.com/remlyo/remlyo/internal/pkg/validator"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// requireUserID extracts the authenticated user or writes 401
func requireUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("User not authenticated"))
		return 0, false
	}
	return userID, true
}

// decodeJSON reads a bounded JSON body into dst and validates it
func decodeJSON(w http.ResponseWriter, r *http.Request, val *validator.Validator, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return false
	}
	if validationErrs := val.Validate(dst); len(validationErrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", validationErrs))
		return false
	}
	return true
}

// remedyParams reads and validates the ailment and remedy URL parameters
func remedyParams(w http.ResponseWriter, r *http.Request, val *validator.Validator) (string, string, bool) {
	params := dto.RemedyParams{
		AilmentID: chi.URLParam(r, middleware.AilmentIDParam),
		RemedyID:  chi.URLParam(r, middleware.RemedyIDParam),
	}
	if validationErrs := val.Validate(params); len(validationErrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Invalid ailment or remedy ID", validationErrs))
		return "", "", false
	}
	return params.AilmentID, params.RemedyID, true
}

// writeDenied writes the entitlement denial body used by CheckSubscription
func writeDenied(w http.ResponseWriter, d entitlement.Decision) {
	middleware.AddLogField(w, "access_required", string(d.Reason))
	utils.WriteDenied(w, d.Message(), string(d.Reason))
}

// writeServiceError writes err, using the denial body for forbidden
// errors that name a required action
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	if appErr, ok := errors.As(err); ok && appErr.Code == errors.ErrCodeForbidden {
		if details, ok := appErr.Details.(map[string]interface{}); ok {
			if reason, ok := details["required"].(entitlement.Reason); ok {
				middleware.AddLogField(w, "access_required", string(reason))
				utils.WriteDenied(w, appErr.Message, string(reason))
				return
			}
		}
	}
	utils.WriteAppError(w, err, fallback)
}
