package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/remlyo/remlyo/internal/domain/entitlement"
	"github.com/remlyo/remlyo/internal/pkg/errors"
	"github.com/remlyo/remlyo/internal/pkg/logger"
	"github.com/remlyo/remlyo/internal/pkg/utils"
	"github.com/remlyo/remlyo/internal/pkg/validator"
)

// DecisionKey is the context key for the entitlement decision
const DecisionKey ContextKey = "entitlementDecision"

// URL parameters read by CheckSubscription
const (
	AilmentIDParam = "ailmentId"
	RemedyIDParam  = "remedyId"
)

// CheckSubscription gates a remedy route on the caller's entitlement.
// Denials get 403 with the required action; lookup failures never pass through.
func CheckSubscription(svc entitlement.Service, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserID(r)
			if !ok {
				utils.WriteError(w, errors.Unauthorized("User not authenticated"))
				return
			}

			ailmentID := chi.URLParam(r, AilmentIDParam)
			remedyID := chi.URLParam(r, RemedyIDParam)
			if !validator.IsResourceID(ailmentID) || !validator.IsResourceID(remedyID) {
				utils.WriteError(w, errors.BadRequest("Invalid ailment or remedy ID"))
				return
			}

			decision, err := svc.CheckAccess(r.Context(), userID, ailmentID, remedyID)
			if err != nil {
				log.WithFields(map[string]interface{}{
					"user_id":    userID,
					"ailment_id": ailmentID,
					"remedy_id":  remedyID,
				}).ErrorWithErr(err, "Entitlement check failed")
				utils.WriteAppError(w, err, "Failed to check access")
				return
			}

			AddLogField(w, "ailment_id", ailmentID)
			AddLogField(w, "remedy_id", remedyID)
			AddLogField(w, "access", decision.Allowed)

			if !decision.Allowed {
				AddLogField(w, "access_required", string(decision.Reason))
				utils.WriteDenied(w, decision.Message(), string(decision.Reason))
				return
			}

			ctx := context.WithValue(r.Context(), DecisionKey, decision)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetDecision extracts the decision stored by CheckSubscription
func GetDecision(r *http.Request) (entitlement.Decision, bool) {
	d, ok := r.Context().Value(DecisionKey).(entitlement.Decision)
	return d, ok
}
