package handlers

import (
	"fmt"
	"net/http"

	"github.com/remlyo/remlyo/internal/api/dto"
	"github.com/remlyo/remlyo/internal/domain/entitlement"
	"github.com/remlyo/remlyo/internal/domain/plan"
	"github.com/remlyo/remlyo/internal/domain/subscription"
	"github.com/remlyo/remlyo/internal/pkg/logger"
	"github.com/remlyo/remlyo/internal/pkg/utils"
	"github.com/remlyo/remlyo/internal/pkg/validator"
)

// SubscriptionHandler handles plan and subscription requests
type SubscriptionHandler struct {
	plans         plan.Service
	subscriptions subscription.Service
	entitlements  entitlement.Service
	logger        *logger.Logger
	validator     *validator.Validator
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(
	plans plan.Service,
	subscriptions subscription.Service,
	entitlements entitlement.Service,
	log *logger.Logger,
	val *validator.Validator,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		plans:         plans,
		subscriptions: subscriptions,
		entitlements:  entitlements,
		logger:        log,
		validator:     val,
	}
}

// Initialize seeds the default plans
// @Summary Seed default plans
// @Description Upsert the free, premium and pay-per-remedy plans. Safe to call repeatedly.
// @Tags Subscriptions
// @Produce json
// @Success 200 {object} dto.InitializeResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security BearerAuth
// @Router /subscriptions/initialize [post]
func (h *SubscriptionHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	written := h.plans.EnsureDefaults(r.Context())

	utils.WriteSuccessWithMessage(w, http.StatusOK,
		fmt.Sprintf("Plans initialized (%d of %d)", written, len(plan.Names())),
		dto.InitializeResponse{Written: written, Version: plan.CatalogVersion},
	)
}

// ListPlans returns the active plans
// @Summary List plans
// @Description List active plans ordered by price
// @Tags Subscriptions
// @Produce json
// @Success 200 {array} plan.Plan
// @Failure 500 {object} utils.ErrorResponse
// @Router /subscriptions/plans [get]
func (h *SubscriptionHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.List(r.Context())
	if err != nil {
		utils.WriteAppError(w, err, "Failed to list plans")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, plans)
}

// Subscribe subscribes the caller to a plan
// @Summary Subscribe to a plan
// @Description Start a subscription, cancelling any active one
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param request body dto.SubscribeRequest true "Plan to subscribe to, by id or name"
// @Success 201 {object} subscription.Subscription
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse "Plan not found"
// @Failure 409 {object} utils.ErrorResponse "Concurrent change in progress"
// @Security BearerAuth
// @Router /subscriptions/subscribe [post]
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req dto.SubscribeRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	planID := req.PlanID
	if planID == "" {
		p, err := h.plans.GetByName(r.Context(), req.Plan)
		if err != nil {
			utils.WriteAppError(w, err, "Failed to get plan")
			return
		}
		planID = p.ID
	}

	sub, err := h.subscriptions.Subscribe(r.Context(), userID, planID)
	if err != nil {
		utils.WriteAppError(w, err, "Failed to subscribe")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, sub)
}

// Current returns the caller's active subscription
// @Summary Get current subscription
// @Tags Subscriptions
// @Produce json
// @Success 200 {object} subscription.Subscription
// @Failure 404 {object} utils.ErrorResponse "No active subscription"
// @Security BearerAuth
// @Router /subscriptions/current [get]
func (h *SubscriptionHandler) Current(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	sub, err := h.subscriptions.GetCurrent(r.Context(), userID)
	if err != nil {
		utils.WriteAppError(w, err, "Failed to get subscription")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, sub)
}

// Cancel cancels the caller's active subscription
// @Summary Cancel subscription
// @Tags Subscriptions
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse "No active subscription"
// @Security BearerAuth
// @Router /subscriptions/cancel [post]
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.subscriptions.Cancel(r.Context(), userID); err != nil {
		utils.WriteAppError(w, err, "Failed to cancel subscription")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Subscription cancelled successfully", nil)
}

// History returns every subscription the caller has held
// @Summary Subscription history
// @Tags Subscriptions
// @Produce json
// @Success 200 {array} subscription.Subscription
// @Security BearerAuth
// @Router /subscriptions/history [get]
func (h *SubscriptionHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	subs, err := h.subscriptions.History(r.Context(), userID)
	if err != nil {
		utils.WriteAppError(w, err, "Failed to get subscription history")
		return
	}
	if subs == nil {
		subs = []*subscription.Subscription{}
	}

	utils.WriteSuccess(w, http.StatusOK, subs)
}

// CheckAccess reports whether the caller may view a remedy
// @Summary Check remedy access
// @Description Evaluate access without recording a view. Callers without an active subscription get 403.
// @Tags Subscriptions
// @Produce json
// @Param ailmentId path string true "Ailment ID"
// @Param remedyId path string true "Remedy ID"
// @Success 200 {object} dto.AccessResponse
// @Failure 403 {object} utils.DeniedResponse
// @Security BearerAuth
// @Router /subscriptions/check-access/{ailmentId}/{remedyId} [get]
func (h *SubscriptionHandler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	ailmentID, remedyID, ok := remedyParams(w, r, h.validator)
	if !ok {
		return
	}

	d, err := h.entitlements.CheckAccess(r.Context(), userID, ailmentID, remedyID)
	if err != nil {
		h.logger.WithFields(map[string]interface{}{
			"user_id":    userID,
			"ailment_id": ailmentID,
		}).ErrorWithErr(err, "Access check failed")
		utils.WriteAppError(w, err, "Failed to check access")
		return
	}

	if d.Reason == entitlement.ReasonSubscription {
		writeDenied(w, d)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.AccessResponse{
		HasAccess: d.Allowed,
		Reason:    d.Reason,
		Plan:      d.Plan,
	})
}
