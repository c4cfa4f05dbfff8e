package handlers

import (
	"net/http"

	"github.com/remlyo/remlyo/internal/api/dto"
	"github.com/remlyo/remlyo/internal/domain/entitlement"
	"github.com/remlyo/remlyo/internal/domain/payment"
	"github.com/remlyo/remlyo/internal/pkg/logger"
	"github.com/remlyo/remlyo/internal/pkg/utils"
	"github.com/remlyo/remlyo/internal/pkg/validator"
)

// RemedyHandler handles remedy viewing and purchase
type RemedyHandler struct {
	entitlements entitlement.Service
	payments     payment.Service
	logger       *logger.Logger
	validator    *validator.Validator
}

// NewRemedyHandler creates a new remedy handler
func NewRemedyHandler(entitlements entitlement.Service, payments payment.Service, log *logger.Logger, val *validator.Validator) *RemedyHandler {
	return &RemedyHandler{
		entitlements: entitlements,
		payments:     payments,
		logger:       log,
		validator:    val,
	}
}

// View records a remedy view for the caller
// @Summary View a remedy
// @Description Records the view against the free-tier allowance. Mounted behind the subscription check.
// @Tags Remedies
// @Produce json
// @Param ailmentId path string true "Ailment ID"
// @Param remedyId path string true "Remedy ID"
// @Success 200 {object} dto.RemedyAccessResponse
// @Failure 403 {object} utils.DeniedResponse
// @Security BearerAuth
// @Router /remedies/{ailmentId}/{remedyId}/access [get]
func (h *RemedyHandler) View(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	ailmentID, remedyID, ok := remedyParams(w, r, h.validator)
	if !ok {
		return
	}

	d, access, err := h.entitlements.RecordView(r.Context(), userID, ailmentID, remedyID)
	if err != nil {
		writeServiceError(w, err, "Failed to record view")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.NewRemedyAccessResponse(ailmentID, remedyID, d, access))
}

// Purchase buys a remedy under the pay-per-remedy plan
// @Summary Purchase a remedy
// @Description Completes immediately without a payment provider, otherwise returns a payment intent to confirm
// @Tags Remedies
// @Produce json
// @Param ailmentId path string true "Ailment ID"
// @Param remedyId path string true "Remedy ID"
// @Success 200 {object} payment.Purchase "Already owned"
// @Success 201 {object} payment.Purchase "Purchase completed"
// @Success 202 {object} payment.Purchase "Awaiting payment"
// @Failure 403 {object} utils.DeniedResponse
// @Failure 402 {object} utils.ErrorResponse
// @Security BearerAuth
// @Router /remedies/{ailmentId}/{remedyId}/purchase [post]
func (h *RemedyHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	ailmentID, remedyID, ok := remedyParams(w, r, h.validator)
	if !ok {
		return
	}

	p, err := h.payments.StartPurchase(r.Context(), userID, ailmentID, remedyID)
	if err != nil {
		writeServiceError(w, err, "Failed to purchase remedy")
		return
	}

	status := http.StatusOK
	switch p.Status {
	case payment.PurchaseCompleted:
		status = http.StatusCreated
	case payment.PurchasePending:
		status = http.StatusAccepted
	}

	utils.WriteSuccess(w, status, p)
}
