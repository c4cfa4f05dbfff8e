package dto

import (
	"github.com/remlyo/remlyo/internal/domain/entitlement"
	"github.com/remlyo/remlyo/internal/domain/plan"
	"github.com/remlyo/remlyo/internal/domain/subscription"
)

// SubscribeRequest represents a subscribe request. Plan is used when PlanID is empty.
type SubscribeRequest struct {
	PlanID string    `json:"planId,omitempty" validate:"required_without=Plan,max=64"`
	Plan   plan.Name `json:"plan,omitempty" validate:"omitempty,planname"`
}

// RemedyParams are the ailment and remedy URL parameters
type RemedyParams struct {
	AilmentID string `json:"ailmentId" validate:"required,resourceid"`
	RemedyID  string `json:"remedyId" validate:"required,resourceid"`
}

// InitializeResponse reports how many default plans were written
type InitializeResponse struct {
	Written int `json:"written"`
	Version int `json:"version"`
}

// AccessResponse is the body of a successful access check
type AccessResponse struct {
	HasAccess bool               `json:"hasAccess"`
	Reason    entitlement.Reason `json:"reason,omitempty"`
	Plan      plan.Name          `json:"plan,omitempty"`
}

// RemedyAccessResponse is returned after a remedy view is recorded
type RemedyAccessResponse struct {
	AilmentID        string    `json:"ailmentId"`
	RemedyID         string    `json:"remedyId"`
	HasAccess        bool      `json:"hasAccess"`
	Plan             plan.Name `json:"plan"`
	AccessCount      int       `json:"accessCount"`
	AccessedRemedies []string  `json:"accessedRemedies"`
}

// NewRemedyAccessResponse builds the view response; a may be nil
func NewRemedyAccessResponse(ailmentID, remedyID string, d entitlement.Decision, a *subscription.RemedyAccess) *RemedyAccessResponse {
	resp := &RemedyAccessResponse{
		AilmentID:        ailmentID,
		RemedyID:         remedyID,
		HasAccess:        d.Allowed,
		Plan:             d.Plan,
		AccessedRemedies: []string{},
	}
	if a != nil {
		resp.AccessCount = a.AccessCount
		if a.AccessedRemedies != nil {
			resp.AccessedRemedies = a.AccessedRemedies
		}
	}
	return resp
}
