package client

import (
	"errors"
	"fmt"
	"strings"
)

// Actions an entitlement denial can require
const (
	RequiredSubscription = "subscription"
	RequiredUpgrade      = "upgrade"
	RequiredPurchase     = "purchase"
)

// APIError represents an error returned by the API
type APIError struct {
	StatusCode int                    `json:"-"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	// Required is set on entitlement denials: subscription, upgrade or purchase
	Required string `json:"-"`
}

func newAPIError(status int, env *envelope, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	switch {
	case env.Error != nil:
		*apiErr = *env.Error
		apiErr.StatusCode = status
		if r, ok := apiErr.Details["required"].(string); ok {
			apiErr.Required = r
		}
	case env.Required != "":
		apiErr.Code = "FORBIDDEN"
		apiErr.Message = env.Message
		apiErr.Required = env.Required
	default:
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := e.Message
	if e.Required != "" {
		msg = fmt.Sprintf("%s (requires %s)", msg, e.Required)
	}
	if e.Code != "" {
		return fmt.Sprintf("API error [%s]: %s (status: %d)", e.Code, msg, e.StatusCode)
	}
	return fmt.Sprintf("API error: %s (status: %d)", msg, e.StatusCode)
}

// IsNotFound returns true if the error is a 404 not found error
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsUnauthorized returns true if the error is a 401 unauthorized error
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// IsForbidden returns true if the error is a 403 forbidden error
func (e *APIError) IsForbidden() bool {
	return e.StatusCode == 403
}

// IsValidationError returns true if the error is a 400 validation error
func (e *APIError) IsValidationError() bool {
	return e.StatusCode == 400
}

// IsConflict returns true if the error is a 409 conflict
func (e *APIError) IsConflict() bool {
	return e.StatusCode == 409
}

// IsServerError returns true if the error is a 5xx server error
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// RequiredAction returns the action an entitlement denial asks for, or ""
func RequiredAction(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Required
	}
	return ""
}
