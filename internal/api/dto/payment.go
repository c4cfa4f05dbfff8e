package dto

// WebhookResponse acknowledges a provider webhook
type WebhookResponse struct {
	Received bool   `json:"received"`
	Type     string `json:"type,omitempty"`
}
