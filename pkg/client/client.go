package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the Remlyo API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string // JWT token for authenticated requests
}

// Config holds the client configuration
type Config struct {
	BaseURL    string        // API base URL (e.g., "https://api.remlyo.io")
	Timeout    time.Duration // HTTP client timeout (default: 30s)
	HTTPClient *http.Client  // Optional custom HTTP client
}

// NewClient creates a new Remlyo API client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

// SetToken sets the JWT token for authenticated requests
func (c *Client) SetToken(token string) {
	c.token = token
}

// GetToken returns the current JWT token
func (c *Client) GetToken() string {
	return c.token
}

// envelope is the response wrapper used by every API endpoint
type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data,omitempty"`
	Message  string          `json:"message,omitempty"`
	Required string          `json:"required,omitempty"`
	Error    *APIError       `json:"error,omitempty"`
}

// doRequest performs an HTTP request and decodes the envelope's data into result
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	_, err := c.do(ctx, method, path, body, result)
	return err
}

// do is doRequest that also returns the HTTP status and envelope message
func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}) (*response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// Perform request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &env); err != nil && resp.StatusCode < 400 {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	if resp.StatusCode >= 400 {
		return nil, newAPIError(resp.StatusCode, &env, respBody)
	}

	if result != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return nil, fmt.Errorf("failed to parse response data: %w", err)
		}
	}

	return &response{StatusCode: resp.StatusCode, Message: env.Message}, nil
}

// response carries the parts of a successful reply that are not data
type response struct {
	StatusCode int
	Message    string
}

// Plans returns the plan catalog service
func (c *Client) Plans() *PlanService {
	return &PlanService{client: c}
}

// Subscriptions returns the subscription service
func (c *Client) Subscriptions() *SubscriptionService {
	return &SubscriptionService{client: c}
}

// Remedies returns the remedy access service
func (c *Client) Remedies() *RemedyService {
	return &RemedyService{client: c}
}

// Payments returns the payment service
func (c *Client) Payments() *PaymentService {
	return &PaymentService{client: c}
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}
