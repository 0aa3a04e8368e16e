// Package gateway is the client for the outbound text/email delivery
// provider. The core depends only on this request/response contract,
// not on the provider's internals.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a client for the delivery gateway API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Request is one outbound delivery.
type Request struct {
	RecipientAddress string            `json:"recipient_address"`
	Channel          string            `json:"channel"`
	Body             string            `json:"body"`
	Subject          string            `json:"subject,omitempty"`
	MessageID        int64             `json:"message_id"`
	EventID          int64             `json:"event_id"`
	AttendeeID       *int64            `json:"attendee_id,omitempty"`
	MessageType      string            `json:"message_type"`
	Tags             map[string]string `json:"tags,omitempty"`
}

// Response is the gateway's delivery acceptance. No synchronous
// delivery confirmation is assumed.
type Response struct {
	Accepted   bool   `json:"accepted"`
	ProviderID string `json:"provider_id,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// NewClient creates a new delivery gateway client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send submits one message for delivery.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !result.Accepted {
		return nil, fmt.Errorf("gateway rejected message: %s", result.Detail)
	}

	return &result, nil
}
