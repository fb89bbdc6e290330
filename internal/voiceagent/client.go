// Package voiceagent provides the HTTP client for the outbound AI voice-call
// provider. It implements the customer module's CallDispatcher contract.
package voiceagent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"voicecrm_backend/platform/config"
	"voicecrm_backend/platform/logger"
)

// metadataCustomerIDKey is the metadata field carrying our customer id
// through the provider and back on webhooks and tool calls.
const metadataCustomerIDKey = "our_customer_id"

// Client is the HTTP client for the voice-call provider.
type Client struct {
	httpClient *http.Client
	cfg        config.VoiceAgentConfig
	log        *logger.Logger
}

// NewClient creates a new voice provider client.
func NewClient(cfg config.VoiceAgentConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cfg:        cfg,
		log:        log,
	}
}

type createCallRequest struct {
	AgentID          string            `json:"agent_id"`
	ToNumber         string            `json:"to_number"`
	FromNumber       string            `json:"from_number"`
	DynamicVariables map[string]string `json:"retell_llm_dynamic_variables,omitempty"`
	StatusUpdatesURL string            `json:"call_status_updates_url,omitempty"`
	Metadata         map[string]any    `json:"metadata"`
}

// Dispatch asks the provider to place an outbound call to the customer. The
// customer id travels in the call metadata so the analysis webhook can
// correlate the outcome back to the record.
func (c *Client) Dispatch(ctx context.Context, customerID int64, name, phoneNumber string) error {
	if c.cfg.GetVoiceAgentAPIKey() == "" || c.cfg.GetVoiceAgentID() == "" || c.cfg.GetVoiceAgentFromNumber() == "" {
		return fmt.Errorf("voice provider is not fully configured")
	}

	payload := createCallRequest{
		AgentID:    c.cfg.GetVoiceAgentID(),
		ToNumber:   phoneNumber,
		FromNumber: c.cfg.GetVoiceAgentFromNumber(),
		DynamicVariables: map[string]string{
			"customer_name": name,
		},
		StatusUpdatesURL: c.cfg.GetCallWebhookURL(),
		Metadata: map[string]any{
			metadataCustomerIDKey: customerID,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal call request: %w", err)
	}

	reqURL := c.cfg.GetVoiceAgentBaseURL() + "/v2/create-phone-call"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.GetVoiceAgentAPIKey())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Error("voice provider rejected call",
			"status", resp.StatusCode, "customer_id", customerID, "detail", string(detail))
		return fmt.Errorf("voice provider error: status %d", resp.StatusCode)
	}

	c.log.Info("outbound call dispatched", "customer_id", customerID)
	return nil
}
