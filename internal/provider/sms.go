package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minewatch/go-mine-alerts/internal/message"
	"github.com/minewatch/go-mine-alerts/internal/models"
)

// SMSConfig holds the SMS gateway endpoint.
type SMSConfig struct {
	GatewayURL string
	APIKey     string
	Sender     string
	Timeout    time.Duration
}

func (c *SMSConfig) Validate() error {
	if c.GatewayURL == "" {
		return fmt.Errorf("SMS gateway URL is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("SMS gateway API key is required")
	}
	return nil
}

// SMSProvider delivers text messages through an HTTP SMS gateway. Message
// truncation to carrier limits is the gateway's concern.
type SMSProvider struct {
	config SMSConfig
	client *http.Client
}

func NewSMSProvider(config SMSConfig) (*SMSProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SMS config: %w", err)
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &SMSProvider{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}, nil
}

func (p *SMSProvider) Channel() models.Channel {
	return models.ChannelSMS
}

type smsPayload struct {
	To   string `json:"to"`
	From string `json:"from"`
	Text string `json:"text"`
}

type smsResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

func (p *SMSProvider) Send(ctx context.Context, device *models.Device, msg message.Rendered) (Outcome, error) {
	payload := smsPayload{
		To:   device.PhoneNumber,
		From: p.config.Sender,
		Text: msg.Body,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Outcome{}, fmt.Errorf("error encoding SMS payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("error creating SMS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("SMS gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Outcome{}, fmt.Errorf("SMS gateway returned %d: %s", resp.StatusCode, raw)
	}

	var result smsResponse
	if err := json.Unmarshal(raw, &result); err == nil && result.Error != "" {
		return Outcome{}, fmt.Errorf("SMS gateway rejected message: %s", result.Error)
	}
	return Outcome{ProviderRef: result.MessageID}, nil
}
