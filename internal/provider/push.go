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

// PushConfig holds the push gateway endpoint (FCM-style HTTP API).
type PushConfig struct {
	GatewayURL string
	APIKey     string
	Timeout    time.Duration
}

func (c *PushConfig) Validate() error {
	if c.GatewayURL == "" {
		return fmt.Errorf("push gateway URL is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("push gateway API key is required")
	}
	return nil
}

// PushProvider delivers mobile/browser push notifications through an HTTP
// gateway.
type PushProvider struct {
	config PushConfig
	client *http.Client
}

func NewPushProvider(config PushConfig) (*PushProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid push config: %w", err)
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &PushProvider{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}, nil
}

func (p *PushProvider) Channel() models.Channel {
	return models.ChannelPush
}

type pushPayload struct {
	To           string            `json:"to,omitempty"`
	Subscription string            `json:"subscription,omitempty"`
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Data         map[string]string `json:"data,omitempty"`
}

type pushResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

func (p *PushProvider) Send(ctx context.Context, device *models.Device, msg message.Rendered) (Outcome, error) {
	payload := pushPayload{
		To:           device.PushToken,
		Subscription: device.PushSubscription,
		Title:        msg.Title,
		Body:         msg.Body,
		Data:         map[string]string{"zone": device.ZoneAssignment},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Outcome{}, fmt.Errorf("error encoding push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("error creating push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("push gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Outcome{}, fmt.Errorf("push gateway returned %d: %s", resp.StatusCode, raw)
	}

	var result pushResponse
	if err := json.Unmarshal(raw, &result); err == nil && result.Error != "" {
		return Outcome{}, fmt.Errorf("push gateway rejected message: %s", result.Error)
	}
	return Outcome{ProviderRef: result.MessageID}, nil
}
