package provider

import (
	"log/slog"
	"time"

	"github.com/minewatch/go-mine-alerts/internal/config"
	"github.com/minewatch/go-mine-alerts/internal/models"
)

// Set maps every channel to its provider.
type Set map[models.Channel]Provider

// NewSet builds the provider for each channel from configuration. Channels
// without credentials, and channels whose credentials fail construction,
// degrade to the simulated provider instead of failing startup. The choice
// is made once here; real providers never branch on missing configuration.
func NewSet(cfg config.ProvidersConfig, timeout time.Duration) Set {
	set := make(Set, 3)

	if cfg.PushGatewayURL != "" {
		p, err := NewPushProvider(PushConfig{
			GatewayURL: cfg.PushGatewayURL,
			APIKey:     cfg.PushGatewayKey,
			Timeout:    timeout,
		})
		if err == nil {
			set[models.ChannelPush] = p
		} else {
			slog.Warn("push provider misconfigured, falling back to simulation", "error", err)
		}
	}

	if cfg.SMSGatewayURL != "" {
		p, err := NewSMSProvider(SMSConfig{
			GatewayURL: cfg.SMSGatewayURL,
			APIKey:     cfg.SMSGatewayKey,
			Sender:     cfg.SMSSender,
			Timeout:    timeout,
		})
		if err == nil {
			set[models.ChannelSMS] = p
		} else {
			slog.Warn("SMS provider misconfigured, falling back to simulation", "error", err)
		}
	}

	if cfg.SMTPHost != "" {
		p, err := NewEmailProvider(EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			Timeout:  timeout,
		})
		if err == nil {
			set[models.ChannelEmail] = p
		} else {
			slog.Warn("email provider misconfigured, falling back to simulation", "error", err)
		}
	}

	for _, ch := range models.DispatchOrder {
		if _, ok := set[ch]; !ok {
			slog.Info("channel provider not configured, using simulated delivery", "channel", ch)
			set[ch] = NewSimulated(ch, DefaultSuccessRate(ch), 50*time.Millisecond, time.Now().UnixNano())
		}
	}

	return set
}
