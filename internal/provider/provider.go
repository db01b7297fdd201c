// Package provider implements the channel delivery capability: one Provider
// per channel, each either a real transport client or a simulated stand-in
// chosen at construction time.
package provider

import (
	"context"
	"fmt"

	"github.com/minewatch/go-mine-alerts/internal/message"
	"github.com/minewatch/go-mine-alerts/internal/models"
)

// Outcome carries transport metadata for a successful send.
type Outcome struct {
	ProviderRef string
}

// Provider sends one rendered notification to one device over one channel.
// A non-nil error means the attempt failed; implementations enforce their
// own per-call timeout.
type Provider interface {
	Channel() models.Channel
	Send(ctx context.Context, device *models.Device, msg message.Rendered) (Outcome, error)
}

// ValidateTarget checks that a device carries the address material a channel
// needs. Called before any provider call so malformed targets are recorded
// as failed deliveries instead of hitting the transport.
func ValidateTarget(d *models.Device, ch models.Channel) error {
	switch ch {
	case models.ChannelPush:
		if d.PushToken == "" && d.PushSubscription == "" {
			return fmt.Errorf("device %s has no push token or subscription", d.ID)
		}
	case models.ChannelSMS:
		if d.PhoneNumber == "" {
			return fmt.Errorf("device %s has no phone number", d.ID)
		}
	case models.ChannelEmail:
		if d.Email == "" {
			return fmt.Errorf("device %s has no email address", d.ID)
		}
	default:
		return fmt.Errorf("unknown channel %q", ch)
	}
	return nil
}
